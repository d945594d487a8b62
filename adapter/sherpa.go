package adapter

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/zhengyishen0/voca-app/errs"
	"github.com/zhengyishen0/voca-app/feature"
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// detectBestProvider picks CoreML on Apple Silicon, CPU otherwise —
// sherpa's CUDA provider is not auto-selected for safety.
func detectBestProvider() string {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	return "cpu"
}

// SherpaVADConfig configures a SherpaVADModel backed by sherpa-onnx's
// bundled Silero VAD support.
type SherpaVADConfig struct {
	ModelPath  string
	SampleRate int
	Threshold  float32
	NumThreads int
	Provider   string // "auto", "cpu", "coreml"
}

// SherpaVADModel wraps sherpa-onnx's VoiceActivityDetector. Unlike the
// streaming ONNX adapter, sherpa's VAD owns its own ring buffer and
// recurrent state; this adapter still surfaces the per-chunk VADModel
// contract with one internal detector per SherpaVADModel, reporting
// probability 1 or 0 from the detector's speech flag and no opaque
// state, so the outer hysteresis aggregator in package vad stays
// backend-agnostic.
type SherpaVADModel struct {
	config sherpa.VadModelConfig
	mu     sync.Mutex
	vad    *sherpa.VoiceActivityDetector
}

// NewSherpaVADModel loads cfg.ModelPath with the best available
// provider for the current platform (or cfg.Provider if not "auto").
func NewSherpaVADModel(cfg SherpaVADConfig) (*SherpaVADModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &errs.InferenceFailure{Stage: "sherpa-vad-model-load", Cause: fmt.Errorf("model file not found: %s", cfg.ModelPath)}
	}

	provider := cfg.Provider
	if provider == "" || provider == "auto" {
		provider = detectBestProvider()
	}

	vadConfig := sherpa.VadModelConfig{
		SileroVad: sherpa.SileroVadModelConfig{
			Model:              cfg.ModelPath,
			Threshold:          cfg.Threshold,
			MinSilenceDuration: 0.1,
			MinSpeechDuration:  0.25,
			WindowSize:         512,
		},
		SampleRate: cfg.SampleRate,
		NumThreads: cfg.NumThreads,
		Provider:   provider,
	}

	vad := sherpa.NewVoiceActivityDetector(&vadConfig, 30)
	if vad == nil {
		return nil, &errs.InferenceFailure{Stage: "sherpa-vad-create", Cause: fmt.Errorf("sherpa returned nil detector")}
	}

	return &SherpaVADModel{config: vadConfig, vad: vad}, nil
}

// StateSize is 0: sherpa's detector is itself the state, so the
// aggregator's state slice is unused with this backend.
func (s *SherpaVADModel) StateSize() int { return 0 }

func (s *SherpaVADModel) Run(ctx context.Context, input []float32, _ []float32) (VADResult, error) {
	select {
	case <-ctx.Done():
		return VADResult{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vad == nil {
		return VADResult{}, &errs.InvalidInput{Kind: "sherpa vad closed"}
	}

	s.vad.AcceptWaveform(input)

	var prob float32
	if s.vad.IsSpeechDetected() {
		prob = 1
	}

	return VADResult{Probability: prob, NextState: nil}, nil
}

func (s *SherpaVADModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vad != nil {
		sherpa.DeleteVoiceActivityDetector(s.vad)
		s.vad = nil
	}
	return nil
}

// SherpaSpeakerConfig configures a SherpaSpeakerModel over sherpa's
// standalone speaker embedding extractor (the same embedding model
// family SherpaDiarizer uses internally).
type SherpaSpeakerConfig struct {
	ModelPath  string
	NumThreads int
	Provider   string
}

// SherpaSpeakerModel wraps sherpa.SpeakerEmbeddingExtractor.
type SherpaSpeakerModel struct {
	extractor *sherpa.SpeakerEmbeddingExtractor
	dim       int
	mu        sync.Mutex
}

// NewSherpaSpeakerModel loads cfg.ModelPath with the best available
// provider for the current platform (or cfg.Provider if not "auto").
func NewSherpaSpeakerModel(cfg SherpaSpeakerConfig) (*SherpaSpeakerModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &errs.InferenceFailure{Stage: "sherpa-speaker-model-load", Cause: fmt.Errorf("model file not found: %s", cfg.ModelPath)}
	}

	provider := cfg.Provider
	if provider == "" || provider == "auto" {
		provider = detectBestProvider()
	}

	config := &sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      cfg.ModelPath,
		NumThreads: cfg.NumThreads,
		Debug:      0,
		Provider:   provider,
	}

	extractor := sherpa.NewSpeakerEmbeddingExtractor(config)
	if extractor == nil {
		return nil, &errs.InferenceFailure{Stage: "sherpa-speaker-create", Cause: fmt.Errorf("sherpa returned nil extractor")}
	}

	return &SherpaSpeakerModel{
		extractor: extractor,
		dim:       extractor.Dim(),
	}, nil
}

func (s *SherpaSpeakerModel) EmbeddingDim() int { return s.dim }

func (s *SherpaSpeakerModel) Embed(ctx context.Context, samples []float32) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.extractor == nil {
		return nil, &errs.InvalidInput{Kind: "sherpa speaker extractor closed"}
	}

	stream := sherpa.NewSpeakerEmbeddingExtractorStream(s.extractor)
	defer sherpa.DeleteSpeakerEmbeddingExtractorStream(stream)

	stream.AcceptWaveform(feature.SampleRate, samples)
	stream.InputFinished()

	if !s.extractor.IsReady(stream) {
		return nil, &errs.InvalidInput{Kind: "audio too short for sherpa speaker embedding"}
	}

	embedding := s.extractor.Compute(stream)
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (s *SherpaSpeakerModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extractor != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(s.extractor)
		s.extractor = nil
	}
	return nil
}
