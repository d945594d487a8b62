package adapter

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/zhengyishen0/voca-app/errs"
	"github.com/zhengyishen0/voca-app/feature"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInitMu   sync.Mutex
	onnxInitDone bool
)

// initONNXRuntime loads the shared library and initializes the ONNX
// Runtime environment exactly once per process.
func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitDone {
		return nil
	}

	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	if libPath == "" {
		return fmt.Errorf("ONNXRUNTIME_SHARED_LIBRARY_PATH not set")
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime environment: %w", err)
	}

	onnxInitDone = true
	log.Println("[adapter] ONNX Runtime initialized")
	return nil
}

// ONNXVADConfig configures an ONNXVADModel. ModelPath points at a
// Silero-style recurrent VAD ONNX export: inputs "input","state","sr",
// outputs "output","stateN".
type ONNXVADConfig struct {
	ModelPath  string
	SampleRate int
}

// ONNXVADModel wraps a recurrent ONNX VAD session.
type ONNXVADModel struct {
	session    *ort.DynamicAdvancedSession
	sampleRate int
	mu         sync.Mutex
}

// NewONNXVADModel loads the session named by cfg.ModelPath.
func NewONNXVADModel(cfg ONNXVADConfig) (*ONNXVADModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &errs.InferenceFailure{Stage: "vad-model-load", Cause: fmt.Errorf("model file not found: %s", cfg.ModelPath)}
	}
	if err := initONNXRuntime(); err != nil {
		return nil, &errs.InferenceFailure{Stage: "onnxruntime-init", Cause: err}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "vad-session-options", Cause: err}
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "vad-session-create", Cause: err}
	}

	return &ONNXVADModel{session: session, sampleRate: cfg.SampleRate}, nil
}

// StateSize is [2, 1, 128] flattened — Silero's LSTM h and c states.
func (v *ONNXVADModel) StateSize() int { return 2 * 1 * 128 }

func (v *ONNXVADModel) Run(ctx context.Context, input []float32, state []float32) (VADResult, error) {
	select {
	case <-ctx.Done():
		return VADResult{}, ctx.Err()
	default:
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if len(state) != v.StateSize() {
		return VADResult{}, &errs.InvalidInput{Kind: "vad state size"}
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return VADResult{}, &errs.InferenceFailure{Stage: "vad-input-tensor", Cause: err}
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), state)
	if err != nil {
		return VADResult{}, &errs.InferenceFailure{Stage: "vad-state-tensor", Cause: err}
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(v.sampleRate)})
	if err != nil {
		return VADResult{}, &errs.InferenceFailure{Stage: "vad-sr-tensor", Cause: err}
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := v.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return VADResult{}, &errs.InferenceFailure{Stage: "vad-run", Cause: err}
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	probData := outputs[0].(*ort.Tensor[float32]).GetData()
	stateData := outputs[1].(*ort.Tensor[float32]).GetData()

	nextState := make([]float32, len(stateData))
	copy(nextState, stateData)

	var prob float32
	if len(probData) > 0 {
		prob = probData[0]
	}

	return VADResult{Probability: prob, NextState: nextState}, nil
}

func (v *ONNXVADModel) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.Destroy()
		v.session = nil
	}
	return nil
}

// ONNXASRConfig configures an ONNXASRModel: a CTC acoustic model
// taking an LFR-stacked, fixed-frame feature matrix.
type ONNXASRConfig struct {
	ModelPath string
	VocabSize int
}

// ONNXASRModel wraps a CTC ONNX acoustic model session.
type ONNXASRModel struct {
	session   *ort.DynamicAdvancedSession
	vocabSize int
	mu        sync.Mutex
}

// NewONNXASRModel loads the CTC acoustic model named by cfg.ModelPath,
// auto-discovering its input/output tensor names.
func NewONNXASRModel(cfg ONNXASRConfig) (*ONNXASRModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &errs.InferenceFailure{Stage: "asr-model-load", Cause: fmt.Errorf("model file not found: %s", cfg.ModelPath)}
	}
	if err := initONNXRuntime(); err != nil {
		return nil, &errs.InferenceFailure{Stage: "onnxruntime-init", Cause: err}
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "asr-model-info", Cause: err}
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "asr-session-options", Cause: err}
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "asr-session-create", Cause: err}
	}

	return &ONNXASRModel{session: session, vocabSize: cfg.VocabSize}, nil
}

func (a *ONNXASRModel) VocabSize() int { return a.vocabSize }

func (a *ONNXASRModel) Run(ctx context.Context, melLFR [][]float32) ([][]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(melLFR) == 0 {
		return nil, &errs.InvalidInput{Kind: "empty feature matrix"}
	}
	numFrames := len(melLFR)
	dim := len(melLFR[0])

	flat := make([]float32, numFrames*dim)
	for t, frame := range melLFR {
		copy(flat[t*dim:], frame)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(numFrames), int64(dim)), flat)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "asr-input-tensor", Cause: err}
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := a.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, &errs.InferenceFailure{Stage: "asr-run", Cause: err}
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	logits := outputs[0].(*ort.Tensor[float32]).GetData()
	frames := len(logits) / a.vocabSize

	result := make([][]float32, frames)
	for t := 0; t < frames; t++ {
		result[t] = make([]float32, a.vocabSize)
		copy(result[t], logits[t*a.vocabSize:(t+1)*a.vocabSize])
	}

	return result, nil
}

func (a *ONNXASRModel) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Destroy()
		a.session = nil
	}
	return nil
}

// ONNXSpeakerConfig configures an ONNXSpeakerModel.
type ONNXSpeakerConfig struct {
	ModelPath    string
	EmbeddingDim int
	Mel          feature.MelConfig
}

// ONNXSpeakerModel wraps a WeSpeaker/x-vector style ONNX session.
type ONNXSpeakerModel struct {
	session *ort.DynamicAdvancedSession
	mel     *feature.MelProcessor
	dim     int
	mu      sync.Mutex
}

// NewONNXSpeakerModel loads the speaker embedding model named by
// cfg.ModelPath, auto-discovering its input/output tensor names.
func NewONNXSpeakerModel(cfg ONNXSpeakerConfig) (*ONNXSpeakerModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &errs.InferenceFailure{Stage: "speaker-model-load", Cause: fmt.Errorf("model file not found: %s", cfg.ModelPath)}
	}
	if err := initONNXRuntime(); err != nil {
		return nil, &errs.InferenceFailure{Stage: "onnxruntime-init", Cause: err}
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "speaker-model-info", Cause: err}
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "speaker-session-options", Cause: err}
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "speaker-session-create", Cause: err}
	}

	return &ONNXSpeakerModel{
		session: session,
		mel:     feature.NewMelProcessor(cfg.Mel),
		dim:     cfg.EmbeddingDim,
	}, nil
}

func (s *ONNXSpeakerModel) EmbeddingDim() int { return s.dim }

func (s *ONNXSpeakerModel) Embed(ctx context.Context, samples []float32) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	melSpec := s.mel.Compute(samples)
	numFrames := len(melSpec)
	if numFrames == 0 {
		return nil, &errs.InvalidInput{Kind: "audio too short for speaker embedding"}
	}
	nMels := len(melSpec[0])

	flat := make([]float32, numFrames*nMels)
	for t, frame := range melSpec {
		copy(flat[t*nMels:], frame)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(numFrames), int64(nMels)), flat)
	if err != nil {
		return nil, &errs.InferenceFailure{Stage: "speaker-input-tensor", Cause: err}
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, &errs.InferenceFailure{Stage: "speaker-run", Cause: err}
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	embedding := outputs[0].(*ort.Tensor[float32]).GetData()
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (s *ONNXSpeakerModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
