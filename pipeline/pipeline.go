// Package pipeline assembles the streaming VAD aggregator, feature
// preparation, ASR decoding, and speaker attribution into the single
// process_audio/flush/reset surface a live transcription session or a
// batch file job drives.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhengyishen0/voca-app/adapter"
	"github.com/zhengyishen0/voca-app/asr"
	"github.com/zhengyishen0/voca-app/feature"
	"github.com/zhengyishen0/voca-app/speaker"
	"github.com/zhengyishen0/voca-app/vad"
)

// clusterLabelPrefix must match the label speaker.Library.ClusterUnknowns
// generates for provisional cluster profiles (see library.go).
const clusterLabelPrefix = "cluster_"

// OutputSegment is one assembled result: transcript plus speaker
// attribution for a single VAD-bounded speech region — spec.md §3's
// "Segment (emitted)".
type OutputSegment struct {
	StartSec float64
	EndSec   float64
	Text     string
	Words    []asr.Word

	SpeakerName *string
	Confidence  speaker.Confidence
	Similarity  float32
	Embedding   []float32

	IsKnown       bool
	IsConflict    bool
	Learned       bool
	ProcessTimeMs int64
	ClusterLabel  *string
}

// Config parameterizes a Pipeline. ModelKind selects the ASR token
// decode strategy (CTC + vocab vs byte-level BPE).
type Config struct {
	ModelKind     asr.ModelKind
	Vocab         []string // required for KindSenseVoice
	BlankID       int
	WhisperConfig *asr.WhisperConfig    // required for KindWhisperTurbo
	WhisperTok    *asr.WhisperTokenizer // required for KindWhisperTurbo
}

// Pipeline orchestrates one live or file-mode transcription session.
// Not safe for concurrent ProcessAudio calls on the same instance;
// create one per stream.
type Pipeline struct {
	vadAgg       *vad.Aggregator
	asrModel     adapter.ASRModel
	speakerModel adapter.SpeakerModel
	library      *speaker.Library
	melProc      *feature.MelProcessor
	ctcDecoder   *asr.CTCDecoder
	config       Config

	mu sync.Mutex
}

// New builds a Pipeline over the given backends and library. Any of
// vadModel/asrModel/speakerModel/library may be independently supplied
// by either adapter family (spec.md §4.H).
func New(vadModel adapter.VADModel, asrModel adapter.ASRModel, speakerModel adapter.SpeakerModel, library *speaker.Library, config Config) *Pipeline {
	p := &Pipeline{
		vadAgg:       vad.NewAggregator(vadModel, vad.DefaultConfig()),
		asrModel:     asrModel,
		speakerModel: speakerModel,
		library:      library,
		melProc:      feature.NewMelProcessor(feature.DefaultMelConfig()),
		config:       config,
	}
	if config.ModelKind == asr.KindSenseVoice {
		p.ctcDecoder = asr.NewCTCDecoder(config.Vocab, config.BlankID)
	}
	return p
}

// ProcessAudio forwards samples through the VAD aggregator and, for
// every speech segment it emits, runs ASR and speaker attribution,
// handing each assembled OutputSegment to emit. emit may be called
// zero or more times per call; the caller decides whether to stream
// results live or collect them into an ordered list.
func (p *Pipeline) ProcessAudio(ctx context.Context, samples []float32, emit func(OutputSegment)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	segments, err := p.vadAgg.Process(ctx, samples)
	if err != nil {
		return fmt.Errorf("vad aggregation: %w", err)
	}

	for _, seg := range segments {
		out, err := p.assemble(ctx, seg)
		if err != nil {
			log.Printf("pipeline: segment [%dms,%dms] failed: %v", seg.StartMs, seg.EndMs, err)
			continue
		}
		emit(*out)
	}
	return nil
}

// Flush finalizes the VAD aggregator, processing a trailing partial
// segment if one is eligible, and emits it via emit.
func (p *Pipeline) Flush(ctx context.Context, emit func(OutputSegment)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, err := p.vadAgg.Flush(ctx)
	if err != nil {
		return fmt.Errorf("vad flush: %w", err)
	}
	if seg == nil {
		return nil
	}

	out, err := p.assemble(ctx, *seg)
	if err != nil {
		log.Printf("pipeline: trailing segment [%dms,%dms] failed: %v", seg.StartMs, seg.EndMs, err)
		return nil
	}
	emit(*out)
	return nil
}

// Reset drops all in-flight state (VAD hysteresis, rolling context)
// without flushing a trailing segment. The next ProcessAudio call
// starts a fresh stream origin at t=0.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vadAgg.Reset()
}

func (p *Pipeline) assemble(ctx context.Context, seg vad.Segment) (*OutputSegment, error) {
	start := time.Now()

	text, words, err := p.transcribe(ctx, seg.Samples)
	if err != nil {
		log.Printf("pipeline: ASR failed for segment [%dms,%dms]: %v", seg.StartMs, seg.EndMs, err)
		// Spec.md §4.G: empty text still gets speaker attribution.
	}

	out := &OutputSegment{
		StartSec: float64(seg.StartMs) / 1000.0,
		EndSec:   float64(seg.EndMs) / 1000.0,
		Text:     text,
		Words:    words,
	}

	name, similarity, confidence, embedding, learned, err := p.attributeSpeaker(ctx, seg.Samples)
	if err != nil {
		log.Printf("pipeline: speaker embedding failed for segment [%dms,%dms]: %v", seg.StartMs, seg.EndMs, err)
		out.SpeakerName = nil
		out.Confidence = speaker.ConfidenceUnknown
		out.Embedding = nil
		out.ProcessTimeMs = time.Since(start).Milliseconds()
		return out, nil
	}

	if name != speaker.UnknownName {
		out.SpeakerName = &name
		if label, ok := strings.CutPrefix(name, clusterLabelPrefix); ok {
			clusterLabel := clusterLabelPrefix + label
			out.ClusterLabel = &clusterLabel
		}
	}
	out.Similarity = similarity
	out.Confidence = confidence
	out.Embedding = embedding
	out.Learned = learned
	out.IsKnown = confidence == speaker.ConfidenceHigh || confidence == speaker.ConfidenceMedium || confidence == speaker.ConfidenceLow
	out.IsConflict = confidence == speaker.ConfidenceConflict
	out.ProcessTimeMs = time.Since(start).Milliseconds()
	return out, nil
}

func (p *Pipeline) transcribe(ctx context.Context, samples []float32) (string, []asr.Word, error) {
	mel := p.melProc.Compute(samples)
	lfr := feature.LFRStack(mel, feature.LFRM, feature.LFRN)
	padded := feature.PadToFixedFrames(lfr, feature.FixedFrames)

	logits, err := p.asrModel.Run(ctx, padded)
	if err != nil {
		return "", nil, err
	}

	frameMs := 1000.0 * float64(feature.LFRN*feature.HopLength) / float64(feature.SampleRate)

	switch p.config.ModelKind {
	case asr.KindWhisperTurbo:
		return p.decodeWhisper(logits), nil, nil
	default:
		words := p.ctcDecoder.GreedyDecode(logits, frameMs)
		return asr.WordsToSegment(words).Text, words, nil
	}
}

// decodeWhisper takes the per-frame argmax token id as a stand-in for
// a beam/greedy autoregressive decode step — the adapter contract
// (spec.md §4.H) returns per-frame class scores uniformly for both
// model families, so the Whisper path reduces it the same way CTC
// does before invoking the byte-level tokenizer.
func (p *Pipeline) decodeWhisper(logits [][]float32) string {
	ids := make([]int, len(logits))
	for i, frame := range logits {
		best, bestVal := 0, frame[0]
		for j, v := range frame {
			if v > bestVal {
				bestVal, best = v, j
			}
		}
		ids[i] = best
	}
	return p.config.WhisperTok.Decode(ids, p.config.WhisperConfig)
}

func (p *Pipeline) attributeSpeaker(ctx context.Context, samples []float32) (name string, similarity float32, confidence speaker.Confidence, embedding []float32, learned bool, err error) {
	window := centerWindow(samples, feature.XVectorSamples)

	embedding, err = p.speakerModel.Embed(ctx, window)
	if err != nil {
		return "", 0, speaker.ConfidenceUnknown, nil, false, err
	}

	name, similarity, confidence, err = p.library.Match(embedding)
	if err != nil {
		return "", 0, speaker.ConfidenceUnknown, nil, false, err
	}

	switch confidence {
	case speaker.ConfidenceHigh:
		learned, err = p.library.AutoLearn(name, embedding, similarity)
		if err != nil {
			log.Printf("pipeline: auto_learn failed for %q: %v", name, err)
		}
	case speaker.ConfidenceUnknown:
		// Spec.md §1: the Unknown pool grows and self-corrects through
		// exposure to new speech — only truly unmatched embeddings (no
		// candidate name at all) are eligible for clustering.
		p.library.ParkUnknown(embedding)
	}

	return name, similarity, confidence, embedding, learned, nil
}

// centerWindow extracts exactly n samples centred on samples: for
// longer input it trims evenly from both ends, for shorter input it
// zero-pads symmetrically (spec.md §4.G).
func centerWindow(samples []float32, n int) []float32 {
	out := make([]float32, n)
	if len(samples) >= n {
		start := (len(samples) - n) / 2
		copy(out, samples[start:start+n])
		return out
	}

	offset := (n - len(samples)) / 2
	copy(out[offset:], samples)
	return out
}
