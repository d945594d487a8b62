// Package vad implements the streaming voice-activity aggregator: the
// hysteresis state machine that turns a sequence of per-chunk speech
// probabilities from an opaque adapter.VADModel into non-overlapping,
// monotonic speech segments.
package vad

import (
	"context"
	"sync"

	"github.com/zhengyishen0/voca-app/adapter"
)

// Mode is the aggregator's current state.
type Mode int

const (
	Idle Mode = iota
	Speaking
)

// Segment is one emitted speech region: its time span and the raw
// samples spanning it (trimmed to the last confirmed speech chunk,
// dropping the trailing silence that triggered the exit).
type Segment struct {
	StartMs int64
	EndMs   int64
	Samples []float32
}

// Config parameterizes the aggregator. SampleRate must match the
// model's expected rate.
type Config struct {
	SampleRate            int
	SpeechThreshold       float32
	MinSpeechDurationSec  float64
	MinSilenceDurationSec float64
}

// DefaultConfig mirrors the Silero-style defaults restored in
// constants.go.
func DefaultConfig() Config {
	return Config{
		SampleRate:            16000,
		SpeechThreshold:       SpeechThreshold,
		MinSpeechDurationSec:  MinSpeechDurationSec,
		MinSilenceDurationSec: MinSilenceDurationSec,
	}
}

// Aggregator is the streaming VAD state machine of spec.md §4.C. Not
// safe for concurrent Process calls from multiple goroutines on the
// same stream; create one Aggregator per live stream.
type Aggregator struct {
	model  adapter.VADModel
	config Config

	minSpeechChunks  int
	minSilenceChunks int

	mu      sync.Mutex
	state   []float32
	context []float32
	pending []float32

	mode          Mode
	cursorSamples int64

	tentativeRun         int
	tentativeStartSample int64
	tentativeBuf         []float32

	speechStartSample   int64
	speechBuf           []float32
	silenceRun          int
	lastSpeechEndSample int64
}

// NewAggregator builds an aggregator over model, whose state and
// context buffers are sized to the model's declared state size and
// ContextSize respectively.
func NewAggregator(model adapter.VADModel, config Config) *Aggregator {
	chunkDurationSec := float64(ChunkSize) / float64(config.SampleRate)
	minSpeechChunks := int(config.MinSpeechDurationSec/chunkDurationSec + 0.999999)
	if minSpeechChunks < 1 {
		minSpeechChunks = 1
	}
	minSilenceChunks := int(config.MinSilenceDurationSec/chunkDurationSec + 0.999999)
	if minSilenceChunks < 1 {
		minSilenceChunks = 1
	}

	return &Aggregator{
		model:            model,
		config:           config,
		minSpeechChunks:  minSpeechChunks,
		minSilenceChunks: minSilenceChunks,
		state:            make([]float32, model.StateSize()),
		context:          make([]float32, ContextSize),
	}
}

// Process accepts an arbitrary-length run of samples, buffers it
// alongside any previously-incomplete chunk, and returns every speech
// segment the newly available full chunks cause to be emitted.
func (a *Aggregator) Process(ctx context.Context, samples []float32) ([]Segment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = append(a.pending, samples...)

	var emitted []Segment
	for len(a.pending) >= ChunkSize {
		chunk := a.pending[:ChunkSize]
		a.pending = a.pending[ChunkSize:]

		seg, err := a.processChunk(ctx, chunk)
		if err != nil {
			return emitted, err
		}
		if seg != nil {
			emitted = append(emitted, *seg)
		}
	}

	return emitted, nil
}

// Flush zero-pads any buffered partial chunk and, if currently
// Speaking, forces the transition to Idle — emitting the partial
// segment if it meets MinSpeechDurationSec, discarding it otherwise.
func (a *Aggregator) Flush(ctx context.Context) (*Segment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) > 0 {
		padded := make([]float32, ChunkSize)
		copy(padded, a.pending)
		a.pending = nil

		seg, err := a.processChunk(ctx, padded)
		if err != nil {
			return nil, err
		}
		if seg != nil {
			return seg, nil
		}
	}

	if a.mode != Speaking {
		return nil, nil
	}

	durationSec := float64(a.lastSpeechEndSample-a.speechStartSample) / float64(a.config.SampleRate)
	a.mode = Idle
	buf := a.speechBuf
	a.speechBuf = nil
	a.silenceRun = 0

	if durationSec < a.config.MinSpeechDurationSec {
		return nil, nil
	}

	trimmed := int(a.lastSpeechEndSample - a.speechStartSample)
	if trimmed < len(buf) {
		buf = buf[:trimmed]
	}
	samples := make([]float32, len(buf))
	copy(samples, buf)

	return &Segment{
		StartMs: samplesToMs(a.speechStartSample, a.config.SampleRate),
		EndMs:   samplesToMs(a.lastSpeechEndSample, a.config.SampleRate),
		Samples: samples,
	}, nil
}

// Reset clears all state: mode, recurrent hidden/cell state, rolling
// context, and any buffered or accumulated audio.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.state {
		a.state[i] = 0
	}
	for i := range a.context {
		a.context[i] = 0
	}
	a.pending = nil
	a.mode = Idle
	a.cursorSamples = 0
	a.tentativeRun = 0
	a.tentativeBuf = nil
	a.speechBuf = nil
	a.silenceRun = 0
}

func (a *Aggregator) processChunk(ctx context.Context, chunk []float32) (*Segment, error) {
	input := make([]float32, 0, len(a.context)+len(chunk))
	input = append(input, a.context...)
	input = append(input, chunk...)

	result, err := a.model.Run(ctx, input, a.state)
	if err != nil {
		return nil, err
	}
	if len(result.NextState) > 0 {
		a.state = result.NextState
	}

	if len(chunk) >= len(a.context) {
		copy(a.context, chunk[len(chunk)-len(a.context):])
	} else {
		copy(a.context, a.context[len(chunk):])
		copy(a.context[len(a.context)-len(chunk):], chunk)
	}

	isSpeech := result.Probability >= a.config.SpeechThreshold
	chunkStart := a.cursorSamples
	a.cursorSamples += int64(len(chunk))
	chunkEnd := a.cursorSamples

	switch a.mode {
	case Idle:
		return a.stepIdle(isSpeech, chunk, chunkStart, chunkEnd), nil
	default:
		return a.stepSpeaking(isSpeech, chunk, chunkEnd), nil
	}
}

func (a *Aggregator) stepIdle(isSpeech bool, chunk []float32, chunkStart, chunkEnd int64) *Segment {
	if !isSpeech {
		a.tentativeRun = 0
		a.tentativeBuf = nil
		return nil
	}

	if a.tentativeRun == 0 {
		a.tentativeStartSample = chunkStart
		a.tentativeBuf = a.tentativeBuf[:0]
	}
	a.tentativeRun++
	a.tentativeBuf = append(a.tentativeBuf, chunk...)

	if a.tentativeRun < a.minSpeechChunks {
		return nil
	}

	a.mode = Speaking
	a.speechStartSample = a.tentativeStartSample
	a.speechBuf = append([]float32{}, a.tentativeBuf...)
	a.lastSpeechEndSample = chunkEnd
	a.silenceRun = 0
	a.tentativeRun = 0
	a.tentativeBuf = nil
	return nil
}

func (a *Aggregator) stepSpeaking(isSpeech bool, chunk []float32, chunkEnd int64) *Segment {
	a.speechBuf = append(a.speechBuf, chunk...)

	if isSpeech {
		a.silenceRun = 0
		a.lastSpeechEndSample = chunkEnd
		return nil
	}

	a.silenceRun++
	if a.silenceRun < a.minSilenceChunks {
		return nil
	}

	trimmed := int(a.lastSpeechEndSample - a.speechStartSample)
	buf := a.speechBuf
	if trimmed < len(buf) {
		buf = buf[:trimmed]
	}
	samples := make([]float32, len(buf))
	copy(samples, buf)

	seg := &Segment{
		StartMs: samplesToMs(a.speechStartSample, a.config.SampleRate),
		EndMs:   samplesToMs(a.lastSpeechEndSample, a.config.SampleRate),
		Samples: samples,
	}

	a.mode = Idle
	a.speechBuf = nil
	a.silenceRun = 0
	return seg
}

func samplesToMs(samples int64, sampleRate int) int64 {
	return samples * 1000 / int64(sampleRate)
}
