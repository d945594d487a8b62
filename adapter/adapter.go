// Package adapter defines the opaque backend contracts the streaming
// VAD aggregator, ASR decoder, and speaker library are built against,
// plus two concrete implementations of them: one over ONNX Runtime,
// one over sherpa-onnx. Callers depend only on the interfaces; the
// pipeline picks a concrete adapter at construction time.
package adapter

import "context"

// VADResult is one inference step of a recurrent VAD backend: a
// speech probability plus the next opaque recurrent state.
type VADResult struct {
	Probability float32
	NextState   []float32
}

// VADModel runs one VAD inference step over VAD_MODEL_INPUT_SIZE
// samples (context + chunk) and the current recurrent state, returning
// a probability and the next state. Implementations own their own
// session lifecycle; callers own the hysteresis logic.
type VADModel interface {
	// StateSize is the length of the opaque state vector this model
	// expects and returns.
	StateSize() int
	Run(ctx context.Context, input []float32, state []float32) (VADResult, error)
	Close() error
}

// ASRModel turns a fixed-shape LFR-stacked, padded mel feature matrix
// into per-frame logits over a fixed vocabulary. Greedy CTC decoding
// and special-token handling live in package asr, not here.
type ASRModel interface {
	// VocabSize is the number of output classes, including the blank
	// token used by CTC decoding.
	VocabSize() int
	Run(ctx context.Context, melLFR [][]float32) ([][]float32, error)
	Close() error
}

// SpeakerModel extracts a fixed-dimension embedding from a window of
// audio. Embeddings are expected (but not required) to already be
// close to unit length; callers normalize defensively.
type SpeakerModel interface {
	EmbeddingDim() int
	Embed(ctx context.Context, samples []float32) ([]float32, error)
	Close() error
}
