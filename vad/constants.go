package vad

// Constant names restored from the original pipeline (see SPEC_FULL.md —
// SUPPLEMENTED FEATURES). Values follow the teacher's Silero VAD
// defaults (ai/silero_vad.go's DefaultSileroVADConfig).
const (
	ChunkSize       = 512 // samples per chunk @ 16kHz (32ms)
	ContextSize     = 64  // rolling context prepended to each chunk
	ModelInputSize  = ChunkSize + ContextSize
	StateSize       = 2 * 1 * 128 // Silero LSTM [h;c]

	SpeechThreshold float32 = 0.5

	MinSpeechDurationSec float64 = 0.25
	MinSilenceDurationSec float64 = 0.1
)
