package config

import "flag"

// Config is populated from command-line flags. It selects which
// adapter family backs each opaque contract (spec.md §4.H) and where
// the model files and speaker library live on disk.
type Config struct {
	Backend string // "onnx" or "sherpa"

	VADModelPath     string
	ASRModelPath     string
	SpeakerModelPath string
	VocabPath        string

	ModelKind string // "sensevoice" or "whisperTurbo"

	LibraryPath string

	NumThreads int
	Provider   string // onnx/sherpa provider: cpu, cuda, coreml, auto
}

// Load parses flags into a Config. Follows internal/config's Load()
// shape: flag.String/Bool/Int into locals, then a single struct
// literal.
func Load() *Config {
	backend := flag.String("backend", "onnx", "Model adapter backend: onnx or sherpa")

	vadModel := flag.String("vad-model", "models/silero_vad.onnx", "Path to VAD model")
	asrModel := flag.String("asr-model", "models/asr.onnx", "Path to ASR acoustic model")
	speakerModel := flag.String("speaker-model", "models/speaker_encoder.onnx", "Path to speaker embedding model")
	vocabPath := flag.String("vocab", "models/vocab.txt", "Path to ASR vocabulary file")

	modelKind := flag.String("model-kind", "sensevoice", "ASR model kind: sensevoice or whisperTurbo")

	libraryPath := flag.String("library", "data/speakers.json", "Path to the persisted speaker library")

	numThreads := flag.Int("num-threads", 4, "Inference thread count")
	provider := flag.String("provider", "auto", "Execution provider: auto, cpu, cuda, coreml")

	flag.Parse()

	return &Config{
		Backend:          *backend,
		VADModelPath:     *vadModel,
		ASRModelPath:     *asrModel,
		SpeakerModelPath: *speakerModel,
		VocabPath:        *vocabPath,
		ModelKind:        *modelKind,
		LibraryPath:      *libraryPath,
		NumThreads:       *numThreads,
		Provider:         *provider,
	}
}
