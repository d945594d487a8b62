package feature

// Constant names restored from the original pipeline's exported
// constants (see SPEC_FULL.md — SUPPLEMENTED FEATURES). Values are the
// conventional GigaAM/SenseVoice-style defaults for a 16kHz front end.
const (
	SampleRate = 16000

	NFFT      = 400 // 25ms @ 16kHz
	HopLength = 160 // 10ms @ 16kHz
	NMels     = 80

	LFRM = 7
	LFRN = 6

	FeatureDim   = NMels * LFRM
	FixedFrames  = 512
	XVectorDim   = 192
	XVectorSamples = 3 * SampleRate // 3s window for the speaker encoder
)
