package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/zhengyishen0/voca-app/errs"
)

func TestResampleInvalidRate(t *testing.T) {
	_, err := Resample([]float32{1, 2, 3}, 0, 16000)
	var ii *errs.InvalidInput
	if !errors.As(err, &ii) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestResampleSameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
}

func TestResampleDownsample(t *testing.T) {
	in := make([]float32, 320) // 20ms @ 16kHz
	out, err := Resample(in, 16000, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 160 {
		t.Errorf("len(out) = %d, want 160", len(out))
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
	got := RMS([]float32{1, -1, 1, -1})
	if math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("RMS = %v, want 1", got)
	}
}

func TestMelProcessorShape(t *testing.T) {
	cfg := DefaultMelConfig()
	p := NewMelProcessor(cfg)

	samples := make([]float32, SampleRate) // 1s of silence
	mel := p.Compute(samples)

	if len(mel) == 0 {
		t.Fatal("expected at least one mel frame")
	}
	for i, frame := range mel {
		if len(frame) != NMels {
			t.Fatalf("frame %d has %d bands, want %d", i, len(frame), NMels)
		}
	}
}

func TestLFRStackShape(t *testing.T) {
	mel := make([][]float32, 20)
	for i := range mel {
		mel[i] = make([]float32, NMels)
	}

	stacked := LFRStack(mel, LFRM, LFRN)
	if len(stacked) == 0 {
		t.Fatal("expected at least one stacked frame")
	}
	for i, f := range stacked {
		if len(f) != NMels*LFRM {
			t.Fatalf("stacked frame %d has dim %d, want %d", i, len(f), NMels*LFRM)
		}
	}
}

func TestLFRStackTailReplication(t *testing.T) {
	mel := [][]float32{{1, 2}, {3, 4}}
	stacked := LFRStack(mel, 3, 2)
	if len(stacked) != 1 {
		t.Fatalf("len(stacked) = %d, want 1", len(stacked))
	}
	want := []float32{1, 2, 3, 4, 3, 4} // frame 0, frame 1, frame 1 replicated
	for i, v := range want {
		if stacked[0][i] != v {
			t.Errorf("stacked[0][%d] = %v, want %v", i, stacked[0][i], v)
		}
	}
}

func TestPadToFixedFramesUnderflow(t *testing.T) {
	features := [][]float32{{1, 2}, {3, 4}}
	padded := PadToFixedFrames(features, 4)
	if len(padded) != 4 {
		t.Fatalf("len(padded) = %d, want 4", len(padded))
	}
	for _, v := range padded[2] {
		if v != 0 {
			t.Errorf("padded[2] not zero: %v", padded[2])
		}
	}
}

func TestPadToFixedFramesOverflow(t *testing.T) {
	features := make([][]float32, 10)
	padded := PadToFixedFrames(features, 4)
	if len(padded) != 4 {
		t.Fatalf("len(padded) = %d, want 4", len(padded))
	}
}
