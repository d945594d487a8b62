package vad

import (
	"context"
	"testing"

	"github.com/zhengyishen0/voca-app/adapter"
)

// constantProbModel always returns prob for every chunk, ignoring the
// actual audio content — a stand-in for a real recurrent VAD backend
// in tests, exactly as the teacher's tests mock Whisper/VAD responses.
type constantProbModel struct {
	prob float32
}

func (m *constantProbModel) StateSize() int { return 8 }
func (m *constantProbModel) Run(_ context.Context, _ []float32, state []float32) (adapter.VADResult, error) {
	return adapter.VADResult{Probability: m.prob, NextState: state}, nil
}
func (m *constantProbModel) Close() error { return nil }

func newTestAggregator(prob float32) *Aggregator {
	model := &constantProbModel{prob: prob}
	cfg := DefaultConfig()
	return NewAggregator(model, cfg)
}

func TestSilenceProducesNoSegments(t *testing.T) {
	agg := newTestAggregator(0.0)
	samples := make([]float32, 3*16000) // 3s of zeros

	segs, err := agg.Process(context.Background(), samples)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("len(segs) = %d, want 0", len(segs))
	}

	final, err := agg.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if final != nil {
		t.Fatalf("expected no segment from Flush, got %+v", final)
	}
}

func TestToneAboveThresholdProducesOneSegment(t *testing.T) {
	agg := newTestAggregator(0.9)
	samples := make([]float32, 2*16000) // 2s above threshold throughout

	segs, err := agg.Process(context.Background(), samples)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	final, err := agg.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if final != nil {
		segs = append(segs, *final)
	}

	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1", len(segs))
	}
	if segs[0].StartMs > 50 {
		t.Errorf("segs[0].StartMs = %d, want ~0", segs[0].StartMs)
	}
	if segs[0].EndMs < 1800 {
		t.Errorf("segs[0].EndMs = %d, want close to 2000", segs[0].EndMs)
	}
}

func TestSegmentMinimumDuration(t *testing.T) {
	agg := newTestAggregator(0.9)
	samples := make([]float32, 2*16000)

	segs, _ := agg.Process(context.Background(), samples)
	final, _ := agg.Flush(context.Background())
	if final != nil {
		segs = append(segs, *final)
	}

	for _, s := range segs {
		if s.EndMs <= s.StartMs {
			t.Errorf("segment has end <= start: %+v", s)
		}
		duration := s.EndMs - s.StartMs
		minMs := int64(MinSpeechDurationSec * 1000)
		if duration < minMs-50 {
			t.Errorf("segment duration %dms below MIN_SPEECH_DURATION %dms", duration, minMs)
		}
	}
}

func TestSpeechThenSilenceEmitsAndReturnsIdle(t *testing.T) {
	speechModel := &constantProbModel{prob: 0.9}
	agg := NewAggregator(speechModel, DefaultConfig())

	speech := make([]float32, 1*16000)
	segs, err := agg.Process(context.Background(), speech)
	if err != nil {
		t.Fatalf("Process(speech): %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected no segment mid-speech, got %d", len(segs))
	}

	agg.model = &constantProbModel{prob: 0.0}
	silence := make([]float32, 2*16000)
	segs, err = agg.Process(context.Background(), silence)
	if err != nil {
		t.Fatalf("Process(silence): %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1", len(segs))
	}
	if agg.mode != Idle {
		t.Errorf("mode = %v, want Idle after silence exit", agg.mode)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	agg := newTestAggregator(0.9)
	speech := make([]float32, 16000)
	_, _ = agg.Process(context.Background(), speech)

	agg.Reset()
	state1 := append([]float32{}, agg.state...)
	mode1 := agg.mode

	agg.Reset()
	state2 := append([]float32{}, agg.state...)
	mode2 := agg.mode

	if mode1 != mode2 {
		t.Errorf("mode changed across idempotent resets: %v vs %v", mode1, mode2)
	}
	for i := range state1 {
		if state1[i] != state2[i] {
			t.Errorf("state[%d] changed across idempotent resets", i)
		}
	}
}
