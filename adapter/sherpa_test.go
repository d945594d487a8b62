package adapter

import (
	"context"
	"os"
	"testing"
)

func TestSherpaVADModel(t *testing.T) {
	modelPath := os.Getenv("VOCA_SHERPA_VAD_MODEL_PATH")
	if modelPath == "" {
		t.Skip("VOCA_SHERPA_VAD_MODEL_PATH not set, skipping sherpa VAD test")
	}

	vad, err := NewSherpaVADModel(SherpaVADConfig{
		ModelPath:  modelPath,
		SampleRate: 16000,
		Threshold:  0.5,
		NumThreads: 1,
		Provider:   "cpu",
	})
	if err != nil {
		t.Fatalf("NewSherpaVADModel: %v", err)
	}
	defer vad.Close()

	input := make([]float32, 512)
	res, err := vad.Run(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Probability != 0 && res.Probability != 1 {
		t.Errorf("expected binary probability from sherpa VAD, got %v", res.Probability)
	}
}

func TestSherpaSpeakerModel(t *testing.T) {
	modelPath := os.Getenv("VOCA_SHERPA_SPEAKER_MODEL_PATH")
	if modelPath == "" {
		t.Skip("VOCA_SHERPA_SPEAKER_MODEL_PATH not set, skipping sherpa speaker test")
	}

	sp, err := NewSherpaSpeakerModel(SherpaSpeakerConfig{
		ModelPath:  modelPath,
		NumThreads: 1,
		Provider:   "cpu",
	})
	if err != nil {
		t.Fatalf("NewSherpaSpeakerModel: %v", err)
	}
	defer sp.Close()

	samples := make([]float32, 16000*2)
	emb, err := sp.Embed(context.Background(), samples)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != sp.EmbeddingDim() {
		t.Errorf("len(emb) = %d, want %d", len(emb), sp.EmbeddingDim())
	}
}
