package adapter

import (
	"context"
	"os"
	"testing"

	"github.com/zhengyishen0/voca-app/feature"
)

func TestONNXVADModel(t *testing.T) {
	modelPath := os.Getenv("VOCA_VAD_MODEL_PATH")
	if modelPath == "" {
		t.Skip("VOCA_VAD_MODEL_PATH not set, skipping ONNX VAD test")
	}

	vad, err := NewONNXVADModel(ONNXVADConfig{ModelPath: modelPath, SampleRate: 16000})
	if err != nil {
		t.Fatalf("NewONNXVADModel: %v", err)
	}
	defer vad.Close()

	state := make([]float32, vad.StateSize())
	input := make([]float32, 576) // context(64) + chunk(512)
	res, err := vad.Run(context.Background(), input, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Probability < 0 || res.Probability > 1 {
		t.Errorf("probability out of range: %v", res.Probability)
	}
}

func TestONNXASRModel(t *testing.T) {
	modelPath := os.Getenv("VOCA_ASR_MODEL_PATH")
	if modelPath == "" {
		t.Skip("VOCA_ASR_MODEL_PATH not set, skipping ONNX ASR test")
	}

	asr, err := NewONNXASRModel(ONNXASRConfig{ModelPath: modelPath, VocabSize: 5000})
	if err != nil {
		t.Fatalf("NewONNXASRModel: %v", err)
	}
	defer asr.Close()

	mel := make([][]float32, feature.FixedFrames)
	for i := range mel {
		mel[i] = make([]float32, feature.FeatureDim)
	}
	logits, err := asr.Run(context.Background(), mel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(logits) == 0 {
		t.Error("expected non-empty logits")
	}
}

func TestONNXSpeakerModel(t *testing.T) {
	modelPath := os.Getenv("VOCA_SPEAKER_MODEL_PATH")
	if modelPath == "" {
		t.Skip("VOCA_SPEAKER_MODEL_PATH not set, skipping ONNX speaker test")
	}

	sp, err := NewONNXSpeakerModel(ONNXSpeakerConfig{
		ModelPath:    modelPath,
		EmbeddingDim: feature.XVectorDim,
		Mel:          feature.DefaultMelConfig(),
	})
	if err != nil {
		t.Fatalf("NewONNXSpeakerModel: %v", err)
	}
	defer sp.Close()

	samples := make([]float32, feature.SampleRate*2)
	emb, err := sp.Embed(context.Background(), samples)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) == 0 {
		t.Error("expected non-empty embedding")
	}
}
