package asr

import "testing"

func frame(vocabSize, hot int) []float32 {
	f := make([]float32, vocabSize)
	f[hot] = 5.0
	return f
}

func TestGreedyDecodeCollapsesRepeatsAndBlanks(t *testing.T) {
	// vocab: 0=<blk>, 1="h", 2="i", 3="▁"
	vocab := []string{"<blk>", "h", "i", wordBoundaryToken}
	decoder := NewCTCDecoder(vocab, 0)

	logits := [][]float32{
		frame(4, 1), // h
		frame(4, 1), // h (repeat, collapsed)
		frame(4, 0), // blank
		frame(4, 2), // i
		frame(4, 3), // word boundary
	}

	words := decoder.GreedyDecode(logits, 40)
	if len(words) != 1 {
		t.Fatalf("len(words) = %d, want 1", len(words))
	}
	if words[0].Text != "hi" {
		t.Errorf("words[0].Text = %q, want %q", words[0].Text, "hi")
	}
}

func TestGreedyDecodeEmpty(t *testing.T) {
	decoder := NewCTCDecoder([]string{"<blk>"}, 0)
	if words := decoder.GreedyDecode(nil, 40); words != nil {
		t.Errorf("expected nil, got %v", words)
	}
}

func TestWordsToSegment(t *testing.T) {
	words := []Word{
		{StartMs: 0, EndMs: 100, Text: "hello"},
		{StartMs: 100, EndMs: 250, Text: "world"},
	}
	seg := WordsToSegment(words)
	if seg.Text != "hello world" {
		t.Errorf("seg.Text = %q, want %q", seg.Text, "hello world")
	}
	if seg.StartMs != 0 || seg.EndMs != 250 {
		t.Errorf("seg span = [%d,%d], want [0,250]", seg.StartMs, seg.EndMs)
	}
}

func TestIsSpecialToken(t *testing.T) {
	if !IsSpecialToken("<|en|>") {
		t.Error("expected <|en|> to be special")
	}
	if IsSpecialToken("hello") {
		t.Error("expected ordinary token to not be special")
	}
}

func TestDecodeSpecialTokens(t *testing.T) {
	tokens := []string{"<|en|>", "<|transcribe|>", "hel", "lo"}
	special, rest := DecodeSpecialTokens(tokens)
	if len(special) != 2 {
		t.Fatalf("len(special) = %d, want 2", len(special))
	}
	if len(rest) != 2 || rest[0] != "hel" {
		t.Errorf("rest = %v, want [hel lo]", rest)
	}
}
