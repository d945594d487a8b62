package asr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWhisperTokenizerDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.json")

	// "Hi" encoded as GPT-2 byte-level BPE: 'H'=0x48, 'i'=0x69, both in
	// the printable-ASCII range so they map to themselves.
	vocab := map[string]int{
		"H": 10,
		"i": 11,
		"<|endoftext|>": 50256,
	}
	data, err := json.Marshal(vocab)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tok, err := LoadWhisperTokenizer(path)
	if err != nil {
		t.Fatalf("LoadWhisperTokenizer: %v", err)
	}

	cfg := &WhisperConfig{EOSTokenID: 50256}
	got := tok.Decode([]int{10, 11, 50256}, cfg)
	if got != "Hi" {
		t.Errorf("Decode = %q, want %q", got, "Hi")
	}
}

func TestWhisperTokenizerMissingFile(t *testing.T) {
	_, err := LoadWhisperTokenizer("/nonexistent/vocab.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
