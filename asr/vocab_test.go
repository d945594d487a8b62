package asr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabFindsBlank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	content := "<blk> 0\nhello 1\nworld 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	vocab, blankID, err := LoadVocab(path)
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	if len(vocab) != 3 {
		t.Fatalf("len(vocab) = %d, want 3", len(vocab))
	}
	if blankID != 0 {
		t.Errorf("blankID = %d, want 0", blankID)
	}
}

func TestLoadVocabDefaultsBlankToLast(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	vocab, blankID, err := LoadVocab(path)
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	if blankID != len(vocab)-1 {
		t.Errorf("blankID = %d, want %d", blankID, len(vocab)-1)
	}
}

func TestLoadVocabMissingFile(t *testing.T) {
	_, _, err := LoadVocab("/nonexistent/vocab.txt")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
