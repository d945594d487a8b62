package asr

import (
	"bufio"
	"os"
	"strings"

	"github.com/zhengyishen0/voca-app/errs"
)

// LoadVocab reads a one-token-per-line vocabulary file (SentencePiece
// "vocab.txt" style: first whitespace-separated field is the token,
// any remaining fields — usually a logit score — are ignored). Returns
// the token list and the index of the CTC blank token.
func LoadVocab(path string) ([]string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, &errs.LibraryIO{Detail: "vocab: " + path, Cause: err}
	}
	defer file.Close()

	var vocab []string
	blankID := -1
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		token := fields[0]
		vocab = append(vocab, token)
		if isBlankToken(token) {
			blankID = len(vocab) - 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, &errs.LibraryIO{Detail: "vocab scan: " + path, Cause: err}
	}

	if blankID == -1 {
		blankID = len(vocab) - 1
	}

	return vocab, blankID, nil
}

func isBlankToken(token string) bool {
	switch token {
	case "<blk>", "<blank>", "[blank]":
		return true
	default:
		return false
	}
}

// wordBoundaryToken is SentencePiece's meta-space marker, standing
// alone as a token to mean "word boundary here".
const wordBoundaryToken = "▁"

// Special-token families restored from the original pipeline's
// TokenMappings (see SPEC_FULL.md — SUPPLEMENTED FEATURES). These are
// SenseVoice/Whisper-style event/emotion/language/task markers that a
// vocabulary built for multilingual multitask ASR carries alongside
// ordinary subword tokens.
var (
	langTokens = map[string]bool{
		"<|zh|>": true, "<|en|>": true, "<|ru|>": true, "<|ja|>": true, "<|ko|>": true,
	}
	taskTokens = map[string]bool{
		"<|transcribe|>": true, "<|translate|>": true,
	}
	eventTokens = map[string]bool{
		"<|Speech|>": true, "<|BGM|>": true, "<|Applause|>": true, "<|Laughter|>": true,
	}
	emotionTokens = map[string]bool{
		"<|HAPPY|>": true, "<|SAD|>": true, "<|ANGRY|>": true, "<|NEUTRAL|>": true,
	}
)

// IsSpecialToken reports whether token is a language, task, event, or
// emotion marker rather than ordinary vocabulary — a predicate
// companion to DecodeSpecialTokens for callers that only need to
// filter a raw token stream.
func IsSpecialToken(token string) bool {
	return langTokens[token] || taskTokens[token] || eventTokens[token] || emotionTokens[token]
}

// DecodeSpecialTokens splits a raw decoded token sequence into the
// leading run of special (language/task/event/emotion) tokens and the
// remaining ordinary tokens that make up the transcript text.
func DecodeSpecialTokens(tokens []string) (special []string, rest []string) {
	i := 0
	for i < len(tokens) && IsSpecialToken(tokens[i]) {
		special = append(special, tokens[i])
		i++
	}
	return special, tokens[i:]
}
