package asr

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/zhengyishen0/voca-app/errs"
)

// WhisperConfig carries the decoder-side configuration the original
// pipeline's WhisperConfig.Companion.load reads from a HF-style
// config.json/generation_config.json pair: special token ids and the
// language/task vocabularies used to build the decoder prompt.
type WhisperConfig struct {
	NumMelBins          int
	MaxSourcePositions   int
	MaxLength            int
	VocabSize            int
	DecoderStartTokenID  int
	EOSTokenID           int
	NoTimestampsTokenID  int
	LangToID             map[string]int
	TaskToID             map[string]int
	SuppressTokens       map[int]bool
}

// WhisperTokenizer decodes a byte-level BPE token id sequence (the
// GPT-2/Whisper tokenizer family) back into text. Built once from a
// vocab.json mapping id -> token, following WhisperTokenizer.Companion.load.
type WhisperTokenizer struct {
	idToToken map[int]string
}

// LoadWhisperTokenizer reads a vocab.json (token -> id, standard HF
// tokenizer export) and inverts it for decode.
func LoadWhisperTokenizer(vocabPath string) (*WhisperTokenizer, error) {
	data, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, &errs.LibraryIO{Detail: "whisper vocab: " + vocabPath, Cause: err}
	}

	var tokenToID map[string]int
	if err := json.Unmarshal(data, &tokenToID); err != nil {
		return nil, &errs.LibraryCorrupt{Detail: "whisper vocab: " + vocabPath, Cause: err}
	}

	idToToken := make(map[int]string, len(tokenToID))
	for tok, id := range tokenToID {
		idToToken[id] = tok
	}

	return &WhisperTokenizer{idToToken: idToToken}, nil
}

// gpt2ByteDecoder maps the printable-unicode stand-ins GPT-2's
// byte-level BPE uses back to raw bytes. Built once, reused by Decode.
var gpt2ByteDecoder = buildGPT2ByteDecoder()

func buildGPT2ByteDecoder() map[rune]byte {
	var bs []int
	for _, r := range [][2]int{{'!', '~'}, {0xA1, 0xAC}, {0xAE, 0xFF}} {
		for b := r[0]; b <= r[1]; b++ {
			bs = append(bs, b)
		}
	}
	cs := append([]int{}, bs...)
	n := 0
	decoder := make(map[rune]byte)
	for _, b := range bs {
		decoder[rune(b)] = byte(b)
	}
	for b := 0; b < 256; b++ {
		found := false
		for _, c := range cs {
			if c == b {
				found = true
				break
			}
		}
		if !found {
			decoder[rune(256+n)] = byte(b)
			n++
		}
	}
	return decoder
}

// Decode joins tokens (skipping special/suppressed ids per cfg) and
// reverses the byte-level BPE mapping to recover UTF-8 text.
func (w *WhisperTokenizer) Decode(tokens []int, cfg *WhisperConfig) string {
	var raw strings.Builder
	for _, id := range tokens {
		if cfg != nil {
			if id == cfg.EOSTokenID || id == cfg.DecoderStartTokenID || id == cfg.NoTimestampsTokenID {
				continue
			}
			if cfg.SuppressTokens[id] {
				continue
			}
		}
		tok, ok := w.idToToken[id]
		if !ok {
			continue
		}
		raw.WriteString(tok)
	}

	var out []byte
	for _, r := range raw.String() {
		if b, ok := gpt2ByteDecoder[r]; ok {
			out = append(out, b)
		}
	}

	return string(out)
}
