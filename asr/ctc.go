package asr

import (
	"math"
	"strings"
)

// CTCDecoder greedily decodes per-frame logits from a CTC acoustic
// model into words, collapsing repeats and dropping the blank token.
type CTCDecoder struct {
	vocab   []string
	blankID int
}

// NewCTCDecoder builds a decoder over vocab, with blankID the index
// of the CTC blank token (see LoadVocab).
func NewCTCDecoder(vocab []string, blankID int) *CTCDecoder {
	return &CTCDecoder{vocab: vocab, blankID: blankID}
}

// GreedyDecode applies the standard CTC collapse rule (argmax per
// frame, skip blank, skip immediate repeats) and groups the result
// into words split on the SentencePiece word-boundary token. frameMs
// is the duration one output frame covers in the original audio.
func (d *CTCDecoder) GreedyDecode(logits [][]float32, frameMs float64) []Word {
	if len(logits) == 0 {
		return nil
	}

	var words []Word
	var current strings.Builder
	var wordStart int64 = -1
	var lastFrameTime int64
	prevToken := d.blankID

	for t, frame := range logits {
		maxIdx, maxVal := 0, frame[0]
		for i, v := range frame {
			if v > maxVal {
				maxVal, maxIdx = v, i
			}
		}

		frameTime := int64(float64(t) * frameMs)
		lastFrameTime = frameTime

		if maxIdx != d.blankID && maxIdx != prevToken && maxIdx < len(d.vocab) {
			token := d.vocab[maxIdx]

			if token == wordBoundaryToken {
				if current.Len() > 0 && wordStart >= 0 {
					words = append(words, Word{
						StartMs: wordStart,
						EndMs:   frameTime,
						Text:    current.String(),
						Confidence: softmax1(frame),
					})
					current.Reset()
				}
				wordStart = frameTime
			} else {
				if wordStart < 0 {
					wordStart = frameTime
				}
				current.WriteString(token)
			}
		}
		prevToken = maxIdx
	}

	if current.Len() > 0 && wordStart >= 0 {
		words = append(words, Word{
			StartMs:    wordStart,
			EndMs:      lastFrameTime,
			Text:       current.String(),
			Confidence: 0.9,
		})
	}

	return words
}

// WordsToSegment joins words into a single Segment with a
// space-separated transcript, the caller's unit for downstream
// assembly (spec.md §4.G).
func WordsToSegment(words []Word) Segment {
	if len(words) == 0 {
		return Segment{}
	}

	var text strings.Builder
	for i, w := range words {
		if i > 0 {
			text.WriteString(" ")
		}
		text.WriteString(w.Text)
	}

	return Segment{
		StartMs: words[0].StartMs,
		EndMs:   words[len(words)-1].EndMs,
		Text:    text.String(),
		Words:   words,
	}
}

// softmax1 returns the top post-softmax probability in logits.
func softmax1(logits []float32) float32 {
	maxVal := logits[0]
	for _, v := range logits {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum, top float32
	for _, v := range logits {
		e := float32(math.Exp(float64(v - maxVal)))
		sum += e
		if e > top {
			top = e
		}
	}
	if sum == 0 {
		return 0
	}
	return top / sum
}
