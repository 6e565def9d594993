//go:build cgo

package embed

import "strings"

// wordTokenizer is a minimal whitespace tokenizer producing the
// input_ids/attention_mask/token_type_ids triple a BERT-style ONNX export
// expects, grounded on sagasu's SimpleTokenizer. It has no vocabulary file,
// so it is a placeholder for whatever real tokenizer ships with the model
// named by ONNX_MODEL_PATH; swapping it is a matter of satisfying the same
// tokenize signature.
type wordTokenizer struct{}

func (wordTokenizer) tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = 101 // [CLS]
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashWord(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
