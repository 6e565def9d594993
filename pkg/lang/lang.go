// Package lang classifies sentence text into the coarse language buckets
// the rest of the pipeline branches on: Korean, English, or other.
package lang

import (
	"unicode"

	"github.com/weavegraph/weavegraph/pkg/common"
)

// Detect classifies text as Korean, English, or other. The decision is
// based on script composition: any Hangul syllable or jamo makes the text
// Korean; otherwise any Latin letter makes it English; otherwise other.
// This runs per sentence and must stay allocation-light since it is called
// once per C2 output element.
func Detect(text string) common.Lang {
	hasHangul := false
	hasLatin := false
	for _, r := range text {
		switch {
		case isHangul(r):
			hasHangul = true
		case unicode.Is(unicode.Latin, r):
			hasLatin = true
		}
	}
	switch {
	case hasHangul:
		return common.LangKorean
	case hasLatin:
		return common.LangEnglish
	default:
		return common.LangOther
	}
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}
