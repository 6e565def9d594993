// Package phrase extracts candidate noun phrases from a sentence,
// branching on the language classification produced by pkg/lang. Stop-word
// lists are process-global singletons, read-only after package init.
package phrase

import (
	"strings"
	"unicode"

	"github.com/blevesearch/go-porterstemmer"

	"github.com/weavegraph/weavegraph/pkg/common"
)

// minPhraseLen is the minimum rune length a phrase must meet to survive
// filtering, per §4.2.
const minPhraseLen = 2

// Extract returns the deduplicated set of candidate phrases for one
// sentence in the given language. The result has no I/O and no
// allocation beyond what's needed to build the output set.
func Extract(text string, l common.Lang) map[string]struct{} {
	switch l {
	case common.LangKorean:
		return extractKorean(text)
	case common.LangEnglish:
		return extractEnglish(text)
	default:
		return extractOther(text)
	}
}

// extractKorean retains contiguous runs of hangul syllables whose stem
// length exceeds 1 and whose trailing character is not a disallowed verb
// ending, after stripping a trailing particle if one is present.
func extractKorean(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		word = trimPunct(word)
		if word == "" {
			continue
		}
		stem := stripKoreanParticle(word)
		runes := []rune(stem)
		if len(runes) <= 1 {
			continue
		}
		if _, bad := koreanEndingChars[runes[len(runes)-1]]; bad {
			continue
		}
		if isEnglishStopword(strings.ToLower(stem)) {
			continue
		}
		out[stem] = struct{}{}
	}
	return out
}

func stripKoreanParticle(word string) string {
	for _, p := range koreanParticles {
		if strings.HasSuffix(word, p) && len([]rune(word)) > len([]rune(p)) {
			return strings.TrimSuffix(word, p)
		}
	}
	return word
}

// extractEnglish lowercases words, strips punctuation, stems with Porter's
// algorithm for stop-word comparison (but keeps the surface form as the
// emitted phrase), and filters stop-words and short fragments. Adjacent
// non-stop-word tokens are joined into a candidate noun chunk, matching
// the "noun-chunk extractor" contract loosely via a greedy run of content
// words.
func extractEnglish(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{})

	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		phrase := strings.Join(run, " ")
		if len([]rune(phrase)) >= minPhraseLen {
			out[phrase] = struct{}{}
		}
		run = run[:0]
	}

	for _, f := range fields {
		word := trimPunct(f)
		if word == "" {
			flush()
			continue
		}
		stem := porterstemmer.StemString(word)
		if isEnglishStopword(word) || isEnglishStopword(stem) {
			flush()
			continue
		}
		run = append(run, word)
	}
	flush()

	return out
}

// extractOther falls back to the trimmed sentence as a single token.
func extractOther(text string) map[string]struct{} {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return map[string]struct{}{}
	}
	return map[string]struct{}{trimmed: {}}
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
