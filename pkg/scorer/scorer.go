// Package scorer computes per-phrase importance scores (sentence-count,
// length, and TF-IDF over a document's chunks) and groups near-duplicate
// phrases by embedding cosine similarity (C6).
package scorer

import (
	"context"
	"math"
	"sort"

	"github.com/weavegraph/weavegraph/pkg/embed"
)

// GroupThreshold is the cosine-similarity cutoff at or above which two phrases
// are considered near-duplicates (§4.5).
const GroupThreshold = 0.92

// Weights controls the relative contribution of each score component.
type Weights struct {
	SentenceCount float64
	Length        float64
	TFIDF         float64
}

// DefaultWeights returns the weighting used throughout the pipeline.
func DefaultWeights() Weights {
	return Weights{SentenceCount: 1.0, Length: 0.1, TFIDF: 2.0}
}

// Corpus is the TF-IDF universe: one "document" per chunk, used to score
// phrases within a single chunk against the document's chunk collection.
type Corpus struct {
	// docFreq[phrase] = number of chunks containing phrase at least once.
	docFreq map[string]int
	numDocs int
}

// NewCorpus builds a Corpus from the phrase sets of every chunk in a
// document (one set per chunk, deduplicated).
func NewCorpus(chunkPhraseSets []map[string]struct{}) *Corpus {
	c := &Corpus{docFreq: make(map[string]int), numDocs: len(chunkPhraseSets)}
	for _, set := range chunkPhraseSets {
		for phrase := range set {
			c.docFreq[phrase]++
		}
	}
	return c
}

// idf returns the inverse document frequency of phrase within the corpus.
func (c *Corpus) idf(phrase string) float64 {
	if c == nil || c.numDocs == 0 {
		return 0
	}
	df := c.docFreq[phrase]
	if df == 0 {
		df = 1
	}
	return math.Log(float64(c.numDocs)/float64(df)) + 1
}

// PhraseInfo is one entry of the per-chunk phrase_info map (§4.5 step 1):
// the phrase, the sentence indices in this chunk that contain it, and its
// lazily computed embedding.
type PhraseInfo struct {
	Phrase          string
	SentenceIndices []int
	Embedding       []float32
	Score           float64
}

// BuildPhraseInfo constructs phrase_info over the sentences of one chunk:
// phrase -> set of sentence indices, per §4.5 step 1.
func BuildPhraseInfo(sentenceIndices []int, phrasesPerSentence map[int]map[string]struct{}) map[string][]int {
	info := make(map[string][]int)
	for _, idx := range sentenceIndices {
		for phrase := range phrasesPerSentence[idx] {
			info[phrase] = append(info[phrase], idx)
		}
	}
	for phrase := range info {
		sort.Ints(info[phrase])
	}
	return info
}

// Score computes the weighted importance score of a phrase within a chunk
// (§4.5 step 2): sentence-count term frequency, phrase length, and
// document-wide TF-IDF.
func Score(phrase string, sentenceIndices []int, corpus *Corpus, w Weights) float64 {
	sentenceCount := float64(len(sentenceIndices))
	length := float64(len([]rune(phrase)))
	tf := sentenceCount
	idf := corpus.idf(phrase)
	tfidf := tf * idf
	return w.SentenceCount*sentenceCount + w.Length*length + w.TFIDF*tfidf
}

// Embedder is the subset of embed.Embedder that scoring needs, kept
// narrow so callers can supply a per-job embedder without importing the
// whole embed package surface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ScoreAll scores every phrase in phraseInfo and lazily fills in its
// embedding via embedder, returning entries sorted by descending score
// (ties broken by the phrase's first sentence index, per the earlier-wins
// tie-break contract in §4.4, reused here for §4.5's iteration order).
func ScoreAll(ctx context.Context, phraseInfo map[string][]int, corpus *Corpus, embedder Embedder, w Weights) ([]PhraseInfo, error) {
	out := make([]PhraseInfo, 0, len(phraseInfo))
	for phrase, indices := range phraseInfo {
		vec, err := embedder.Embed(ctx, phrase)
		if err != nil {
			return nil, err
		}
		out = append(out, PhraseInfo{
			Phrase:          phrase,
			SentenceIndices: indices,
			Embedding:       vec,
			Score:           Score(phrase, indices, corpus, w),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return firstIndex(out[i]) < firstIndex(out[j])
	})

	return out, nil
}

func firstIndex(p PhraseInfo) int {
	if len(p.SentenceIndices) == 0 {
		return 0
	}
	return p.SentenceIndices[0]
}

// Group is a near-duplicate group: Representative is the higher-scored
// phrase; Members holds the rest, in descending score order.
type Group struct {
	Representative PhraseInfo
	Members        []PhraseInfo
}

// GroupNearDuplicates groups phrases whose embedding cosine similarity is
// >= GroupThreshold (§4.5 step 3). Input must already be sorted by
// descending score (as ScoreAll returns); the first, highest-scored member
// of each cluster becomes the representative.
func GroupNearDuplicates(phrases []PhraseInfo) []Group {
	assigned := make([]bool, len(phrases))
	var groups []Group

	for i := range phrases {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := Group{Representative: phrases[i]}
		for j := i + 1; j < len(phrases); j++ {
			if assigned[j] {
				continue
			}
			if embed.CosineFloat32(phrases[i].Embedding, phrases[j].Embedding) >= GroupThreshold {
				assigned[j] = true
				group.Members = append(group.Members, phrases[j])
			}
		}
		groups = append(groups, group)
	}

	return groups
}
