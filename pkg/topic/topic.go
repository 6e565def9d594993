// Package topic fits a small latent topic model over a chunk's tokenized
// sentences and derives the per-sentence topic-distribution vectors and
// similarity matrix C7 needs to decide where to split (C5 + part of C4).
//
// No topic-modelling library is grounded anywhere in the retrieval pack
// (the corpus reaches for LLM calls where the original system used
// statistical NLP); this package is therefore a from-scratch, deterministic
// collapsed-Gibbs-sampling LDA, justified as a stdlib-only exception in the
// project's grounding ledger.
package topic

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/embed"
	"github.com/weavegraph/weavegraph/pkg/logger"
)

// Config holds the fixed hyperparameters mandated by the contract (§4.3,
// §9): a deterministic seed so fits are reproducible across runs.
type Config struct {
	Topics       int
	Passes       int
	Iterations   int
	Seed         int64
	FitTimeout   time.Duration
	Alpha        float64
	Beta         float64
}

// DefaultConfig returns the hyperparameters the pipeline contract fixes.
func DefaultConfig() Config {
	return Config{
		Topics:     5,
		Passes:     20,
		Iterations: 400,
		Seed:       1337,
		FitTimeout: 60 * time.Second,
		Alpha:      0.1,
		Beta:       0.01,
	}
}

// Result is the output of Fit: the root-topic keyword and a per-sentence
// dense topic-probability vector, indexed in the same order as the input
// sentences.
type Result struct {
	RootKeyword string
	Vectors     map[int][]float64 // sentence index -> K-vector
}

// ErrFit is returned when the model could not be fit (empty vocabulary or
// degenerate corpus); callers must treat the chunk as terminal per §4.3.
type ErrFit struct {
	Reason string
}

func (e *ErrFit) Error() string { return "topic: fit failure: " + e.Reason }

// Fit builds a dictionary and bag-of-words corpus over the given sentences,
// fits a K-topic model, and returns the per-sentence topic vectors plus the
// root-topic keyword (highest-weight term of topic 0, ties broken by
// smallest sentence index of first occurrence). On fit failure it returns
// ErrFit; the caller must fall back to an empty similarity matrix.
func Fit(ctx context.Context, sentences []common.Sentence, cfg Config) (Result, error) {
	vocab, docs := buildCorpus(sentences)
	if len(vocab) == 0 || len(docs) == 0 {
		return Result{}, &ErrFit{Reason: "empty vocabulary"}
	}

	k := cfg.Topics
	if k <= 0 {
		k = 5
	}

	ctx, cancel := context.WithTimeout(ctx, fitTimeout(cfg))
	defer cancel()

	model := newLDA(vocab, docs, k, cfg)

	done := make(chan struct{})
	go func() {
		model.run()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return Result{}, &ErrFit{Reason: "fit timeout exceeded"}
	case <-done:
	}

	vectors := make(map[int][]float64, len(sentences))
	for i, s := range sentences {
		vectors[s.Index] = model.topicDistribution(i)
	}

	root := rootKeyword(model, sentences, vocab)

	return Result{RootKeyword: root, Vectors: vectors}, nil
}

func fitTimeout(cfg Config) time.Duration {
	if cfg.FitTimeout <= 0 {
		return 60 * time.Second
	}
	return cfg.FitTimeout
}

// SimilarityMatrix computes the pairwise cosine similarity of the
// per-sentence topic vectors returned by Fit, producing the SimilarityMatrix
// C7 uses to decide where to split.
func SimilarityMatrix(sentences []common.Sentence, vectors map[int][]float64) *common.SimilarityMatrix {
	indices := make([]int, len(sentences))
	for i, s := range sentences {
		indices[i] = s.Index
	}
	m := common.NewSimilarityMatrix(indices)
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			sim := embed.CosineFloat64(vectors[indices[i]], vectors[indices[j]])
			m.Set(indices[i], indices[j], sim)
		}
	}
	return m
}

func buildCorpus(sentences []common.Sentence) ([]string, [][]int) {
	index := make(map[string]int)
	var vocab []string

	docs := make([][]int, 0, len(sentences))
	for _, s := range sentences {
		var doc []int
		tokens := s.TokenSlice()
		sort.Strings(tokens)
		for _, t := range tokens {
			id, ok := index[t]
			if !ok {
				id = len(vocab)
				index[t] = id
				vocab = append(vocab, t)
			}
			doc = append(doc, id)
		}
		docs = append(docs, doc)
	}

	nonEmpty := false
	for _, d := range docs {
		if len(d) > 0 {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return nil, nil
	}

	return vocab, docs
}

// lda is a minimal collapsed-Gibbs-sampling latent Dirichlet allocation
// model, deterministic given its seed.
type lda struct {
	vocab    []string
	docs     [][]int
	k        int
	alpha    float64
	beta     float64
	passes   int
	iters    int
	rng      *rand.Rand
	topics   [][]int // per doc, per token position: assigned topic
	ndk      [][]int // doc x topic counts
	nkw      [][]int // topic x word counts
	nk       []int   // topic totals
}

func newLDA(vocab []string, docs [][]int, k int, cfg Config) *lda {
	m := &lda{
		vocab:  vocab,
		docs:   docs,
		k:      k,
		alpha:  cfg.Alpha,
		beta:   cfg.Beta,
		passes: maxInt(cfg.Passes, 1),
		iters:  maxInt(cfg.Iterations, 1),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
	if m.alpha <= 0 {
		m.alpha = 0.1
	}
	if m.beta <= 0 {
		m.beta = 0.01
	}
	m.init()
	return m
}

func (m *lda) init() {
	m.topics = make([][]int, len(m.docs))
	m.ndk = make([][]int, len(m.docs))
	m.nkw = make([][]int, m.k)
	m.nk = make([]int, m.k)

	for t := 0; t < m.k; t++ {
		m.nkw[t] = make([]int, len(m.vocab))
	}

	for d, doc := range m.docs {
		m.ndk[d] = make([]int, m.k)
		m.topics[d] = make([]int, len(doc))
		for i, w := range doc {
			t := m.rng.Intn(m.k)
			m.topics[d][i] = t
			m.ndk[d][t]++
			m.nkw[t][w]++
			m.nk[t]++
		}
	}
}

// run performs min(cfg.passes, 50) Gibbs sweeps, each resampling every
// token of the corpus once. The iterations setting (m.iters) is not
// consulted by the sampler.
func (m *lda) run() {
	sweeps := minInt(m.passes, 50)
	for s := 0; s < sweeps; s++ {
		for d, doc := range m.docs {
			for i, w := range doc {
				m.resample(d, i, w)
			}
		}
	}
}

func (m *lda) resample(d, i, w int) {
	old := m.topics[d][i]
	m.ndk[d][old]--
	m.nkw[old][w]--
	m.nk[old]--

	weights := make([]float64, m.k)
	var total float64
	vocabSize := float64(len(m.vocab))
	for t := 0; t < m.k; t++ {
		p := (float64(m.ndk[d][t]) + m.alpha) *
			(float64(m.nkw[t][w]) + m.beta) /
			(float64(m.nk[t]) + m.beta*vocabSize)
		weights[t] = p
		total += p
	}

	chosen := old
	if total > 0 {
		r := m.rng.Float64() * total
		var cum float64
		for t := 0; t < m.k; t++ {
			cum += weights[t]
			if r <= cum {
				chosen = t
				break
			}
		}
	}

	m.topics[d][i] = chosen
	m.ndk[d][chosen]++
	m.nkw[chosen][w]++
	m.nk[chosen]++
}

// topicDistribution returns the dense, zero-filled K-vector of topic
// probabilities for document d.
func (m *lda) topicDistribution(d int) []float64 {
	out := make([]float64, m.k)
	total := 0
	for t := 0; t < m.k; t++ {
		total += m.ndk[d][t]
	}
	if total == 0 {
		return out
	}
	for t := 0; t < m.k; t++ {
		out[t] = float64(m.ndk[d][t]) / float64(total)
	}
	return out
}

// rootKeyword returns the single highest-weight term of topic 0, ties
// broken by the smallest sentence index at which the term first occurs.
func rootKeyword(m *lda, sentences []common.Sentence, vocab []string) string {
	if m.k == 0 || len(vocab) == 0 {
		return ""
	}

	firstOccurrence := make(map[int]int)
	for d, doc := range m.docs {
		idx := sentences[d].Index
		for _, w := range doc {
			if _, seen := firstOccurrence[w]; !seen {
				firstOccurrence[w] = idx
			}
		}
	}

	type candidate struct {
		word   int
		weight int
		first  int
	}
	var candidates []candidate
	for w := 0; w < len(vocab); w++ {
		weight := m.nkw[0][w]
		if weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{word: w, weight: weight, first: firstOccurrence[w]})
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].first < candidates[j].first
	})

	best := candidates[0]
	logger.Debug("topic model fit complete", "root_keyword", vocab[best.word])
	return vocab[best.word]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
