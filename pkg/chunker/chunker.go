// Package chunker implements the recursive chunker (C7): a top-down split
// of a document's sentences by adjacent-sentence topic similarity, emitting
// a hierarchy of keyword nodes/edges and handing finalized chunks to the
// chunk graph builder (C8).
package chunker

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/logger"
	"github.com/weavegraph/weavegraph/pkg/topic"
)

// maxDepth is the depth at which recursion always terminates (§4.4): once a
// chunk reaches this depth it is either finalized as-is or flat-split,
// never grouped and recursed into further.
const maxDepth = 5

// maxGroups is the branching bound enforced by Grouping (§4.4, §8.3).
const maxGroups = 10

// minTokensToSplit implements termination flag 1: at depth < maxDepth, a
// chunk with this many tokens or fewer contributes nothing further to the
// hierarchy and is dropped.
const minTokensToSplit = 15

// finalizeMaxTokens is the flag-2/flag-3 boundary at maxDepth: chunks at or
// under this token count are finalized as a single chunk; larger ones are
// flat-split instead of finalized whole (§4.4).
const finalizeMaxTokens = 500

// AlreadyMade is the per-job set of keyword names already emitted,
// threaded explicitly through the recursion (never via closure capture,
// per §9) and normalized by stripping the trailing "*" hierarchy marker.
// Chunk-level graph building (C8) fans out across a source's finalized
// chunks concurrently, so lookups and inserts are mutex-guarded.
type AlreadyMade struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewAlreadyMade returns an empty cache.
func NewAlreadyMade() *AlreadyMade {
	return &AlreadyMade{names: make(map[string]struct{})}
}

// Contains reports whether name (after stripping "*") was already emitted.
func (a *AlreadyMade) Contains(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.names[common.BaseName(name)]
	return ok
}

// Add records name (after stripping "*") as emitted.
func (a *AlreadyMade) Add(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names[common.BaseName(name)] = struct{}{}
}

// TokenCounter exposes the per-sentence token lookup the chunker needs
// without depending on how sentences were produced.
type TokenCounter func(sentenceIndex int) int

// TFIDFScorer picks a representative keyword for a group of sentences,
// grounded on C6's TF-IDF-over-chunks scoring; ties are broken by the
// earlier-appearing candidate.
type TFIDFScorer func(group common.Chunk) string

// Result accumulates everything C7 produces for one document: the
// hierarchy nodes/edges, and the finalized chunks ready for C8.
type Result struct {
	Nodes            []common.KeywordNode
	Edges            []common.Edge
	FinalizedChunks  []FinalizedChunk
}

// FinalizedChunk pairs a chunk with the keyword under which C8 should
// attach its concept nodes.
type FinalizedChunk struct {
	Chunk         common.Chunk
	ParentKeyword string
}

// Deps bundles the dependencies the recursive step needs that are not part
// of the chunk/threshold state itself.
type Deps struct {
	Sentences    []common.Sentence
	SourceID     string
	TFIDF        TFIDFScorer
	AlreadyMade  *AlreadyMade
	TopicConfig  topic.Config
}

// Run executes C7 from depth 0 over the full sentence list.
//
// Depth-0 invariants (§4.4): fit the topic model over the whole document,
// emit the root keyword node, seed the threshold from the 25th percentile
// of the upper-triangular similarity entries, and recurse.
func Run(ctx context.Context, deps Deps) (Result, error) {
	res := Result{}

	if len(deps.Sentences) == 0 {
		return res, nil
	}

	fit, err := topic.Fit(ctx, deps.Sentences, deps.TopicConfig)
	if err != nil {
		logger.Warn("root topic fit failed, no-op result", "source_id", deps.SourceID)
		return res, nil
	}

	sim := topic.SimilarityMatrix(deps.Sentences, fit.Vectors)
	if sim.Empty() {
		return res, nil
	}

	threshold := upperTriangularPercentile(sim, deps.Sentences, 0.25)

	rootKeyword := fit.RootKeyword
	rootName := rootKeyword + "*"
	res.Nodes = append(res.Nodes, common.KeywordNode{
		Name:     rootName,
		Label:    rootName,
		SourceID: deps.SourceID,
	})
	deps.AlreadyMade.Add(rootKeyword)

	root := common.Chunk{Indices: indicesOf(deps.Sentences)}

	// depth 0 always groups and recurses unconditionally: the termination
	// classifier only applies from depth 1 onward (§4.4).
	if err := recurse(ctx, root, rootKeyword, threshold, 0, sim, deps, &res); err != nil {
		return res, err
	}

	return res, nil
}

func indicesOf(sentences []common.Sentence) []int {
	out := make([]int, len(sentences))
	for i, s := range sentences {
		out[i] = s.Index
	}
	return out
}

// flag values from the termination classifier (§4.4 table).
type flag int

const (
	flagDrop          flag = 1
	flagFinalize      flag = 2
	flagNonRecursive  flag = 3
	flagContinue      flag = -1
)

// classify implements check_termination_condition (§4.4): only called for
// depth >= 1, since depth 0 always groups and recurses unconditionally. The
// depth >= maxDepth check takes precedence over the token-count drop check,
// matching the original's evaluation order.
func classify(chunk common.Chunk, deps Deps, depth int) flag {
	tokenTotal := totalTokens(chunk, deps.Sentences)

	if depth >= maxDepth {
		if tokenTotal > finalizeMaxTokens {
			return flagNonRecursive
		}
		return flagFinalize
	}
	if tokenTotal <= minTokensToSplit {
		return flagDrop
	}
	return flagContinue
}

func totalTokens(chunk common.Chunk, sentences []common.Sentence) int {
	bySentenceIndex := make(map[int]int, len(sentences))
	for _, s := range sentences {
		bySentenceIndex[s.Index] = len(s.Tokens)
	}
	total := 0
	for _, idx := range chunk.Indices {
		total += bySentenceIndex[idx]
	}
	return total
}

// recurse implements the recursive step for chunk C with the passed
// top_keyword and threshold (§4.4).
func recurse(ctx context.Context, chunk common.Chunk, topKeyword string, threshold float64, depth int, sim *common.SimilarityMatrix, deps Deps, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth > 0 {
		switch classify(chunk, deps, depth) {
		case flagDrop:
			return nil

		case flagFinalize:
			res.FinalizedChunks = append(res.FinalizedChunks, FinalizedChunk{Chunk: chunk, ParentKeyword: topKeyword})
			return nil

		case flagNonRecursive:
			for _, sub := range flatSubChunks(chunk) {
				res.FinalizedChunks = append(res.FinalizedChunks, FinalizedChunk{Chunk: sub, ParentKeyword: topKeyword})
			}
			return nil
		}
	}

	groups := group(chunk, sim, threshold)

	nextThreshold := threshold * 1.1

	for _, g := range groups {
		keyword := deps.TFIDF(g)
		base := common.BaseName(keyword)

		if !deps.AlreadyMade.Contains(base) && base != "" {
			name := base
			res.Nodes = append(res.Nodes, common.KeywordNode{
				Name:     name,
				Label:    name,
				SourceID: deps.SourceID,
			})
			deps.AlreadyMade.Add(base)
		}

		if base != "" {
			res.Edges = append(res.Edges, common.Edge{
				Source:   common.BaseName(topKeyword),
				Target:   base,
				Relation: "hierarchy",
				SourceID: deps.SourceID,
			})
		}

		if err := recurse(ctx, g, base, nextThreshold, depth+1, sim, deps, res); err != nil {
			return err
		}
	}

	return nil
}

// flatSubChunks produces at most 5 flat sub-chunks under top_keyword for
// the maxDepth-and-still-oversized case (flag 3, §4.4): the chunk is split
// into that many contiguous, near-equal groups, preserving order, without
// generating any further keyword nodes, so the hierarchy doesn't grow past
// maxDepth.
func flatSubChunks(chunk common.Chunk) []common.Chunk {
	n := len(chunk.Indices)
	if n == 0 {
		return nil
	}
	groupCount := minInt(n, 5)

	base := n / groupCount
	rem := n % groupCount
	out := make([]common.Chunk, 0, groupCount)
	start := 0
	for i := 0; i < groupCount; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		out = append(out, common.Chunk{Indices: chunk.Indices[start:end]})
		start = end
	}
	return out
}

// group implements the adjacency-only, chain-break Grouping algorithm
// (§4.4): a left-to-right sweep that starts a new group whenever the
// adjacent similarity drops below threshold, with the n > 10 clamp to the
// 9th-smallest adjacent similarity.
func group(chunk common.Chunk, sim *common.SimilarityMatrix, threshold float64) []common.Chunk {
	indices := chunk.Indices
	n := len(indices)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []common.Chunk{{Indices: indices}}
	}

	adjacent := make([]float64, n-1)
	for i := 1; i < n; i++ {
		adjacent[i-1] = sim.Get(indices[i], indices[i-1])
	}

	effectiveThreshold := threshold
	if n > maxGroups {
		sorted := append([]float64{}, adjacent...)
		sort.Float64s(sorted)
		ninthSmallest := sorted[minInt(8, len(sorted)-1)]
		if ninthSmallest < effectiveThreshold {
			effectiveThreshold = ninthSmallest
		}
	}

	var groups []common.Chunk
	start := 0
	for i := 1; i < n; i++ {
		if adjacent[i-1] < effectiveThreshold {
			groups = append(groups, common.Chunk{Indices: indices[start:i]})
			start = i
		}
	}
	groups = append(groups, common.Chunk{Indices: indices[start:n]})

	return groups
}

// upperTriangularPercentile returns the requested percentile of the
// upper-triangular entries (excluding the diagonal) of sim, over the given
// sentences' indices.
func upperTriangularPercentile(sim *common.SimilarityMatrix, sentences []common.Sentence, percentile float64) float64 {
	var values []float64
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			values = append(values, sim.Get(sentences[i].Index, sentences[j].Index))
		}
	}
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	pos := percentile * float64(len(values)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(values) {
		return values[lo]
	}
	frac := pos - float64(lo)
	return values[lo]*(1-frac) + values[hi]*frac
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// DefaultTFIDFScorer returns a TFIDFScorer that picks the most frequent,
// earliest-appearing token in the group's sentences (tokens first seen in
// the same sentence fall back to lexical order) as a stand-in keyword
// when no dedicated C6 scorer is wired. Production callers should supply a
// scorer.ScoreAll-backed TFIDFScorer instead; this exists for chunker tests
// and as a degenerate fallback.
func DefaultTFIDFScorer(sentences []common.Sentence) TFIDFScorer {
	bySentenceIndex := make(map[int]common.Sentence, len(sentences))
	for _, s := range sentences {
		bySentenceIndex[s.Index] = s
	}

	return func(group common.Chunk) string {
		counts := make(map[string]int)
		firstSeen := make(map[string]int)
		for _, idx := range group.Indices {
			s, ok := bySentenceIndex[idx]
			if !ok {
				continue
			}
			for t := range s.Tokens {
				counts[t]++
				if _, seen := firstSeen[t]; !seen {
					firstSeen[t] = idx
				}
			}
		}
		best := ""
		bestCount := -1
		bestFirst := int(^uint(0) >> 1)
		for t, c := range counts {
			if c > bestCount || (c == bestCount && firstSeen[t] < bestFirst) ||
				(c == bestCount && firstSeen[t] == bestFirst && t < best) {
				best, bestCount, bestFirst = t, c, firstSeen[t]
			}
		}
		return strings.TrimSpace(best)
	}
}
