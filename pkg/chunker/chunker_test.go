package chunker

import (
	"fmt"
	"testing"

	"github.com/weavegraph/weavegraph/pkg/common"
)

func buildMatrix(indices []int, values map[[2]int]float64) *common.SimilarityMatrix {
	m := common.NewSimilarityMatrix(indices)
	for pair, v := range values {
		m.Set(pair[0], pair[1], v)
	}
	return m
}

func TestGroup_ChainBreak(t *testing.T) {
	t.Parallel()

	chunk := common.Chunk{Indices: []int{0, 1, 2, 3}}
	sim := buildMatrix([]int{0, 1, 2, 3}, map[[2]int]float64{
		{1, 0}: 0.9,
		{2, 1}: 0.1,
		{3, 2}: 0.9,
	})

	groups := group(chunk, sim, 0.5)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	if groups[0].Indices[0] != 0 || groups[0].Indices[len(groups[0].Indices)-1] != 1 {
		t.Fatalf("unexpected first group: %v", groups[0])
	}
	if groups[1].Indices[0] != 2 {
		t.Fatalf("unexpected second group: %v", groups[1])
	}
}

func TestGroup_BoundedAtTenForLargeChunks(t *testing.T) {
	t.Parallel()

	n := 15
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	values := make(map[[2]int]float64)
	for i := 1; i < n; i++ {
		// make every adjacency just above a very low threshold so without
		// the n>10 clamp there would be exactly 1 group.
		values[[2]int{i, i - 1}] = 0.05 + float64(i%3)*0.01
	}
	sim := buildMatrix(indices, values)

	groups := group(common.Chunk{Indices: indices}, sim, 0.01)
	if len(groups) > maxGroups {
		t.Fatalf("expected at most %d groups, got %d", maxGroups, len(groups))
	}
}

func TestGroup_PreservesOrderAndPartitioning(t *testing.T) {
	t.Parallel()

	chunk := common.Chunk{Indices: []int{5, 6, 7, 8, 9}}
	sim := buildMatrix([]int{5, 6, 7, 8, 9}, map[[2]int]float64{
		{6, 5}: 0.9,
		{7, 6}: 0.9,
		{8, 7}: 0.1,
		{9, 8}: 0.9,
	})

	groups := group(chunk, sim, 0.5)

	seen := make(map[int]bool)
	var flattened []int
	for _, g := range groups {
		for _, idx := range g.Indices {
			if seen[idx] {
				t.Fatalf("index %d appeared in more than one group", idx)
			}
			seen[idx] = true
			flattened = append(flattened, idx)
		}
	}
	for i, idx := range flattened {
		if idx != chunk.Indices[i] {
			t.Fatalf("order not preserved: got %v want %v", flattened, chunk.Indices)
		}
	}
}

func TestAlreadyMade_NormalizesStar(t *testing.T) {
	t.Parallel()

	a := NewAlreadyMade()
	a.Add("quantum*")
	if !a.Contains("quantum") {
		t.Fatalf("expected quantum to be marked already made")
	}
	if !a.Contains("quantum*") {
		t.Fatalf("expected lookup with star to normalize")
	}
}

func TestClassify_DropsShortChunks(t *testing.T) {
	t.Parallel()

	sentences := []common.Sentence{
		common.NewSentence(0, "a", common.LangEnglish),
		common.NewSentence(1, "b", common.LangEnglish),
	}
	deps := Deps{Sentences: sentences}
	chunk := common.Chunk{Indices: []int{0, 1}}

	if got := classify(chunk, deps, 1); got != flagDrop {
		t.Fatalf("expected flagDrop for tiny chunk, got %v", got)
	}
}

func bigSentence(idx int, tokenCount int) common.Sentence {
	s := common.NewSentence(idx, "", common.LangEnglish)
	for i := 0; i < tokenCount; i++ {
		s.Tokens[fmt.Sprintf("w%d", i)] = struct{}{}
	}
	return s
}

func TestClassify_MaxDepthFinalizesSmallChunks(t *testing.T) {
	t.Parallel()

	sentences := []common.Sentence{bigSentence(0, 30)}
	deps := Deps{Sentences: sentences}
	chunk := common.Chunk{Indices: []int{0}}

	if got := classify(chunk, deps, maxDepth); got != flagFinalize {
		t.Fatalf("expected flagFinalize at maxDepth for small chunk, got %v", got)
	}
}

func TestClassify_MaxDepthSplitsOversizedChunks(t *testing.T) {
	t.Parallel()

	sentences := []common.Sentence{bigSentence(0, 600)}
	deps := Deps{Sentences: sentences}
	chunk := common.Chunk{Indices: []int{0}}

	if got := classify(chunk, deps, maxDepth); got != flagNonRecursive {
		t.Fatalf("expected flagNonRecursive at maxDepth for oversized chunk, got %v", got)
	}
}

func TestClassify_MaxDepthOverridesDrop(t *testing.T) {
	t.Parallel()

	// A tiny chunk that would be dropped below maxDepth is instead
	// finalized once depth reaches maxDepth, matching the original's
	// evaluation order (depth check runs after, and wins).
	sentences := []common.Sentence{bigSentence(0, 2)}
	deps := Deps{Sentences: sentences}
	chunk := common.Chunk{Indices: []int{0}}

	if got := classify(chunk, deps, maxDepth); got != flagFinalize {
		t.Fatalf("expected flagFinalize to override drop at maxDepth, got %v", got)
	}
}

func TestFlatSubChunks_CapsAtFiveGroups(t *testing.T) {
	t.Parallel()

	chunk := common.Chunk{Indices: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	groups := flatSubChunks(chunk)
	if len(groups) != 5 {
		t.Fatalf("expected 5 groups, got %d: %v", len(groups), groups)
	}
	var flattened []int
	for _, g := range groups {
		flattened = append(flattened, g.Indices...)
	}
	for i, idx := range flattened {
		if idx != chunk.Indices[i] {
			t.Fatalf("order not preserved: got %v want %v", flattened, chunk.Indices)
		}
	}
}
