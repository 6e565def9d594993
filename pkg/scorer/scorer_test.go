package scorer

import (
	"context"
	"testing"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestBuildPhraseInfo(t *testing.T) {
	t.Parallel()

	phrasesPerSentence := map[int]map[string]struct{}{
		0: {"quantum computing": {}},
		1: {"quantum computing": {}, "physics": {}},
	}
	info := BuildPhraseInfo([]int{0, 1}, phrasesPerSentence)

	if len(info["quantum computing"]) != 2 {
		t.Fatalf("expected 2 sentence hits, got %v", info["quantum computing"])
	}
	if len(info["physics"]) != 1 {
		t.Fatalf("expected 1 sentence hit, got %v", info["physics"])
	}
}

func TestScoreAll_SortedDescending(t *testing.T) {
	t.Parallel()

	corpus := NewCorpus([]map[string]struct{}{
		{"alpha": {}},
		{"alpha": {}, "beta": {}},
	})
	info := map[string][]int{
		"alpha": {0, 1, 2},
		"beta":  {1},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
	}}

	scored, err := ScoreAll(context.Background(), info, corpus, embedder, DefaultWeights())
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored phrases, got %d", len(scored))
	}
	if scored[0].Score < scored[1].Score {
		t.Fatalf("expected descending score order, got %v", scored)
	}
}

func TestGroupNearDuplicates(t *testing.T) {
	t.Parallel()

	phrases := []PhraseInfo{
		{Phrase: "quantum computing", Embedding: []float32{1, 0, 0}, Score: 10},
		{Phrase: "quantum computation", Embedding: []float32{0.999, 0.001, 0}, Score: 8},
		{Phrase: "banana", Embedding: []float32{0, 1, 0}, Score: 5},
	}

	groups := GroupNearDuplicates(phrases)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	if groups[0].Representative.Phrase != "quantum computing" {
		t.Fatalf("expected higher-scored phrase as representative, got %q", groups[0].Representative.Phrase)
	}
	if len(groups[0].Members) != 1 {
		t.Fatalf("expected 1 grouped member, got %d", len(groups[0].Members))
	}
}
