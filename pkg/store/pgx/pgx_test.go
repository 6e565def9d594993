package pgx

import (
	"context"
	"errors"
	"testing"

	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/store"
)

func TestMergeDescriptions_DedupesByStructuralEquality(t *testing.T) {
	t.Parallel()

	existing := []byte(`[{"data":"d1","source_id":"doc-1","sentence_indices":[0]}]`)
	incoming := []common.DescriptionRecord{
		{Data: "d1", SourceID: "doc-1", SentenceIndices: []int{0}},
		{Data: "d2", SourceID: "doc-2", SentenceIndices: []int{1}},
	}

	merged := mergeDescriptions(existing, incoming)
	if len(merged) != 2 {
		t.Fatalf("expected 2 descriptions after dedup, got %d: %+v", len(merged), merged)
	}
}

func TestClassifyErr_ContextErrorsAreTransient(t *testing.T) {
	t.Parallel()

	err := classifyErr(context.DeadlineExceeded)
	if !errors.Is(err, store.ErrPersistenceTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestClassifyErr_NilIsNil(t *testing.T) {
	t.Parallel()

	if classifyErr(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
