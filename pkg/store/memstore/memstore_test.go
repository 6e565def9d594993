package memstore

import (
	"context"
	"testing"

	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/store"
)

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	s := New()
	batch := store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			{Name: "quantum", Label: "quantum", SourceID: "doc-1",
				Descriptions: []common.DescriptionRecord{{Data: "d1", SourceID: "doc-1", SentenceIndices: []int{0}}}},
			{Name: "physics", Label: "physics", SourceID: "doc-1"},
		},
		Edges: []common.Edge{
			{Source: "quantum", Target: "physics", Relation: "relates to", SourceID: "doc-1"},
		},
	}

	r1, err := s.Merge(context.Background(), batch)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	r2, err := s.Merge(context.Background(), batch)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if r1.NodesCreated != 2 || r1.EdgesCreated != 1 {
		t.Fatalf("unexpected first merge result: %+v", r1)
	}
	if r2.NodesCreated != 0 || r2.EdgesCreated != 0 {
		t.Fatalf("second merge should create nothing new, got %+v", r2)
	}

	node := s.project("proj-1").nodes["quantum"]
	if len(node.Descriptions) != 1 {
		t.Fatalf("expected descriptions to stay deduplicated, got %d", len(node.Descriptions))
	}
}

func TestMerge_EdgeRequiresBothEndpoints(t *testing.T) {
	t.Parallel()

	s := New()
	batch := store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			{Name: "alpha", Label: "alpha", SourceID: "doc-1"},
		},
		Edges: []common.Edge{
			{Source: "alpha", Target: "beta", Relation: "x", SourceID: "doc-1"},
		},
	}

	r, err := s.Merge(context.Background(), batch)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if r.EdgesCreated != 0 {
		t.Fatalf("expected edge to be skipped when target missing, got %+v", r)
	}
}

func TestRemoveSource_DeletesEmptiedNodes(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Merge(context.Background(), store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			{Name: "quantum", Label: "quantum", SourceID: "doc-1",
				Descriptions: []common.DescriptionRecord{{Data: "d1", SourceID: "doc-1", SentenceIndices: []int{0}}}},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := s.RemoveSource(context.Background(), "proj-1", "doc-1"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}

	if _, ok := s.project("proj-1").nodes["quantum"]; ok {
		t.Fatalf("expected node to be deleted after removing its only source")
	}
}

func TestRemoveSource_PreservesOtherSources(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Merge(context.Background(), store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			{Name: "quantum", Label: "quantum", SourceID: "doc-1",
				Descriptions: []common.DescriptionRecord{{Data: "d1", SourceID: "doc-1", SentenceIndices: []int{0}}}},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	_, err = s.Merge(context.Background(), store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			{Name: "quantum", Label: "quantum", SourceID: "doc-2",
				Descriptions: []common.DescriptionRecord{{Data: "d2", SourceID: "doc-2", SentenceIndices: []int{0}}}},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := s.RemoveSource(context.Background(), "proj-1", "doc-1"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}

	node, ok := s.project("proj-1").nodes["quantum"]
	if !ok {
		t.Fatalf("expected node to persist")
	}
	if len(node.Descriptions) != 1 || node.Descriptions[0].SourceID != "doc-2" {
		t.Fatalf("expected only doc-2's description to remain, got %+v", node.Descriptions)
	}
}

func TestRemoveSource_PreservesHierarchyNodes(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Merge(context.Background(), store.Batch{
		ProjectID: "proj-1",
		Nodes: []common.KeywordNode{
			// Hierarchy/root keyword nodes never carry descriptions.
			{Name: "physics", Label: "physics", SourceID: "doc-1"},
			{Name: "quantum", Label: "quantum", SourceID: "doc-1",
				Descriptions: []common.DescriptionRecord{{Data: "d1", SourceID: "doc-1", SentenceIndices: []int{0}}}},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := s.RemoveSource(context.Background(), "proj-1", "doc-1"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}

	if _, ok := s.project("proj-1").nodes["physics"]; !ok {
		t.Fatalf("expected description-less hierarchy node to survive RemoveSource for any source_id")
	}
	if _, ok := s.project("proj-1").nodes["quantum"]; ok {
		t.Fatalf("expected node with emptied descriptions to be deleted")
	}
}
