package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/weavegraph/weavegraph/pkg/store/memstore"
)

func TestIngest_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	p := New(memstore.New())
	_, err := p.Ingest(context.Background(), "src-1", "proj-1", "")
	if !errors.Is(err, ErrInputRejected) {
		t.Fatalf("expected ErrInputRejected, got %v", err)
	}
}

func TestIngest_ShortEnglishText(t *testing.T) {
	t.Parallel()

	p := New(memstore.New())
	report, err := p.Ingest(context.Background(), "src-1", "proj-1",
		"Alpha beta gamma. Alpha is a letter. Beta is also a letter.")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.NodesCreated == 0 {
		t.Fatalf("expected at least one node created, got %+v", report)
	}
	if report.EdgesCreated == 0 {
		t.Fatalf("expected at least one edge from root to a child keyword, got %+v", report)
	}
}

func TestIngest_MergeIdempotence(t *testing.T) {
	t.Parallel()

	p := New(memstore.New())
	text := "Quantum computing is a field. Quantum computers use qubits. Researchers study quantum computing widely."

	r1, err := p.Ingest(context.Background(), "src-1", "proj-1", text)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	r2, err := p.Ingest(context.Background(), "src-1", "proj-1", text)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if r2.NodesCreated != 0 || r2.EdgesCreated != 0 {
		t.Fatalf("expected second ingest of identical source to create nothing new, got %+v (first was %+v)", r2, r1)
	}
}

func TestRemoveSource_NoErrorOnUnknownProject(t *testing.T) {
	t.Parallel()

	p := New(memstore.New())
	if err := p.RemoveSource(context.Background(), "src-1", "unknown-project"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
}
