// Package store defines the persisted-graph contract (C9's MERGE
// semantics) and the sentinel errors callers must recognize (§7).
package store

import (
	"context"
	"errors"

	"github.com/weavegraph/weavegraph/pkg/common"
)

// ErrPersistenceTransient wraps a retryable I/O failure in the merger.
var ErrPersistenceTransient = errors.New("store: transient persistence failure")

// ErrPersistenceFatal wraps a non-retryable failure (e.g. a uniqueness
// violation outside MERGE semantics).
var ErrPersistenceFatal = errors.New("store: fatal persistence failure")

// Batch is everything one ingest job wants merged atomically (§4.6,
// §4.7): either all nodes and edges persist, or none do.
type Batch struct {
	ProjectID string
	Nodes     []common.KeywordNode
	Edges     []common.Edge
}

// MergeResult reports what a Merge call actually changed, used by the
// orchestrator to build the IngestReport.
type MergeResult struct {
	NodesCreated int
	EdgesCreated int
}

// GraphStore is the persisted-graph contract the merger (C9) and the
// source-removal path (§6) are built against. Implementations do not
// serialize Merge per project: callers must ensure that Merge for a given
// ProjectID does not run concurrently with another Merge for the same
// ProjectID (cmd/worker holds a pkg/leaselock project lease around each
// job for this).
type GraphStore interface {
	// Merge idempotently applies batch to the project's graph. Calling
	// Merge twice with the same batch yields the same persisted state
	// (§4.6, §8.6).
	Merge(ctx context.Context, batch Batch) (MergeResult, error)

	// RemoveSource deletes exactly the contributions tagged by sourceID
	// within projectID: matching description/original-sentence entries are
	// stripped from surviving nodes, and a node is deleted outright only if
	// it had at least one description before the strip and none remain
	// after (§6, §8.7). A node that never carried any description — a
	// hierarchy/root keyword node, for instance — is never deleted by this
	// call, regardless of which source_id is removed.
	RemoveSource(ctx context.Context, projectID, sourceID string) error
}
