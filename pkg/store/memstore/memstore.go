// Package memstore is an in-memory GraphStore, used by tests and as a
// reference implementation of the MERGE contract independent of any SQL
// dialect. Its merge algorithm mirrors the name-keyed, union-of-lists
// approach the teacher project uses for entity/relationship merge, adapted
// to node/edge identity keyed by (name, project_id) and
// (source, target, relation, project_id) per §4.6.
package memstore

import (
	"context"
	"sync"

	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/store"
)

type projectGraph struct {
	nodes map[string]*common.KeywordNode // keyed by name
	edges map[edgeKey]*common.Edge
}

type edgeKey struct {
	source, target, relation string
}

// Store is a per-process, mutex-guarded GraphStore. Safe for concurrent
// Merge calls across different project IDs; callers are still expected to
// serialize Merge per project ID themselves (§5) — this store does not
// assume that serialization, it just never corrupts state if it's absent.
type Store struct {
	mu       sync.Mutex
	projects map[string]*projectGraph
}

// New returns an empty Store.
func New() *Store {
	return &Store{projects: make(map[string]*projectGraph)}
}

var _ store.GraphStore = (*Store)(nil)

func (s *Store) project(id string) *projectGraph {
	p, ok := s.projects[id]
	if !ok {
		p = &projectGraph{nodes: make(map[string]*common.KeywordNode), edges: make(map[edgeKey]*common.Edge)}
		s.projects[id] = p
	}
	return p
}

// Merge applies batch idempotently: existing nodes have their label
// updated and their descriptions/original_sentences unioned (deduplicated
// by structural equality); existing edges are left untouched; new edges
// are only added once both endpoints already exist in the project graph.
func (s *Store) Merge(_ context.Context, batch store.Batch) (store.MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.project(batch.ProjectID)
	result := store.MergeResult{}

	for _, incoming := range batch.Nodes {
		name := common.BaseName(incoming.Name)
		existing, found := proj.nodes[name]
		if !found {
			node := incoming
			node.Name = name
			node.Label = incoming.Label
			node.Descriptions = dedupDescriptions(nil, incoming.Descriptions)
			node.OriginalSentences = dedupOriginalSentences(nil, incoming.OriginalSentences)
			proj.nodes[name] = &node
			result.NodesCreated++
			continue
		}

		existing.Label = incoming.Label
		existing.Descriptions = dedupDescriptions(existing.Descriptions, incoming.Descriptions)
		existing.OriginalSentences = dedupOriginalSentences(existing.OriginalSentences, incoming.OriginalSentences)
	}

	for _, incoming := range batch.Edges {
		source := common.BaseName(incoming.Source)
		target := common.BaseName(incoming.Target)

		if _, ok := proj.nodes[source]; !ok {
			continue
		}
		if _, ok := proj.nodes[target]; !ok {
			continue
		}

		key := edgeKey{source: source, target: target, relation: incoming.Relation}
		if _, exists := proj.edges[key]; exists {
			continue
		}

		edge := incoming
		edge.Source = source
		edge.Target = target
		proj.edges[key] = &edge
		result.EdgesCreated++
	}

	return result, nil
}

// RemoveSource strips sourceID's contributions from every node's
// descriptions/original_sentences and deletes edges tagged by sourceID; a
// node is deleted only if it had descriptions before filtering and none
// remain after (§6, §8.7). Hierarchy/root keyword nodes never carry
// descriptions to begin with, so they are never eligible for deletion here
// regardless of which source_id is removed.
func (s *Store) RemoveSource(_ context.Context, projectID, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.projects[projectID]
	if !ok {
		return nil
	}

	for name, node := range proj.nodes {
		hadDescriptions := len(node.Descriptions) > 0
		node.Descriptions = filterDescriptions(node.Descriptions, sourceID)
		node.OriginalSentences = filterOriginalSentences(node.OriginalSentences, sourceID)
		if hadDescriptions && len(node.Descriptions) == 0 {
			delete(proj.nodes, name)
		}
	}

	for key, edge := range proj.edges {
		if edge.SourceID == sourceID {
			delete(proj.edges, key)
		}
	}

	return nil
}

func dedupDescriptions(existing, incoming []common.DescriptionRecord) []common.DescriptionRecord {
	out := append([]common.DescriptionRecord{}, existing...)
	for _, in := range incoming {
		dup := false
		for _, have := range out {
			if have.Equal(in) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, in)
		}
	}
	return out
}

func dedupOriginalSentences(existing, incoming []common.OriginalSentenceRecord) []common.OriginalSentenceRecord {
	out := append([]common.OriginalSentenceRecord{}, existing...)
	for _, in := range incoming {
		dup := false
		for _, have := range out {
			if have.Equal(in) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, in)
		}
	}
	return out
}

func filterDescriptions(in []common.DescriptionRecord, sourceID string) []common.DescriptionRecord {
	var out []common.DescriptionRecord
	for _, d := range in {
		if d.SourceID != sourceID {
			out = append(out, d)
		}
	}
	return out
}

func filterOriginalSentences(in []common.OriginalSentenceRecord, sourceID string) []common.OriginalSentenceRecord {
	var out []common.OriginalSentenceRecord
	for _, d := range in {
		if d.SourceID != sourceID {
			out = append(out, d)
		}
	}
	return out
}
