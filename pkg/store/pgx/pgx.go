// Package pgx implements store.GraphStore on PostgreSQL, emulating the
// MERGE contract via ON CONFLICT upserts keyed by (name, project_id) for
// nodes and (source, target, relation, project_id) for edges, plus a
// pgvector column for node embeddings. Grounded on the teacher's
// pgxIConn/GraphDBStorage wiring pattern.
package pgx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/weavegraph/weavegraph/internal/util"
	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/logger"
	"github.com/weavegraph/weavegraph/pkg/store"
)

// Store is a pgx/pgvector-backed GraphStore. Merge and RemoveSource run
// their transaction at most GRAPH_MERGE_MAX_RETRIES times in total
// (default 2) through the util retry helpers: any error other than context
// cancellation triggers the next attempt, fatal errors included, and there
// is no delay or backoff between attempts. It does not itself serialize
// Merge calls per project — callers use pkg/leaselock around Merge to
// satisfy the §5 per-project-id constraint.
type Store struct {
	pool       *pgxpool.Pool
	maxRetries int
}

// New wraps an existing pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:       pool,
		maxRetries: util.GetEnvInt("GRAPH_MERGE_MAX_RETRIES", 2),
	}
}

var _ store.GraphStore = (*Store)(nil)

// Merge persists batch transactionally: either every node and edge lands,
// or none does (§4.6). Each node upsert reads the stored
// descriptions/original_sentences, unions them with the incoming records
// in the application layer (deduplicated by structural equality, as
// memstore does), and writes the merged lists back, so both backends agree
// on results.
func (s *Store) Merge(ctx context.Context, batch store.Batch) (store.MergeResult, error) {
	return util.RetryWithContext(ctx, s.maxRetries, func(ctx context.Context) (store.MergeResult, error) {
		return s.mergeOnce(ctx, batch)
	})
}

func (s *Store) mergeOnce(ctx context.Context, batch store.Batch) (store.MergeResult, error) {
	result := store.MergeResult{}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, classifyErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, node := range batch.Nodes {
		created, mergeErr := upsertNode(ctx, tx, batch.ProjectID, node)
		if mergeErr != nil {
			return result, classifyErr(mergeErr)
		}
		if created {
			result.NodesCreated++
		}
	}

	for _, edge := range batch.Edges {
		created, ok, edgeErr := upsertEdge(ctx, tx, batch.ProjectID, edge)
		if edgeErr != nil {
			return result, classifyErr(edgeErr)
		}
		if !ok {
			logger.Warn("edge skipped, endpoint missing", "source", edge.Source, "target", edge.Target, "project_id", batch.ProjectID)
			continue
		}
		if created {
			result.EdgesCreated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.MergeResult{}, classifyErr(err)
	}

	return result, nil
}

func upsertNode(ctx context.Context, tx pgx.Tx, projectID string, node common.KeywordNode) (bool, error) {
	name := common.BaseName(node.Name)

	var embedding any
	if len(node.Embedding) > 0 {
		embedding = pgvector.NewVector(node.Embedding)
	}

	var existingDesc, existingOrig []byte
	err := tx.QueryRow(ctx,
		`SELECT descriptions, original_sentences FROM graph_nodes WHERE name = $1 AND project_id = $2`,
		name, projectID,
	).Scan(&existingDesc, &existingOrig)

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	created := errors.Is(err, pgx.ErrNoRows)

	mergedDesc := mergeDescriptions(existingDesc, node.Descriptions)
	mergedOrig := mergeOriginalSentences(existingOrig, node.OriginalSentences)

	mergedDescJSON, err := json.Marshal(mergedDesc)
	if err != nil {
		return false, err
	}
	mergedOrigJSON, err := json.Marshal(mergedOrig)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO graph_nodes (name, label, project_id, descriptions, original_sentences, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, project_id) DO UPDATE SET
			label = EXCLUDED.label,
			descriptions = EXCLUDED.descriptions,
			original_sentences = EXCLUDED.original_sentences,
			embedding = COALESCE(EXCLUDED.embedding, graph_nodes.embedding)
	`, name, node.Label, projectID, mergedDescJSON, mergedOrigJSON, embedding)
	if err != nil {
		return false, err
	}

	return created, nil
}

func upsertEdge(ctx context.Context, tx pgx.Tx, projectID string, edge common.Edge) (created bool, endpointsOK bool, err error) {
	source := common.BaseName(edge.Source)
	target := common.BaseName(edge.Target)

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM graph_nodes WHERE project_id = $1 AND name IN ($2, $3)`,
		projectID, source, target,
	).Scan(&count); err != nil {
		return false, false, err
	}
	if count < 2 {
		return false, false, nil
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO graph_edges (source, target, relation, project_id, source_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, target, relation, project_id) DO NOTHING
	`, source, target, edge.Relation, projectID, edge.SourceID)
	if err != nil {
		return false, true, err
	}

	return tag.RowsAffected() > 0, true, nil
}

// RemoveSource strips sourceID's contributions from descriptions and
// original_sentences, deleting a node only if it had descriptions before
// filtering and none remain after, and deletes edges tagged by sourceID
// (§6). Hierarchy/root keyword nodes never carry descriptions to begin
// with, so they are never eligible for deletion here regardless of which
// source_id is removed.
func (s *Store) RemoveSource(ctx context.Context, projectID, sourceID string) error {
	return util.RetryErrWithContext(ctx, s.maxRetries, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return classifyErr(err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		rows, err := tx.Query(ctx, `SELECT name, descriptions, original_sentences FROM graph_nodes WHERE project_id = $1`, projectID)
		if err != nil {
			return classifyErr(err)
		}

		type pending struct {
			name string
			desc []common.DescriptionRecord
			orig []common.OriginalSentenceRecord
		}
		var toUpdate []pending
		var toDelete []string

		for rows.Next() {
			var name string
			var descRaw, origRaw []byte
			if err := rows.Scan(&name, &descRaw, &origRaw); err != nil {
				rows.Close()
				return classifyErr(err)
			}
			hadDescriptions := len(unmarshalDescriptions(descRaw)) > 0
			desc := filterDescriptions(unmarshalDescriptions(descRaw), sourceID)
			orig := filterOriginalSentences(unmarshalOriginalSentences(origRaw), sourceID)
			if hadDescriptions && len(desc) == 0 {
				toDelete = append(toDelete, name)
			} else {
				toUpdate = append(toUpdate, pending{name: name, desc: desc, orig: orig})
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return classifyErr(err)
		}

		for _, p := range toUpdate {
			descJSON, _ := json.Marshal(p.desc)
			origJSON, _ := json.Marshal(p.orig)
			if _, err := tx.Exec(ctx,
				`UPDATE graph_nodes SET descriptions = $1, original_sentences = $2 WHERE name = $3 AND project_id = $4`,
				descJSON, origJSON, p.name, projectID,
			); err != nil {
				return classifyErr(err)
			}
		}

		for _, name := range toDelete {
			if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes WHERE name = $1 AND project_id = $2`, name, projectID); err != nil {
				return classifyErr(err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM graph_edges WHERE project_id = $1 AND source_id = $2`, projectID, sourceID); err != nil {
			return classifyErr(err)
		}

		if err := tx.Commit(ctx); err != nil {
			return classifyErr(err)
		}
		return nil
	})
}

func mergeDescriptions(existingJSON []byte, incoming []common.DescriptionRecord) []common.DescriptionRecord {
	out := unmarshalDescriptions(existingJSON)
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

func mergeOriginalSentences(existingJSON []byte, incoming []common.OriginalSentenceRecord) []common.OriginalSentenceRecord {
	out := unmarshalOriginalSentences(existingJSON)
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

func unmarshalDescriptions(raw []byte) []common.DescriptionRecord {
	if len(raw) == 0 {
		return nil
	}
	var out []common.DescriptionRecord
	_ = json.Unmarshal(raw, &out)
	return out
}

func unmarshalOriginalSentences(raw []byte) []common.OriginalSentenceRecord {
	if len(raw) == 0 {
		return nil
	}
	var out []common.OriginalSentenceRecord
	_ = json.Unmarshal(raw, &out)
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

// classifyErr maps a pgx/driver error onto the project's error taxonomy
// (§7): connection and context errors are transient and retried; anything
// else (constraint violations, malformed SQL) is fatal.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(store.ErrPersistenceTransient, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "08000", "08003", "08006", "57014": // connection/statement-timeout classes
			return errors.Join(store.ErrPersistenceTransient, err)
		default:
			return errors.Join(store.ErrPersistenceFatal, err)
		}
	}
	return errors.Join(store.ErrPersistenceTransient, err)
}
