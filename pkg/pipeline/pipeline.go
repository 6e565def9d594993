// Package pipeline implements the orchestrator (C10): it drives C1
// through C9 for a single (source_id, project_id, raw_text) ingest job and
// exposes the two external operations, Ingest and RemoveSource (§6).
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weavegraph/weavegraph/internal/util"
	"github.com/weavegraph/weavegraph/pkg/chunker"
	"github.com/weavegraph/weavegraph/pkg/common"
	"github.com/weavegraph/weavegraph/pkg/embed"
	"github.com/weavegraph/weavegraph/pkg/graphbuild"
	"github.com/weavegraph/weavegraph/pkg/lang"
	"github.com/weavegraph/weavegraph/pkg/logger"
	"github.com/weavegraph/weavegraph/pkg/phrase"
	"github.com/weavegraph/weavegraph/pkg/scorer"
	"github.com/weavegraph/weavegraph/pkg/segment"
	"github.com/weavegraph/weavegraph/pkg/store"
	"github.com/weavegraph/weavegraph/pkg/timing"
	"github.com/weavegraph/weavegraph/pkg/topic"
)

// statTypeIngest is the timing.Recorder bucket for Ingest calls, grounded
// on the teacher's "file_processing" stat_type constant.
const statTypeIngest = "ingest"

// Error taxonomy per §7. Callers branch on errors.Is against these
// sentinels; wrapped causes remain inspectable via errors.Unwrap.
var (
	ErrInputRejected     = errors.New("pipeline: input rejected")
	ErrSegmentationEmpty = errors.New("pipeline: segmentation produced no sentences")
	ErrCancelled         = errors.New("pipeline: cancellation requested")
)

// IngestReport is the result of a successful Ingest call (§6).
type IngestReport struct {
	NodesCreated int
	EdgesCreated int
	Chunks       int
	RootKeyword  string
	DurationMs   int64
}

// Pipeline bundles the per-job-scoped dependencies the orchestrator needs.
// The topic model is fitted from scratch on every call to Ingest, and
// NewEmbedder is called once per Ingest: the hash backend yields a fresh
// instance each time, while the ONNX backend returns one shared instance
// (see New). Store is shared, and Pipeline does not serialize Merge calls
// per project_id; cmd/worker wraps each job in a pkg/leaselock project
// lease.
type Pipeline struct {
	Store          store.GraphStore
	TopicConfig    topic.Config
	NewEmbedder    func() embed.Embedder
	MaxInputTokens int
	ParallelChunks int
	Timing         *timing.Recorder
}

// New returns a Pipeline with the default topic-model hyperparameters and
// embedder backend. EMBEDDER_BACKEND=onnx with ONNX_MODEL_PATH set swaps in
// a shared ONNXEmbedder (§5 exempts C4's model instance from the per-job
// rule only insofar as the model weights are read-only; it carries no
// per-job vocabulary state the way the topic model does). Any ONNX load
// failure falls back to the deterministic hash embedder rather than
// failing startup.
func New(s store.GraphStore) *Pipeline {
	newEmbedder := func() embed.Embedder { return embed.NewHashEmbedder(128) }
	if util.GetEnvString("EMBEDDER_BACKEND", "hash") == "onnx" {
		modelPath := util.GetEnvString("ONNX_MODEL_PATH", "")
		dims := util.GetEnvInt("ONNX_EMBED_DIMENSIONS", 384)
		maxTokens := util.GetEnvInt("ONNX_MAX_TOKENS", 256)
		cacheSize := util.GetEnvInt("ONNX_CACHE_SIZE", 10000)
		if onnx, err := embed.NewONNXEmbedder(modelPath, dims, maxTokens, cacheSize); err != nil {
			logger.Warn("onnx embedder unavailable, falling back to hash embedder", "error", err.Error())
		} else {
			newEmbedder = func() embed.Embedder { return onnx }
		}
	}
	return &Pipeline{
		Store:          s,
		TopicConfig:    topic.DefaultConfig(),
		NewEmbedder:    newEmbedder,
		MaxInputTokens: util.GetEnvInt("GRAPH_MAX_INPUT_TOKENS", 200000),
		ParallelChunks: util.GetEnvInt("GRAPH_PARALLEL_CHUNKS", 4),
		Timing:         timing.NewRecorder(),
	}
}

// Ingest runs C2 through C9 for one source.
func (p *Pipeline) Ingest(ctx context.Context, sourceID, projectID, rawText string) (IngestReport, error) {
	start := time.Now()

	if rawText == "" {
		return IngestReport{}, ErrInputRejected
	}
	if p.MaxInputTokens > 0 {
		if n, err := segment.CountTokens(rawText); err == nil && n > p.MaxInputTokens {
			logger.Warn("input rejected: exceeds token budget", "source_id", sourceID, "tokens", n, "max", p.MaxInputTokens)
			return IngestReport{}, ErrInputRejected
		}
	}

	rawSentences := segment.Split(rawText)
	if len(rawSentences) == 0 {
		return IngestReport{}, ErrSegmentationEmpty
	}

	if p.Timing != nil {
		if estimate := p.Timing.PredictProcessTime(statTypeIngest, int64(len(rawSentences))); estimate > 0 {
			logger.Info("ingest duration estimate", "source_id", sourceID, "sentences", len(rawSentences), "estimated_ms", estimate)
		}
	}

	sentences := make([]common.Sentence, 0, len(rawSentences))
	for i, text := range rawSentences {
		l := lang.Detect(text)
		s := common.NewSentence(i, text, l)
		for tok := range phrase.Extract(text, l) {
			s.Tokens[tok] = struct{}{}
		}
		sentences = append(sentences, s)
	}

	already := chunker.NewAlreadyMade()

	embedder := p.NewEmbedder()

	chunkResult, err := chunker.Run(ctx, chunker.Deps{
		Sentences:   sentences,
		SourceID:    sourceID,
		TFIDF:       chunker.DefaultTFIDFScorer(sentences),
		AlreadyMade: already,
		TopicConfig: p.TopicConfig,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return IngestReport{}, ErrCancelled
		}
		return IngestReport{}, err
	}

	phrasesBySentence := make(map[int]map[string]struct{}, len(sentences))
	sentencesByIndex := make(map[int]common.Sentence, len(sentences))
	var chunkPhraseSets []map[string]struct{}
	for _, s := range sentences {
		phrasesBySentence[s.Index] = s.Tokens
		sentencesByIndex[s.Index] = s
	}
	for _, fc := range chunkResult.FinalizedChunks {
		set := make(map[string]struct{})
		for _, idx := range fc.Chunk.Indices {
			for tok := range phrasesBySentence[idx] {
				set[tok] = struct{}{}
			}
		}
		chunkPhraseSets = append(chunkPhraseSets, set)
	}
	corpus := scorer.NewCorpus(chunkPhraseSets)

	nodes := append([]common.KeywordNode{}, chunkResult.Nodes...)
	edges := append([]common.Edge{}, chunkResult.Edges...)

	if ctx.Err() != nil {
		return IngestReport{}, ErrCancelled
	}

	// C8 runs per finalized chunk independently (§5: only C5/C9 may block);
	// fan out with bounded parallelism and merge results under a mutex,
	// grounded on the teacher's errgroup-based per-file fan-out.
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxInt(1, p.ParallelChunks))
	for _, fc := range chunkResult.FinalizedChunks {
		fc := fc
		group.Go(func() error {
			out, err := graphbuild.Build(groupCtx, graphbuild.Input{
				Chunk:             fc.Chunk,
				ParentKeyword:     fc.ParentKeyword,
				SentencesByIndex:  sentencesByIndex,
				PhrasesBySentence: phrasesBySentence,
				Corpus:            corpus,
				Embedder:          embedder,
				AlreadyMade:       already,
				SourceID:          sourceID,
			})
			if err != nil {
				logger.Warn("chunk graph build failed, skipping chunk", "source_id", sourceID, "error", err.Error())
				return nil
			}
			mu.Lock()
			nodes = append(nodes, out.Nodes...)
			edges = append(edges, out.Edges...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return IngestReport{}, err
	}

	if ctx.Err() != nil {
		return IngestReport{}, ErrCancelled
	}

	result, err := p.Store.Merge(ctx, store.Batch{ProjectID: projectID, Nodes: nodes, Edges: edges})
	if err != nil {
		return IngestReport{}, err
	}

	elapsed := time.Since(start)
	if p.Timing != nil {
		p.Timing.AddProcessTime(statTypeIngest, int64(len(sentences)), elapsed.Milliseconds())
	}

	return IngestReport{
		NodesCreated: result.NodesCreated,
		EdgesCreated: result.EdgesCreated,
		Chunks:       len(chunkResult.FinalizedChunks),
		RootKeyword:  rootKeywordFromNodes(nodes),
		DurationMs:   elapsed.Milliseconds(),
	}, nil
}

// RemoveSource deletes exactly sourceID's contributions from projectID's
// graph (§6).
func (p *Pipeline) RemoveSource(ctx context.Context, sourceID, projectID string) error {
	return p.Store.RemoveSource(ctx, projectID, sourceID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func rootKeywordFromNodes(nodes []common.KeywordNode) string {
	for _, n := range nodes {
		if len(n.Name) > 0 && n.Name[len(n.Name)-1] == '*' {
			return common.BaseName(n.Name)
		}
	}
	return ""
}
