package queue

import (
	"context"
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"

	"github.com/weavegraph/weavegraph/pkg/logger"
)

// StaleJobTracker abstracts whatever persistence layer records in-flight
// job attempts, so this package doesn't need to depend on a concrete
// schema. An implementation backed by the pipeline's project/source table
// is expected to flag a job stale once it has been claimed past some
// deadline without a completion signal.
type StaleJobTracker interface {
	StaleIngestJobs(ctx context.Context) ([]IngestJob, error)
	StaleDeleteJobs(ctx context.Context) ([]DeleteJob, error)
}

// RecoverStaleBatches re-publishes jobs that a tracker reports as stale
// (claimed by a worker that died before reporting completion), incrementing
// their attempt counter.
func RecoverStaleBatches(ctx context.Context, ch *amqp091.Channel, tracker StaleJobTracker) error {
	ingestJobs, err := tracker.StaleIngestJobs(ctx)
	if err != nil {
		return err
	}
	if len(ingestJobs) == 0 {
		logger.Debug("no stale ingest jobs found")
	}
	for _, job := range ingestJobs {
		job.Attempt++
		body, err := json.Marshal(job)
		if err != nil {
			logger.Error("failed to marshal recovered ingest job", "source_id", job.SourceID, "err", err)
			continue
		}
		if err := PublishFIFO(ch, IngestQueue, body); err != nil {
			logger.Error("failed to republish recovered ingest job", "source_id", job.SourceID, "err", err)
			continue
		}
		logger.Info("recovered stale ingest job", "source_id", job.SourceID, "project_id", job.ProjectID, "attempt", job.Attempt)
	}

	deleteJobs, err := tracker.StaleDeleteJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range deleteJobs {
		body, err := json.Marshal(job)
		if err != nil {
			logger.Error("failed to marshal recovered delete job", "source_id", job.SourceID, "err", err)
			continue
		}
		if err := PublishFIFO(ch, DeleteQueue, body); err != nil {
			logger.Error("failed to republish recovered delete job", "source_id", job.SourceID, "err", err)
			continue
		}
		logger.Info("recovered stale delete job", "source_id", job.SourceID, "project_id", job.ProjectID)
	}

	return nil
}
