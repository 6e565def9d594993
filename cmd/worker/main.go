// Command worker consumes ingest and source-removal jobs off RabbitMQ and
// drives them through the knowledge graph construction pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/weavegraph/weavegraph/internal/queue"
	"github.com/weavegraph/weavegraph/internal/util"
	"github.com/weavegraph/weavegraph/pkg/leaselock"
	"github.com/weavegraph/weavegraph/pkg/logger"
	"github.com/weavegraph/weavegraph/pkg/logger/console"
	"github.com/weavegraph/weavegraph/pkg/pipeline"
	pgxstore "github.com/weavegraph/weavegraph/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.New(console.Params{Debug: debug}))

	poolCfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("invalid database configuration", "err", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pgConn, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	conn := queue.Init()
	defer conn.Close()

	setupCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("failed to open setup channel", "err", err)
	}
	if err := queue.SetupQueues(setupCh); err != nil {
		logger.Fatal("failed to set up queues", "err", err)
	}
	setupCh.Close()

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()
	if err := consumerCh.Qos(util.GetEnvInt("WORKER_PREFETCH", 4), 0, false); err != nil {
		logger.Fatal("failed to set QoS", "err", err)
	}

	store := pgxstore.New(pgConn)
	pipe := pipeline.New(store)
	locks := leaselock.New(pgConn)

	logger.Info("listening for jobs")

	for _, queueName := range []string{queue.IngestQueue, queue.DeleteQueue} {
		go consume(ctx, consumerCh, queueName, pipe, locks)
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

func consume(ctx context.Context, ch *amqp.Channel, queueName string, pipe *pipeline.Pipeline, locks *leaselock.Client) {
	consumerTag := fmt.Sprintf("%s_consumer", queueName)
	msgs, err := ch.Consume(queueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		logger.Fatal("failed to start consuming", "queue", queueName, "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping consumer", "queue", queueName)
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("message channel closed", "queue", queueName)
				return
			}
			handle(ctx, ch, queueName, msg, pipe, locks)
		}
	}
}

func handle(ctx context.Context, ch *amqp.Channel, queueName string, msg amqp.Delivery, pipe *pipeline.Pipeline, locks *leaselock.Client) {
	switch queueName {
	case queue.IngestQueue:
		handleIngest(ctx, ch, msg, pipe, locks)
	case queue.DeleteQueue:
		handleDelete(ctx, ch, msg, pipe, locks)
	default:
		logger.Error("unknown queue", "queue", queueName)
		_ = msg.Nack(false, false)
	}
}

func handleIngest(ctx context.Context, ch *amqp.Channel, msg amqp.Delivery, pipe *pipeline.Pipeline, locks *leaselock.Client) {
	var job queue.IngestJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		logger.Error("malformed ingest job, dropping", "err", err)
		_ = msg.Ack(false)
		return
	}

	err := locks.WithLease(ctx, leaselock.ProjectKey(job.ProjectID), leaselock.Options{Wait: true}, func(leaseCtx context.Context) error {
		report, err := pipe.Ingest(leaseCtx, job.SourceID, job.ProjectID, job.RawText)
		if err != nil {
			return err
		}
		logger.Info("ingest complete", "source_id", job.SourceID, "project_id", job.ProjectID,
			"nodes_created", report.NodesCreated, "edges_created", report.EdgesCreated,
			"chunks", report.Chunks, "duration_ms", report.DurationMs)
		return nil
	})

	if err != nil {
		logger.Error("ingest failed", "source_id", job.SourceID, "err", err)
		if requeueErr := queue.PublishRetry(ch, queue.IngestQueue, msg.Body); requeueErr != nil {
			logger.Error("failed to requeue ingest job", "source_id", job.SourceID, "err", requeueErr)
			_ = queue.PublishDLQ(ch, queue.IngestQueue, msg.Body)
		}
		_ = msg.Ack(false)
		return
	}

	_ = msg.Ack(false)
}

func handleDelete(ctx context.Context, ch *amqp.Channel, msg amqp.Delivery, pipe *pipeline.Pipeline, locks *leaselock.Client) {
	var job queue.DeleteJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		logger.Error("malformed delete job, dropping", "err", err)
		_ = msg.Ack(false)
		return
	}

	err := locks.WithLease(ctx, leaselock.ProjectKey(job.ProjectID), leaselock.Options{Wait: true}, func(leaseCtx context.Context) error {
		return pipe.RemoveSource(leaseCtx, job.SourceID, job.ProjectID)
	})

	if err != nil {
		logger.Error("remove source failed", "source_id", job.SourceID, "err", err)
		if requeueErr := queue.PublishRetry(ch, queue.DeleteQueue, msg.Body); requeueErr != nil {
			logger.Error("failed to requeue delete job", "source_id", job.SourceID, "err", requeueErr)
			_ = queue.PublishDLQ(ch, queue.DeleteQueue, msg.Body)
		}
		_ = msg.Ack(false)
		return
	}

	logger.Info("source removed", "source_id", job.SourceID, "project_id", job.ProjectID)
	_ = msg.Ack(false)
}
