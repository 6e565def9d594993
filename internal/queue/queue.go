// Package queue wires the amqp091 topology used to dispatch ingest and
// source-removal jobs to worker processes: one queue per job kind, each
// backed by a dead-letter queue and a TTL-based retry queue.
package queue

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/weavegraph/weavegraph/internal/util"
	"github.com/weavegraph/weavegraph/pkg/logger"
)

// IngestQueue and DeleteQueue are the two job kinds the pipeline consumes
// (§6: ingest and remove_source).
const (
	IngestQueue = "ingest_queue"
	DeleteQueue = "delete_queue"
)

// retryTTLMs is how long a message waits in <queue>_retry before being
// dead-lettered back onto <queue>.
const retryTTLMs = 10000

// Init opens a connection to RabbitMQ using RABBITMQ_* environment
// variables, exactly as the rest of the stack configures itself.
func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// SetupQueues declares IngestQueue and DeleteQueue along with their DLQ
// and retry-queue siblings.
func SetupQueues(ch *amqp091.Channel) error {
	for _, name := range []string{IngestQueue, DeleteQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue: declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue: declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(retryName, true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryTTLMs),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("queue: declare %s: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO publishes data to queueName, declaring it first if absent.
func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	return ch.Publish("", q.Name, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}

// PublishRetry requeues data onto queueName's retry sibling, delaying
// redelivery by the retry queue's TTL.
func PublishRetry(ch *amqp091.Channel, queueName string, data []byte) error {
	return PublishFIFO(ch, queueName+"_retry", data)
}

// PublishDLQ sends a permanently failed job to queueName's dead-letter
// queue for manual inspection.
func PublishDLQ(ch *amqp091.Channel, queueName string, data []byte) error {
	return PublishFIFO(ch, queueName+"_dlq", data)
}
