package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/config"

	"github.com/rabbitmq/amqp091-go"
)

const (
	StoreQueue  = "nafstore_store_queue"
	DeleteQueue = "nafstore_delete_queue"
)

// RetryDelay is how long a failed message waits in the retry queue before it
// is dead-lettered back to its main queue.
const RetryDelay = 10 * time.Second

// Queues lists the main queues the worker consumes.
func Queues() []string {
	return []string{StoreQueue, DeleteQueue}
}

func RetryName(queueName string) string { return queueName + "_retry" }
func DLQName(queueName string) string   { return queueName + "_dlq" }

// Declarer is the part of an AMQP channel SetupQueues needs.
type Declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// Publisher is the part of an AMQP channel the publish helpers need.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func Init(cfg config.RabbitMQConfig) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue with its dead-letter queue and a retry
// queue that routes expired messages back to the main queue.
func SetupQueues(ch Declarer, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := DLQName(name)
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := RetryName(name)
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(RetryDelay / time.Millisecond),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}
	return nil
}

func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	return publish(ch, queueName, data, nil)
}

func publish(ch Publisher, queueName string, data []byte, headers amqp091.Table) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	return ch.Publish("", queueName, false, false, publishing)
}
