package queue

import (
	"errors"

	"github.com/OFFIS-RIT/nafstore/internal/storage"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const retriesHeader = "x-retries"

// Retryable reports whether a failed message may succeed when redelivered.
// Malformed input and rejected writes go to the dead-letter queue at once.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedMessage),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, layer.ErrMalformedRecord),
		errors.Is(err, layer.ErrMalformedTree),
		errors.Is(err, layer.ErrMalformedReference),
		errors.Is(err, layer.ErrDanglingReference),
		errors.Is(err, layer.ErrUnknownLayer),
		errors.Is(err, layer.ErrWriteFailed):
		return false
	}
	return true
}

// Retries reads the redelivery count of a message.
func Retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError routes a failed message to the retry queue, or to
// the dead-letter queue once maxRetries is reached or the error is final.
// The delivery is acked after the republish and nacked with requeue when the
// republish fails.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, maxRetries int, cause error) {
	retries := Retries(msg.Headers)

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := RetryName(queueName)
	if retries >= maxRetries || !Retryable(cause) {
		target = DLQName(queueName)
		logger.Info("[Queue] Sending message to DLQ", "dlq", target, "retries", retries, "err", cause)
	} else {
		headers[retriesHeader] = int32(retries + 1)
	}

	if err := publish(ch, target, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
