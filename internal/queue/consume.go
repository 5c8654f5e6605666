package queue

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/nafstore/pkg/logger"
)

// Consumer is the subset of *amqp091.Channel used to receive deliveries.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
}

// Delivery is a message together with the queue it was received from.
type Delivery struct {
	amqp091.Delivery
	Queue string
}

// Deliveries starts one consumer per queue and merges their messages into a
// single unbuffered channel. The channel is never closed; receivers stop on
// ctx.
func Deliveries(ctx context.Context, ch Consumer, queues []string) (<-chan Delivery, error) {
	out := make(chan Delivery)
	for _, name := range queues {
		msgs, err := ch.Consume(
			name,
			name+"_consumer",
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("consume %s: %w", name, err)
		}

		go func(name string, msgs <-chan amqp091.Delivery) {
			for {
				select {
				case <-ctx.Done():
					logger.Info("[Queue] Stopping consumer", "queue", name)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("[Queue] Message channel closed", "queue", name)
						return
					}
					select {
					case out <- Delivery{Delivery: msg, Queue: name}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(name, msgs)
	}
	return out, nil
}
