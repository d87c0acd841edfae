// Package queue_publisher publishes dispatch events to RabbitMQ.
// Publishing is best effort: errors are logged and returned so callers
// can drop them without failing the request that triggered the event.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/uniaccess/campus-assist/internal/queue"
)

// PublishRideRequested publishes a RideRequestedEvent to the
// "ride.requested" queue.
func PublishRideRequested(ctx context.Context, event q.RideRequestedEvent) error {
	return publish(ctx, q.RideRequestedQueue, event)
}

// PublishRideAccepted publishes a RideAcceptedEvent to the
// "ride.accepted" queue.
func PublishRideAccepted(ctx context.Context, event q.RideAcceptedEvent) error {
	return publish(ctx, q.RideAcceptedQueue, event)
}

// PublishSessionConfirmed publishes a SessionConfirmedEvent to the
// "session.confirmed" queue.
func PublishSessionConfirmed(ctx context.Context, event q.SessionConfirmedEvent) error {
	return publish(ctx, q.SessionConfirmedQueue, event)
}

// publish marshals the event and sends it to a durable queue on the
// default exchange. The function never panics; any error is logged and
// returned so the caller can choose to ignore it. Messages are marked
// as persistent.
func publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
