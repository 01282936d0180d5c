// Package notify hands booking emails to the mail worker over the broker.
// The worker owns templates and SMTP; this side only enqueues jobs.
package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"ticketing/internal/domain"
)

// EmailJob is the message consumed by the mail worker.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

type EmailPublisher interface {
	PublishEmail(ctx context.Context, job EmailJob) error
}

// AMQPPublisher publishes jobs to a durable queue. A nil publisher (broker
// unreachable at startup) fails every publish with an upstream error, which
// the orchestrator records per address without aborting the booking.
type AMQPPublisher struct {
	channel *amqp.Channel
	queue   string
}

func NewAMQPPublisher(conn *amqp.Connection, queue string) (*AMQPPublisher, error) {
	if conn == nil {
		return nil, domain.UpstreamError{System: "rabbitmq", Msg: "no broker connection"}
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, domain.UpstreamError{System: "rabbitmq", Msg: "channel open failed", Err: err}
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, domain.UpstreamError{System: "rabbitmq", Msg: "queue declare failed", Err: err}
	}
	return &AMQPPublisher{channel: ch, queue: queue}, nil
}

func (p *AMQPPublisher) PublishEmail(ctx context.Context, job EmailJob) error {
	if p == nil || p.channel == nil {
		return domain.UpstreamError{System: "rabbitmq", Msg: "email dispatch disabled"}
	}
	body, err := json.Marshal(job)
	if err != nil {
		return domain.InternalError{Msg: "email job encode failed", Err: err}
	}
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return domain.UpstreamError{System: "rabbitmq", Msg: "email publish failed", Err: err}
	}
	return nil
}
