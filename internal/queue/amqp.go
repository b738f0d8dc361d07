package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"github.com/dealscale/redirect-engine/internal/model"
)

// AMQP queue names shared by the server and the worker.
const (
	ClickQueue        = "redirect_clicks"
	InvalidationQueue = "cache_invalidations"
)

// InvalidationEvent signals the rendering layer to refetch data for a tag
// after the cache entry for slug was rewritten.
type InvalidationEvent struct {
	Tag  string `json:"tag"`
	Slug string `json:"slug"`
}

// EventPublisher is the broker-facing side the services depend on.
type EventPublisher interface {
	PublishClick(ev model.ClickEvent) error
	PublishInvalidation(tag, slug string) error
}

// AmqpPublisher publishes click events and invalidation signals to
// RabbitMQ. Both queues are durable so the worker can drain a backlog.
type AmqpPublisher struct {
	ch *amqp.Channel
}

func NewAmqpPublisher(conn *amqp.Connection) (*AmqpPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	for _, name := range []string{ClickQueue, InvalidationQueue} {
		_, err = ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return nil, err
		}
	}
	return &AmqpPublisher{ch: ch}, nil
}

var _ EventPublisher = (*AmqpPublisher)(nil)

func (p *AmqpPublisher) publish(queueName string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.Publish(
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        raw,
		},
	)
}

func (p *AmqpPublisher) PublishClick(ev model.ClickEvent) error {
	return p.publish(ClickQueue, ev)
}

func (p *AmqpPublisher) PublishInvalidation(tag, slug string) error {
	return p.publish(InvalidationQueue, InvalidationEvent{Tag: tag, Slug: slug})
}

// NopPublisher keeps the service running when no broker is configured.
// Click analytics and invalidation signals are then log-only.
type NopPublisher struct{}

var _ EventPublisher = (*NopPublisher)(nil)

func (NopPublisher) PublishClick(ev model.ClickEvent) error {
	log.Println("ℹ️ no broker, dropping click event for slug", ev.Slug)
	return nil
}

func (NopPublisher) PublishInvalidation(tag, slug string) error {
	log.Println("ℹ️ no broker, dropping invalidation for", tag, slug)
	return nil
}
