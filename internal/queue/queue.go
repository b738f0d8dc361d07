package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Topic for in-process detached jobs.
const TopicCounterIncrements = "counter_increments"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue runs detached background jobs with retry. The redirect
// resolver submits counter increments here so the HTTP response never
// waits on their completion.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// CounterIncrementer is what the increment subscriber needs from the
// record store.
type CounterIncrementer interface {
	IncrementCallCounter(ctx context.Context, pageID string)
}

// StartCounterIncrementSubscriber wires best-effort call-counter writes.
// Failures are swallowed inside the record store, so jobs never retry.
func StartCounterIncrementSubscriber(q Queue, records CounterIncrementer) {
	err := q.Subscribe(TopicCounterIncrements, func(payload any) error {
		pageID, ok := payload.(string)
		if !ok || pageID == "" {
			log.Println("⚠️ invalid counter payload, expected page ID string")
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		records.IncrementCallCounter(ctx, pageID)
		return nil
	})
	if err != nil {
		log.Println("⚠️ failed to subscribe counter incrementer:", err)
	}
}
