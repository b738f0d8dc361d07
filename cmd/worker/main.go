// cmd/worker/main.go
package main

import (
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/dealscale/redirect-engine/internal/config"
	"github.com/dealscale/redirect-engine/internal/db"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/queue"
	"github.com/dealscale/redirect-engine/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	clicks := &repository.ClickRepository{DB: conn}
	if err := clicks.EnsureSchema(); err != nil {
		log.Fatal("Failed to ensure click_events schema:", err)
	}

	// Connect to RabbitMQ
	mq, err := amqp.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.ClickQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var ev model.ClickEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Println("Invalid click event:", err)
				d.Ack(false)
				continue
			}

			if err := persistClick(&ev, clicks); err != nil {
				log.Println("Failed to persist click:", err)
				// Plain Nack(requeue) would redeliver with the original
				// headers, so the attempt count never advances and a poison
				// message loops forever. Republish with the count bumped and
				// ack the original; past the cap the event is dropped.
				attempt, retry := nextAttempt(d.Headers)
				if retry {
					if err := republishClick(ch, d, attempt); err != nil {
						log.Println("Failed to requeue click:", err)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Printf("Dropping click for slug %s after %d attempts\n", ev.Slug, attempt)
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for click events...")
	<-forever
}

const maxClickRetries = 3

// retryCount reads x-retry-count. AMQP table numbers arrive as assorted
// integer widths depending on the publisher.
func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// nextAttempt returns the attempt number to record and whether the event
// still gets another try.
func nextAttempt(headers amqp.Table) (int, bool) {
	n := retryCount(headers)
	return n + 1, n < maxClickRetries
}

func republishClick(ch *amqp.Channel, d amqp.Delivery, attempt int) error {
	return ch.Publish(
		"",
		queue.ClickQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: d.ContentType,
			Headers:     amqp.Table{"x-retry-count": int32(attempt)},
			Body:        d.Body,
		},
	)
}

func persistClick(ev *model.ClickEvent, clicks repository.ClickRepositoryInterface) error {
	if err := clicks.Create(ev); err != nil {
		return err
	}
	total, err := clicks.CountBySlug(ev.Slug)
	if err != nil {
		log.Println("⚠️ count query failed for slug", ev.Slug, ":", err)
		return nil
	}
	log.Printf("📊 slug %s now at %d recorded clicks\n", ev.Slug, total)
	return nil
}
