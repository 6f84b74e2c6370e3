package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"accountmarket/internal/domain/service"
)

const writeTimeout = 10 * time.Second

type PublisherConfig struct {
	Brokers    []string
	EmailTopic string
	EventTopic string
}

// Publisher writes transactional emails and lifecycle events to Kafka. One
// writer is kept per topic.
type Publisher struct {
	brokers    []string
	emailTopic string
	eventTopic string

	writersMu sync.Mutex
	writers   map[string]*kafka.Writer
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		brokers:    cfg.Brokers,
		emailTopic: cfg.EmailTopic,
		eventTopic: cfg.EventTopic,
		writers:    make(map[string]*kafka.Writer),
	}
}

func (p *Publisher) SendEmail(ctx context.Context, email service.Email) error {
	value, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	return p.write(ctx, p.emailTopic, kafka.Message{
		Key:   []byte(email.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(email.Template)},
		},
		Time: time.Now(),
	})
}

// Publish keys events by transaction id so a consumer sees one
// transaction's events in order.
func (p *Publisher) Publish(ctx context.Context, event service.DomainEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.write(ctx, p.eventTopic, kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
		Time: event.OccurredAt,
	})
}

func (p *Publisher) write(ctx context.Context, topic string, msg kafka.Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer(topic).WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("failed to write message to topic %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) writer(topic string) *kafka.Writer {
	p.writersMu.Lock()
	defer p.writersMu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
	}
	p.writers[topic] = w
	return w
}

func (p *Publisher) Close() error {
	p.writersMu.Lock()
	defer p.writersMu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer for %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}

var (
	_ service.EmailSender    = (*Publisher)(nil)
	_ service.EventPublisher = (*Publisher)(nil)
)
