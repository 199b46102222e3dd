// Package drawevents publishes committed drawing changes to Kafka.
package drawevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

type Event struct {
	SessionID string        `json:"session_id"`
	Op        string        `json:"op"`
	Parameter string        `json:"parameter,omitempty"`
	Polygons  [][][]float64 `json:"polygons"`
	AreaHa    float64       `json:"area_ha"`
	TS        time.Time     `json:"ts"`
}

// NewProducer dials brokers with the settings the publisher expects.
func NewProducer(brokers []string) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("drawevents: create async producer: %w", err)
	}
	return prod, nil
}

// Publisher queues events and forwards them to the producer from one
// goroutine. It implements session.Notifier.
type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ session.Notifier = (*Publisher)(nil)

// NewPublisher takes ownership of prod; Close closes it.
func NewPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("draw event not encoded", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.SessionID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("draw event not delivered", "err", err)
			}
		}
	}()

	return p
}

// Publish enqueues ev. It never blocks; false means the event was dropped.
func (p *Publisher) Publish(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

func (p *Publisher) Changed(ctx context.Context, ch session.Change) {
	ok := p.Publish(Event{
		SessionID: ch.SessionID,
		Op:        ch.Op,
		Parameter: ch.Parameter,
		Polygons:  ch.Polygons,
		AreaHa:    ch.AreaHectares,
		TS:        ch.At.UTC(),
	})
	if !ok {
		p.log.DebugContext(ctx, "draw event dropped", "op", ch.Op)
	}
}

// Close drains the queue and closes the producer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("drawevents: close producer: %w", err)
	}
	return nil
}
