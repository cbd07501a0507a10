// Package messaging drains the durable outbox to Kafka for downstream ERP
// consumers. Rows are written to the outbox in the same transaction as their
// ledger entry, so a broker outage delays delivery but never loses it.
package messaging

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"cupline/store"
)

const drainBatch = 100

// Publisher is the broker-facing surface the drainer writes through.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// KafkaPublisher writes outbox entries to a single topic keyed by machine so
// per-machine ordering survives partitioning.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Drainer periodically flushes pending outbox rows to the publisher.
type Drainer struct {
	db        *store.DB
	publisher Publisher
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewDrainer(db *store.DB, publisher Publisher, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Drainer{
		db:        db,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

func (d *Drainer) Start() {
	go d.run()
	log.Printf("messaging: outbox drainer started, interval %s", d.interval)
}

func (d *Drainer) Stop() {
	close(d.stopChan)
	<-d.doneChan
}

func (d *Drainer) run() {
	defer close(d.doneChan)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			if err := d.DrainOnce(context.Background()); err != nil {
				log.Printf("messaging: drain: %v", err)
			}
		}
	}
}

// DrainOnce publishes pending entries in insertion order. It stops at the
// first publish failure so ordering holds across retries; already-published
// entries are marked sent even if a later one fails.
func (d *Drainer) DrainOnce(ctx context.Context) error {
	entries, err := d.db.PendingOutbox(drainBatch)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := d.publisher.Publish(ctx, e.MachineName, e.Payload); err != nil {
			return err
		}
		if err := d.db.MarkOutboxSent(e.ID, store.FormatTime(time.Now())); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		log.Printf("messaging: drained %d outbox entries", len(entries))
	}
	return nil
}
