// Package broadcaster drains the event outbox onto Kafka. Events are
// published in seq order and only acked after the broker confirms, so
// a crash mid-publish re-sends rather than drops.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"vela/outbox"
)

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger

	interval  time.Duration
	batchSize int
}

func New(ob *outbox.Outbox, brokers []string, topic string, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		outbox:    ob,
		producer:  producer,
		topic:     topic,
		log:       log,
		interval:  250 * time.Millisecond,
		batchSize: 256,
	}, nil
}

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

// drainOnce publishes pending outbox entries, marking SENT before the
// publish and ACKED after broker confirmation. A failed publish stops
// the pass; the entry stays pending and ordering is preserved.
func (b *Broadcaster) drainOnce() {
	entries, err := b.outbox.ScanPending(b.batchSize)
	if err != nil {
		b.log.Error("outbox scan failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.State == outbox.StateNew {
			if err := b.outbox.MarkSent(entry.Seq); err != nil {
				b.log.Error("mark sent failed", zap.Uint64("seq", entry.Seq), zap.Error(err))
				return
			}
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(entry.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry",
				zap.Uint64("seq", entry.Seq), zap.Error(err))
			return
		}

		if err := b.outbox.MarkAcked(entry.Seq); err != nil {
			b.log.Error("mark acked failed", zap.Uint64("seq", entry.Seq), zap.Error(err))
			return
		}
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
