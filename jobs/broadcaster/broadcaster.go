// Package broadcaster drains the trade outbox to Kafka. Delivery is
// at-least-once: a record is marked SENT before the publish and ACKED after,
// so a crash in between re-publishes on the next pass.
package broadcaster

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"matchbook/infra/eventlog"
)

type Broadcaster struct {
	outbox   *eventlog.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *slog.Logger
}

func New(
	outbox *eventlog.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
	log *slog.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Run drains the outbox on a ticker until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", "topic", b.topic)

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
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(seq uint64, rec eventlog.Record) error {
		if err := b.outbox.MarkSent(seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(seq, 10)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// Leave it SENT; the next pass retries.
			b.log.Warn("trade publish failed", "seq", seq, "err", err)
			return nil
		}

		return b.outbox.MarkAcked(seq)
	})
	if err != nil {
		b.log.Error("outbox scan failed", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
