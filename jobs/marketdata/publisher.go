// Package marketdata periodically publishes top-of-book and aggregated
// depth snapshots per pair. Unlike the event stream this feed is
// best-effort; a missed tick is replaced by the next one.
package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vela/domain/book"
	"vela/replica"
)

type topOfBook struct {
	BidPrice  int64 `json:"bid_price"`
	BidVolume int64 `json:"bid_volume"`
	AskPrice  int64 `json:"ask_price"`
	AskVolume int64 `json:"ask_volume"`
	LastTrade int64 `json:"last_trade"`
}

type l2Message struct {
	Pair      string             `json:"pair"`
	L1        topOfBook          `json:"l1"`
	Bids      []book.PriceVolume `json:"bids"`
	Asks      []book.PriceVolume `json:"asks"`
	Timestamp int64              `json:"ts"`
}

type Publisher struct {
	writer   *kafka.Writer
	replica  *replica.Replica
	log      *zap.Logger
	interval time.Duration
	depth    int
}

func New(brokers []string, topic string, rep *replica.Replica, log *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		replica:  rep,
		log:      log,
		interval: time.Second,
		depth:    20,
	}
}

func (p *Publisher) Start(ctx context.Context) {
	p.log.Info("marketdata publisher started")

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.publishOnce(ctx)
			}
		}
	}()
}

func (p *Publisher) publishOnce(ctx context.Context) {
	for _, pair := range p.replica.Pairs() {
		bids, asks := p.replica.L2(pair, p.depth)
		l1 := p.replica.L1(pair)
		msg := l2Message{
			Pair: pair,
			L1: topOfBook{
				BidPrice:  l1.BidPrice,
				BidVolume: l1.BidVolume,
				AskPrice:  l1.AskPrice,
				AskVolume: l1.AskVolume,
				LastTrade: l1.LastTrade,
			},
			Bids:      bids,
			Asks:      asks,
			Timestamp: time.Now().UnixMilli(),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			p.log.Error("marshal marketdata", zap.Error(err))
			continue
		}
		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(pair),
			Value: payload,
		})
		if err != nil {
			p.log.Warn("publish marketdata failed", zap.String("pair", pair), zap.Error(err))
		}
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
