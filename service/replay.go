package service

import (
	"fmt"

	"go.uber.org/zap"

	"vela/domain/book"
	"vela/domain/engine"
	"vela/sequence"
	"vela/snapshot"
	"vela/wal"
)

// recoverPair rebuilds one pair's engine from its latest snapshot plus
// the WAL records the snapshot does not cover, then seeds the replica
// from the rebuilt book. Must complete before the worker starts.
//
// Replayed commands are not re-published: their events already went
// through the outbox before the restart.
func (s *OrderService) recoverPair(pair string, cfg Config) (*pairWorker, error) {
	eng, snapSeq, err := s.loadSnapshot(pair)
	if err != nil {
		return nil, err
	}

	w, err := wal.Open(wal.Config{
		Dir:         pairWALDir(cfg.WALDir, pair),
		SegmentSize: cfg.WALSegmentSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open wal for %s: %w", pair, err)
	}

	replayed := 0
	lastSeq, err := wal.Replay(pairWALDir(cfg.WALDir, pair), func(rec *wal.Record) error {
		if rec.Seq <= snapSeq {
			return nil
		}
		replayed++
		return applyRecord(eng, rec)
	})
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("replay wal for %s: %w", pair, err)
	}
	if lastSeq < snapSeq {
		lastSeq = snapSeq
	}

	eng.SetStrict(cfg.Strict)
	s.seedReplica(eng)

	s.log.Info("pair recovered",
		zap.String("pair", pair),
		zap.Uint64("snapshot_seq", snapSeq),
		zap.Int("replayed", replayed),
		zap.Uint64("seq", lastSeq))

	return &pairWorker{
		pair:   pair,
		engine: eng,
		wal:    w,
		seq:    sequence.New(lastSeq),
		cmds:   make(chan command, 1024),
		done:   make(chan struct{}),
		svc:    s,
	}, nil
}

// loadSnapshot returns a fresh engine when no snapshot exists. The
// trade sequence resumes from the snapshot's command sequence, which
// keeps it strictly increasing across restarts.
func (s *OrderService) loadSnapshot(pair string) (*engine.Engine, uint64, error) {
	data, found, err := s.store.Read(pair)
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot for %s: %w", pair, err)
	}
	if !found {
		return engine.New(pair), 0, nil
	}

	st, err := snapshot.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode snapshot for %s: %w", pair, err)
	}
	if st.Pair != pair {
		return nil, 0, fmt.Errorf("snapshot pair mismatch: got %s, want %s", st.Pair, pair)
	}
	b, err := book.FromState(st)
	if err != nil {
		return nil, 0, fmt.Errorf("restore book for %s: %w", pair, err)
	}
	return engine.Resume(b, st.Seq), st.Seq, nil
}

func applyRecord(eng *engine.Engine, rec *wal.Record) error {
	switch rec.Type {
	case wal.RecordSubmit:
		o, err := decodeSubmit(rec.Data)
		if err != nil {
			return err
		}
		_, err = eng.Submit(o)
		return err
	case wal.RecordCancel:
		id, account, err := decodeCancel(rec.Data)
		if err != nil {
			return err
		}
		_, err = eng.Cancel(id, account, rec.Time)
		return err
	case wal.RecordExpire:
		now, err := decodeExpire(rec.Data)
		if err != nil {
			return err
		}
		_, err = eng.ExpireDue(now)
		return err
	default:
		return fmt.Errorf("unknown wal record type %d", rec.Type)
	}
}

// seedReplica loads the replica with the book's resting orders in
// level FIFO order, so queue positions survive a restart.
func (s *OrderService) seedReplica(eng *engine.Engine) {
	b := eng.Book()
	var orders []engine.OrderInfo
	for _, side := range []book.Side{book.Bid, book.Ask} {
		levels := b.L2View(side, 0)
		for {
			pv, ok := levels.Next()
			if !ok {
				break
			}
			queue := b.L3View(side, pv.Price)
			for {
				o, ok := queue.Next()
				if !ok {
					break
				}
				orders = append(orders, *engineOrderInfo(&o))
			}
		}
	}
	s.replica.Seed(b.Pair, orders, b.L1View().LastTrade)
}

func engineOrderInfo(o *book.Order) *engine.OrderInfo {
	return &engine.OrderInfo{
		ID:          o.ID,
		Account:     o.Account,
		Pair:        o.Pair,
		Side:        o.Side.String(),
		Kind:        o.Kind.String(),
		Price:       o.Price,
		Original:    o.Original,
		Remaining:   o.Remaining,
		TimeInForce: o.TimeInForce.String(),
		Status:      o.Status.String(),
		ExpiresAt:   o.ExpiresAt,
	}
}
