package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"vela/domain/book"
	"vela/domain/engine"
	"vela/outbox"
	"vela/replica"
	"vela/sequence"
	"vela/snapshot"
	"vela/wal"
)

var (
	ErrUnknownPair = errors.New("service: unknown pair")
	ErrStopped     = errors.New("service: pair worker stopped")
)

// Notifier receives every published event payload, e.g. a websocket
// hub fanning events out to subscribers. May be nil.
type Notifier interface {
	Broadcast(payload []byte)
}

type Config struct {
	WALDir         string
	WALSegmentSize int64
	Pairs          []string
	Strict         bool
}

type cmdKind uint8

const (
	cmdSubmit cmdKind = iota
	cmdCancel
	cmdExpire
	cmdSnapshot
)

type result struct {
	events []engine.Event
	err    error
}

type command struct {
	kind    cmdKind
	order   *book.Order
	orderID uint64
	account string
	now     int64
	reply   chan result
}

// OrderService is the only write entry point into the system. It owns
// one worker per pair plus the shared outbox, replica, and snapshot
// store.
type OrderService struct {
	store    *snapshot.PebbleStore
	outbox   *outbox.Outbox
	replica  *replica.Replica
	eventSeq *sequence.Sequencer
	notifier Notifier
	log      *zap.Logger

	workers map[string]*pairWorker
}

// pairWorker serializes every mutation of one pair's book. It is the
// only goroutine that touches its engine.
type pairWorker struct {
	pair   string
	engine *engine.Engine
	wal    *wal.WAL
	seq    *sequence.Sequencer
	cmds   chan command
	done   chan struct{}
	svc    *OrderService
}

// New recovers every configured pair from its snapshot and WAL, then
// starts the pair workers. The service is ready for traffic when New
// returns.
func New(
	cfg Config,
	store *snapshot.PebbleStore,
	ob *outbox.Outbox,
	rep *replica.Replica,
	log *zap.Logger,
) (*OrderService, error) {
	// The event sequence must continue above anything already in the
	// outbox, or post-restart events would overwrite entries the
	// broadcaster has not delivered yet.
	maxSeq, err := ob.MaxSeq()
	if err != nil {
		return nil, err
	}

	s := &OrderService{
		store:    store,
		outbox:   ob,
		replica:  rep,
		eventSeq: sequence.New(maxSeq),
		log:      log,
		workers:  make(map[string]*pairWorker, len(cfg.Pairs)),
	}

	for _, pair := range cfg.Pairs {
		w, err := s.recoverPair(pair, cfg)
		if err != nil {
			return nil, err
		}
		s.workers[pair] = w
		go w.run()
	}
	return s, nil
}

// SetNotifier attaches an event fan-out sink. Call before traffic.
func (s *OrderService) SetNotifier(n Notifier) { s.notifier = n }

func (s *OrderService) Replica() *replica.Replica { return s.replica }

func (s *OrderService) Pairs() []string {
	out := make([]string, 0, len(s.workers))
	for p := range s.workers {
		out = append(out, p)
	}
	return out
}

func (s *OrderService) dispatch(ctx context.Context, pair string, cmd command) ([]engine.Event, error) {
	w, ok := s.workers[pair]
	if !ok {
		return nil, ErrUnknownPair
	}
	cmd.reply = make(chan result, 1)

	select {
	case w.cmds <- cmd:
	case <-w.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res.events, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		// The worker may have replied just before stopping.
		select {
		case res := <-cmd.reply:
			return res.events, res.err
		default:
			return nil, ErrStopped
		}
	}
}

// SubmitOrder journals and executes one order command, returning the
// events it produced in emission order.
func (s *OrderService) SubmitOrder(ctx context.Context, o *book.Order) ([]engine.Event, error) {
	if o.Timestamp == 0 {
		o.Timestamp = time.Now().UnixMilli()
	}
	return s.dispatch(ctx, o.Pair, command{kind: cmdSubmit, order: o})
}

// CancelOrder journals and executes one cancel command. An empty
// account skips the ownership check.
func (s *OrderService) CancelOrder(ctx context.Context, pair string, id uint64, account string) ([]engine.Event, error) {
	return s.dispatch(ctx, pair, command{
		kind: cmdCancel, orderID: id, account: account, now: time.Now().UnixMilli(),
	})
}

// Snapshot forces a snapshot of one pair through its worker.
func (s *OrderService) Snapshot(ctx context.Context, pair string) error {
	_, err := s.dispatch(ctx, pair, command{kind: cmdSnapshot})
	return err
}

func (s *OrderService) expirePair(ctx context.Context, pair string, now int64) {
	_, err := s.dispatch(ctx, pair, command{kind: cmdExpire, now: now})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("expiry sweep failed", zap.String("pair", pair), zap.Error(err))
	}
}

// StartExpiryJob sweeps time-limited orders on every pair.
func (s *OrderService) StartExpiryJob(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UnixMilli()
				for pair := range s.workers {
					s.expirePair(ctx, pair, now)
				}
			}
		}
	}()
}

// Close stops every worker and closes their logs. The shared stores
// are owned by the caller and closed there.
func (s *OrderService) Close() error {
	var firstErr error
	for _, w := range s.workers {
		w.stop()
		if err := w.wal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func pairWALDir(root, pair string) string {
	return filepath.Join(root, pair)
}

func (w *pairWorker) run() {
	for {
		select {
		case <-w.done:
			// Fail queued commands instead of leaving callers waiting.
			for {
				select {
				case cmd := <-w.cmds:
					cmd.reply <- result{err: ErrStopped}
				default:
					return
				}
			}
		case cmd := <-w.cmds:
			w.handle(cmd)
		}
	}
}

func (w *pairWorker) stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *pairWorker) handle(cmd command) {
	if cmd.kind == cmdSnapshot {
		cmd.reply <- result{err: w.snapshot()}
		return
	}

	seq := w.seq.Next()
	rec, events, err := w.journalAndApply(seq, cmd)
	if err == nil && rec != nil {
		err = w.svc.publish(events)
	}
	cmd.reply <- result{events: events, err: err}

	var inv *book.InvariantError
	if errors.As(err, &inv) {
		// The book can no longer be trusted. Stop taking commands
		// for this pair; other pairs are unaffected.
		w.svc.log.Error("invariant violation, stopping pair",
			zap.String("pair", w.pair), zap.String("detail", inv.Detail))
		w.stop()
	}
}

// journalAndApply writes the command to the WAL first, then applies it
// to the engine. A command that cannot be journaled is never applied.
func (w *pairWorker) journalAndApply(seq uint64, cmd command) (*wal.Record, []engine.Event, error) {
	var rec *wal.Record
	switch cmd.kind {
	case cmdSubmit:
		rec = wal.NewRecord(wal.RecordSubmit, seq, encodeSubmit(cmd.order))
	case cmdCancel:
		rec = wal.NewRecord(wal.RecordCancel, seq, encodeCancel(cmd.orderID, cmd.account))
	case cmdExpire:
		rec = wal.NewRecord(wal.RecordExpire, seq, encodeExpire(cmd.now))
	}

	if err := w.wal.Append(rec); err != nil {
		return nil, nil, err
	}
	if err := w.wal.Sync(); err != nil {
		return nil, nil, err
	}

	var events []engine.Event
	var err error
	switch cmd.kind {
	case cmdSubmit:
		events, err = w.engine.Submit(cmd.order)
	case cmdCancel:
		events, err = w.engine.Cancel(cmd.orderID, cmd.account, cmd.now)
	case cmdExpire:
		events, err = w.engine.ExpireDue(cmd.now)
	}
	return rec, events, err
}

// publish assigns each event its outbox sequence, persists it, folds
// it into the replica, and fans it out, preserving emission order.
func (s *OrderService) publish(events []engine.Event) error {
	for i := range events {
		events[i].Seq = s.eventSeq.Next()

		payload, err := json.Marshal(events[i])
		if err != nil {
			return err
		}
		if err := s.outbox.Append(events[i].Seq, payload); err != nil {
			return err
		}
		s.replica.Apply(events[i])
		if s.notifier != nil {
			s.notifier.Broadcast(payload)
		}
	}
	return nil
}

// snapshot persists the book's state, then truncates the WAL segments
// the snapshot covers and garbage-collects acked outbox entries. Runs
// inside the worker, so the book is quiescent.
func (w *pairWorker) snapshot() error {
	st := w.engine.Book().Snapshot(w.seq.Current())
	data := snapshot.Encode(st)

	if err := w.svc.store.Write(w.pair, data); err != nil {
		return err
	}
	if err := w.wal.TruncateBefore(st.Seq); err != nil {
		return err
	}
	if err := w.svc.outbox.TruncateAckedUpTo(w.svc.eventSeq.Current()); err != nil {
		return err
	}

	w.svc.log.Info("snapshot written",
		zap.String("pair", w.pair),
		zap.Uint64("seq", st.Seq),
		zap.Int("orders", len(st.Orders)),
		zap.Int("bytes", len(data)))
	return nil
}
