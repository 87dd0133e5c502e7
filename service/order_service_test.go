package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vela/domain/book"
	"vela/domain/engine"
	"vela/outbox"
	"vela/replica"
	"vela/snapshot"
)

type testEnv struct {
	dir   string
	store *snapshot.PebbleStore
	ob    *outbox.Outbox
	rep   *replica.Replica
	svc   *OrderService
}

func startService(t *testing.T, dir string) *testEnv {
	t.Helper()

	store, err := snapshot.OpenPebble(filepath.Join(dir, "snapshots"))
	require.NoError(t, err)
	ob, err := outbox.Open(filepath.Join(dir, "outbox"))
	require.NoError(t, err)
	rep := replica.New()

	svc, err := New(Config{
		WALDir: filepath.Join(dir, "wal"),
		Pairs:  []string{"BTC-USD"},
		Strict: true,
	}, store, ob, rep, zap.NewNop())
	require.NoError(t, err)

	env := &testEnv{dir: dir, store: store, ob: ob, rep: rep, svc: svc}
	t.Cleanup(func() { env.shutdown(t) })
	return env
}

func (e *testEnv) shutdown(t *testing.T) {
	t.Helper()
	if e.svc != nil {
		require.NoError(t, e.svc.Close())
		e.svc = nil
	}
	if e.store != nil {
		require.NoError(t, e.store.Close())
		e.store = nil
	}
	if e.ob != nil {
		require.NoError(t, e.ob.Close())
		e.ob = nil
	}
}

func bid(id uint64, price, amount int64) *book.Order {
	return &book.Order{
		ID: id, Account: "alice", Pair: "BTC-USD",
		Side: book.Bid, Kind: book.Limit, Price: price, Original: amount,
	}
}

func ask(id uint64, price, amount int64) *book.Order {
	return &book.Order{
		ID: id, Account: "bob", Pair: "BTC-USD",
		Side: book.Ask, Kind: book.Limit, Price: price, Original: amount,
	}
}

func TestSubmitThroughService(t *testing.T) {
	env := startService(t, t.TempDir())
	ctx := context.Background()

	events, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engine.OrderAccepted, events[0].Type)
	assert.NotZero(t, events[0].Seq, "published events carry the outbox sequence")

	events, err = env.svc.SubmitOrder(ctx, ask(2, 100, 4))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, engine.TradeExecuted, events[0].Type)

	// Replica tracks the book through the published events.
	l1 := env.rep.L1("BTC-USD")
	assert.Equal(t, int64(100), l1.BidPrice)
	assert.Equal(t, int64(6), l1.BidVolume)
	assert.Equal(t, int64(100), l1.LastTrade)

	// Every event landed in the outbox, in order.
	pending, err := env.ob.ScanPending(100)
	require.NoError(t, err)
	require.Len(t, pending, 4)
	for i := 1; i < len(pending); i++ {
		assert.Less(t, pending[i-1].Seq, pending[i].Seq)
	}
}

func TestCancelThroughService(t *testing.T) {
	env := startService(t, t.TempDir())
	ctx := context.Background()

	_, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)

	events, err := env.svc.CancelOrder(ctx, "BTC-USD", 1, "alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engine.OrderCancelled, events[0].Type)
	assert.Zero(t, env.rep.L1("BTC-USD").BidVolume)
}

func TestUnknownPairRejected(t *testing.T) {
	env := startService(t, t.TempDir())

	o := bid(1, 100, 10)
	o.Pair = "ETH-USD"
	_, err := env.svc.SubmitOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrUnknownPair)
}

func TestRecoveryFromWALOnly(t *testing.T) {
	dir := t.TempDir()
	env := startService(t, dir)
	ctx := context.Background()

	_, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	_, err = env.svc.SubmitOrder(ctx, ask(2, 100, 4))
	require.NoError(t, err)
	env.shutdown(t)

	// No snapshot was taken; the whole state comes from the journal.
	env2 := startService(t, dir)
	l1 := env2.rep.L1("BTC-USD")
	assert.Equal(t, int64(100), l1.BidPrice)
	assert.Equal(t, int64(6), l1.BidVolume)

	// The recovered book keeps matching where it left off.
	events, err := env2.svc.SubmitOrder(ctx, ask(3, 100, 6))
	require.NoError(t, err)
	assert.Equal(t, engine.TradeExecuted, events[0].Type)
	assert.Zero(t, env2.rep.L1("BTC-USD").BidVolume)
}

func TestRecoveryFromSnapshotAndWAL(t *testing.T) {
	dir := t.TempDir()
	env := startService(t, dir)
	ctx := context.Background()

	_, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	require.NoError(t, env.svc.Snapshot(ctx, "BTC-USD"))

	// Commands after the snapshot live only in the WAL.
	_, err = env.svc.SubmitOrder(ctx, bid(2, 101, 3))
	require.NoError(t, err)
	_, err = env.svc.CancelOrder(ctx, "BTC-USD", 1, "alice")
	require.NoError(t, err)
	env.shutdown(t)

	env2 := startService(t, dir)
	l1 := env2.rep.L1("BTC-USD")
	assert.Equal(t, int64(101), l1.BidPrice)
	assert.Equal(t, int64(3), l1.BidVolume)

	bids, _ := env2.rep.L3("BTC-USD")
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(2), bids[0].ID)
}

func TestDuplicateIDAfterRecovery(t *testing.T) {
	dir := t.TempDir()
	env := startService(t, dir)
	ctx := context.Background()

	_, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	env.shutdown(t)

	env2 := startService(t, dir)
	events, err := env2.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engine.OrderRejected, events[0].Type)
}

func TestEventSeqResumesAfterRestart(t *testing.T) {
	dir := t.TempDir()
	env := startService(t, dir)
	ctx := context.Background()

	_, err := env.svc.SubmitOrder(ctx, bid(1, 100, 10))
	require.NoError(t, err)
	env.shutdown(t)

	// The first event is still undelivered. Events published after the
	// restart must continue the outbox sequence, not reuse it.
	env2 := startService(t, dir)
	events, err := env2.svc.SubmitOrder(ctx, ask(2, 200, 5))
	require.NoError(t, err)
	require.Len(t, events, 1)

	pending, err := env2.ob.ScanPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Less(t, pending[0].Seq, pending[1].Seq)
	assert.Contains(t, string(pending[0].Payload), `"id":1`)
	assert.Contains(t, string(pending[1].Payload), `"id":2`)
}

type captureNotifier struct {
	payloads [][]byte
}

func (c *captureNotifier) Broadcast(p []byte) { c.payloads = append(c.payloads, p) }

func TestNotifierReceivesEveryEvent(t *testing.T) {
	env := startService(t, t.TempDir())
	n := &captureNotifier{}
	env.svc.SetNotifier(n)

	_, err := env.svc.SubmitOrder(context.Background(), bid(1, 100, 10))
	require.NoError(t, err)
	_, err = env.svc.SubmitOrder(context.Background(), ask(2, 100, 10))
	require.NoError(t, err)

	assert.Len(t, n.payloads, 4) // accepted, trade, maker filled, taker filled
}
