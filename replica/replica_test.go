package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vela/domain/engine"
)

func restingInfo(id uint64, side string, price, remaining int64) *engine.OrderInfo {
	return &engine.OrderInfo{
		ID: id, Account: "acct", Pair: "BTC-USD", Side: side, Kind: "limit",
		Price: price, Original: remaining, Remaining: remaining,
		TimeInForce: "gtc", Status: "open",
	}
}

func accepted(id uint64, side string, price, remaining int64) engine.Event {
	return engine.Event{
		Type: engine.OrderAccepted, Pair: "BTC-USD",
		Order: restingInfo(id, side, price, remaining),
	}
}

func TestApplyBuildsDepth(t *testing.T) {
	r := New()
	r.Apply(accepted(1, "bid", 100, 5))
	r.Apply(accepted(2, "bid", 100, 3))
	r.Apply(accepted(3, "bid", 90, 1))
	r.Apply(accepted(4, "ask", 110, 7))

	l1 := r.L1("BTC-USD")
	assert.Equal(t, int64(100), l1.BidPrice)
	assert.Equal(t, int64(8), l1.BidVolume)
	assert.Equal(t, int64(110), l1.AskPrice)
	assert.Equal(t, int64(7), l1.AskVolume)

	bids, asks := r.L2("BTC-USD", 0)
	require.Len(t, bids, 2)
	assert.Equal(t, int64(100), bids[0].Price)
	assert.Equal(t, int64(90), bids[1].Price)
	require.Len(t, asks, 1)
}

func TestApplyFillAndRemove(t *testing.T) {
	r := New()
	r.Apply(accepted(1, "ask", 100, 10))

	// Maker partially filled: remaining drops to 6.
	partial := restingInfo(1, "ask", 100, 6)
	partial.Status = "partially_filled"
	r.Apply(engine.Event{
		Type: engine.OrderPartiallyFilled, Pair: "BTC-USD", Order: partial,
	})
	assert.Equal(t, int64(6), r.L1("BTC-USD").AskVolume)

	// Fill removes the order and its empty level.
	filled := restingInfo(1, "ask", 100, 0)
	filled.Status = "filled"
	r.Apply(engine.Event{Type: engine.OrderFilled, Pair: "BTC-USD", Order: filled})
	assert.Zero(t, r.L1("BTC-USD").AskPrice)
}

func TestApplyCancelUnknownIsNoop(t *testing.T) {
	r := New()
	r.Apply(engine.Event{
		Type: engine.OrderCancelled, Pair: "BTC-USD",
		Order: &engine.OrderInfo{ID: 42, Side: "bid", Price: 100},
	})
	assert.Equal(t, int64(0), r.L1("BTC-USD").BidVolume)
}

func TestNonRestingOrdersIgnored(t *testing.T) {
	r := New()

	market := restingInfo(1, "bid", 0, 5)
	market.Kind = "market"
	r.Apply(engine.Event{Type: engine.OrderAccepted, Pair: "BTC-USD", Order: market})

	cancelled := restingInfo(2, "bid", 100, 5)
	cancelled.Status = "cancelled"
	r.Apply(engine.Event{Type: engine.OrderAccepted, Pair: "BTC-USD", Order: cancelled})

	bids, _ := r.L2("BTC-USD", 0)
	assert.Empty(t, bids)
}

func TestLastTradeFromTradeEvents(t *testing.T) {
	r := New()
	r.Apply(engine.Event{
		Type: engine.TradeExecuted, Pair: "BTC-USD",
		Trade: &engine.TradeInfo{MakerID: 1, TakerID: 2, Price: 123, Amount: 4, Seq: 1},
	})
	assert.Equal(t, int64(123), r.L1("BTC-USD").LastTrade)
}

func TestL3FIFOWithinLevel(t *testing.T) {
	r := New()
	r.Apply(accepted(9, "bid", 100, 1))
	r.Apply(accepted(2, "bid", 100, 2))
	r.Apply(accepted(5, "bid", 100, 3))

	bids, _ := r.L3("BTC-USD")
	require.Len(t, bids, 3)
	assert.Equal(t, uint64(9), bids[0].ID)
	assert.Equal(t, uint64(2), bids[1].ID)
	assert.Equal(t, uint64(5), bids[2].ID)
}

func TestL2DepthLimit(t *testing.T) {
	r := New()
	for i := uint64(1); i <= 5; i++ {
		r.Apply(accepted(i, "ask", int64(100+i), 1))
	}
	_, asks := r.L2("BTC-USD", 3)
	require.Len(t, asks, 3)
	assert.Equal(t, int64(101), asks[0].Price, "asks walk low to high")
}

func TestSeedReplacesDepth(t *testing.T) {
	r := New()
	r.Apply(accepted(1, "bid", 50, 1))

	r.Seed("BTC-USD", []engine.OrderInfo{
		*restingInfo(7, "bid", 100, 4),
		*restingInfo(8, "ask", 110, 2),
	}, 105)

	l1 := r.L1("BTC-USD")
	assert.Equal(t, int64(100), l1.BidPrice)
	assert.Equal(t, int64(110), l1.AskPrice)
	assert.Equal(t, int64(105), l1.LastTrade)

	bids, _ := r.L2("BTC-USD", 0)
	require.Len(t, bids, 1, "seed must replace, not merge")
}

func TestUnknownPairQueries(t *testing.T) {
	r := New()
	assert.Zero(t, r.L1("NOPE"))
	bids, asks := r.L2("NOPE", 5)
	assert.Nil(t, bids)
	assert.Nil(t, asks)
}
