// Package replica maintains a read-only depth view per pair, built
// purely from engine events. API queries hit the replica, never the
// matching goroutine, so reads cannot stall the match loop.
package replica

import (
	"sync"

	"github.com/tidwall/btree"

	"vela/domain/book"
	"vela/domain/engine"
)

type restingOrder struct {
	info engine.OrderInfo
}

type level struct {
	price  int64
	volume int64
	ids    []uint64
}

type pairDepth struct {
	bids      *btree.Map[int64, *level]
	asks      *btree.Map[int64, *level]
	orders    map[uint64]*restingOrder
	lastTrade int64
}

func newPairDepth() *pairDepth {
	return &pairDepth{
		bids:   btree.NewMap[int64, *level](32),
		asks:   btree.NewMap[int64, *level](32),
		orders: make(map[uint64]*restingOrder),
	}
}

// Replica is safe for concurrent readers; Apply takes the write lock.
type Replica struct {
	mu    sync.RWMutex
	pairs map[string]*pairDepth
}

func New() *Replica {
	return &Replica{pairs: make(map[string]*pairDepth)}
}

func (r *Replica) pair(name string) *pairDepth {
	pd, ok := r.pairs[name]
	if !ok {
		pd = newPairDepth()
		r.pairs[name] = pd
	}
	return pd
}

// Apply folds one event into the depth view. Events must be applied in
// emission order; the view then matches the book after every command.
func (r *Replica) Apply(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pd := r.pair(ev.Pair)

	switch ev.Type {
	case engine.TradeExecuted:
		if ev.Trade != nil {
			pd.lastTrade = ev.Trade.Price
		}
	case engine.OrderAccepted, engine.OrderPartiallyFilled:
		if ev.Order != nil && resting(ev.Order) {
			pd.upsert(ev.Order)
		}
	case engine.OrderFilled, engine.OrderCancelled, engine.OrderExpired:
		if ev.Order != nil {
			pd.remove(ev.Order.ID)
		}
	}
}

// resting reports whether the order image describes an order that sits
// on the book after the command.
func resting(o *engine.OrderInfo) bool {
	return o.Kind == "limit" && o.Remaining > 0 &&
		(o.Status == "open" || o.Status == "partially_filled")
}

func (pd *pairDepth) tree(side string) *btree.Map[int64, *level] {
	if side == "bid" {
		return pd.bids
	}
	return pd.asks
}

func (pd *pairDepth) upsert(o *engine.OrderInfo) {
	existing, known := pd.orders[o.ID]
	tree := pd.tree(o.Side)

	lv, ok := tree.Get(o.Price)
	if !ok {
		lv = &level{price: o.Price}
		tree.Set(o.Price, lv)
	}

	if known {
		lv.volume += o.Remaining - existing.info.Remaining
		existing.info = *o
		return
	}
	lv.volume += o.Remaining
	lv.ids = append(lv.ids, o.ID)
	pd.orders[o.ID] = &restingOrder{info: *o}
}

func (pd *pairDepth) remove(id uint64) {
	ro, ok := pd.orders[id]
	if !ok {
		return
	}
	delete(pd.orders, id)

	tree := pd.tree(ro.info.Side)
	lv, ok := tree.Get(ro.info.Price)
	if !ok {
		return
	}
	lv.volume -= ro.info.Remaining
	for i, oid := range lv.ids {
		if oid == id {
			lv.ids = append(lv.ids[:i], lv.ids[i+1:]...)
			break
		}
	}
	if len(lv.ids) == 0 {
		tree.Delete(ro.info.Price)
	}
}

// Seed replaces a pair's depth wholesale from a recovered book. The
// orders must arrive in level FIFO order.
func (r *Replica) Seed(pair string, orders []engine.OrderInfo, lastTrade int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pd := newPairDepth()
	pd.lastTrade = lastTrade
	for i := range orders {
		pd.upsert(&orders[i])
	}
	r.pairs[pair] = pd
}

// L1 returns top of book for a pair. Zero values mean an empty side.
func (r *Replica) L1(pair string) book.L1 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pd, ok := r.pairs[pair]
	if !ok {
		return book.L1{}
	}
	var l1 book.L1
	l1.LastTrade = pd.lastTrade
	if price, lv, ok := pd.bids.Max(); ok {
		l1.BidPrice, l1.BidVolume = price, lv.volume
	}
	if price, lv, ok := pd.asks.Min(); ok {
		l1.AskPrice, l1.AskVolume = price, lv.volume
	}
	return l1
}

// L2 returns aggregated depth, best price first, at most depth levels
// per side. depth <= 0 means unlimited.
func (r *Replica) L2(pair string, depth int) (bids, asks []book.PriceVolume) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pd, ok := r.pairs[pair]
	if !ok {
		return nil, nil
	}
	pd.bids.Reverse(func(price int64, lv *level) bool {
		bids = append(bids, book.PriceVolume{Price: price, Volume: lv.volume})
		return depth <= 0 || len(bids) < depth
	})
	pd.asks.Scan(func(price int64, lv *level) bool {
		asks = append(asks, book.PriceVolume{Price: price, Volume: lv.volume})
		return depth <= 0 || len(asks) < depth
	})
	return bids, asks
}

// L3 returns every resting order, best price first, FIFO within a
// level.
func (r *Replica) L3(pair string) (bids, asks []engine.OrderInfo) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pd, ok := r.pairs[pair]
	if !ok {
		return nil, nil
	}
	collect := func(out *[]engine.OrderInfo) func(int64, *level) bool {
		return func(price int64, lv *level) bool {
			for _, id := range lv.ids {
				*out = append(*out, pd.orders[id].info)
			}
			return true
		}
	}
	pd.bids.Reverse(collect(&bids))
	pd.asks.Scan(collect(&asks))
	return bids, asks
}

// Pairs lists every pair the replica has seen events for.
func (r *Replica) Pairs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.pairs))
	for p := range r.pairs {
		out = append(out, p)
	}
	return out
}
