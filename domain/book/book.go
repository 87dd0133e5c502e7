package book

// OrderBook composes the two side indexes and the order storage for
// one trading pair. It is mutated exclusively by that pair's matching
// worker.
type OrderBook struct {
	Pair string

	bids    *rbTree
	asks    *rbTree
	storage *OrderStorage
	l1      L1
}

func New(pair string) *OrderBook {
	return &OrderBook{
		Pair:    pair,
		bids:    newRBTree(),
		asks:    newRBTree(),
		storage: newOrderStorage(),
	}
}

func (b *OrderBook) Storage() *OrderStorage { return b.storage }

func (b *OrderBook) side(s Side) *rbTree {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// Best returns the best level of a side: highest bid or lowest ask.
// Nil when the side is empty.
func (b *OrderBook) Best(s Side) *PriceLevel {
	if s == Bid {
		return b.bids.MaxLevel()
	}
	return b.asks.MinLevel()
}

// HeadOrder returns the order at the front of the side's best level.
func (b *OrderBook) HeadOrder(s Side) *Order {
	lvl := b.Best(s)
	if lvl == nil {
		return nil
	}
	return b.storage.Get(lvl.Head())
}

// Insert rests o on the book: appends it to the level at its price
// (creating the level in sorted position if needed) and registers it
// in storage.
func (b *OrderBook) Insert(o *Order) error {
	if b.storage.Get(o.ID) != nil {
		return ErrDuplicateID
	}
	lvl := b.side(o.Side).UpsertLevel(o.Price)
	lvl.append(b.storage, o)
	b.storage.register(o, lvl)
	b.refreshL1()
	return nil
}

// Remove takes o off the book entirely: unlinks it from its level
// (deleting the level if it empties), and drops the storage entry.
// Returns ErrNotFound for unknown ids; callers on the cancel path
// treat that as idempotent.
func (b *OrderBook) Remove(id uint64) (*Order, error) {
	o := b.storage.Get(id)
	if o == nil {
		return nil, ErrNotFound
	}
	lvl := b.storage.Level(id)
	lvl.unlink(b.storage, o, o.Remaining)
	b.storage.unregister(id)
	if lvl.Count == 0 {
		b.side(o.Side).DeleteLevel(lvl.Price)
	}
	b.refreshL1()
	return o, nil
}

// Reduce decrements a resting order's remaining amount and its
// level's cached volume by qty. When the order is exhausted it is
// removed from the book with status Filled.
func (b *OrderBook) Reduce(id uint64, qty int64) (*Order, error) {
	o := b.storage.Get(id)
	if o == nil {
		return nil, ErrNotFound
	}
	if qty <= 0 || qty > o.Remaining {
		return nil, invariant(b.Pair, "reduce %d by %d with remaining %d", id, qty, o.Remaining)
	}
	o.Remaining -= qty
	lvl := b.storage.Level(id)
	lvl.Volume -= qty
	if o.Remaining == 0 {
		o.Status = Filled
		lvl.unlink(b.storage, o, 0)
		b.storage.unregister(id)
		if lvl.Count == 0 {
			b.side(o.Side).DeleteLevel(lvl.Price)
		}
	} else {
		o.Status = PartiallyFilled
	}
	b.refreshL1()
	return o, nil
}

// SetLastTrade records the most recent execution price on the L1
// cache.
func (b *OrderBook) SetLastTrade(price int64) {
	b.l1.LastTrade = price
}

// refreshL1 re-reads the best level of each side. O(1) against the
// trees; never a full rescan.
func (b *OrderBook) refreshL1() {
	if best := b.bids.MaxLevel(); best != nil {
		b.l1.BidPrice, b.l1.BidVolume = best.Price, best.Volume
	} else {
		b.l1.BidPrice, b.l1.BidVolume = 0, 0
	}
	if best := b.asks.MinLevel(); best != nil {
		b.l1.AskPrice, b.l1.AskVolume = best.Price, best.Volume
	} else {
		b.l1.AskPrice, b.l1.AskVolume = 0, 0
	}
}

// Validate checks the book's structural invariants: strictly ordered
// unique prices, level volume caches equal to the sum of queued
// remaining amounts, storage consistent with the queues, and an
// uncrossed book. Any failure is fatal for the pair.
func (b *OrderBook) Validate() error {
	total := 0
	for _, s := range []Side{Bid, Ask} {
		var lastPrice int64
		first := true
		var err error
		b.side(s).ForEachAscending(func(lvl *PriceLevel) bool {
			if !first && lvl.Price <= lastPrice {
				err = invariant(b.Pair, "%s levels not strictly ordered at %d", s, lvl.Price)
				return false
			}
			first = false
			lastPrice = lvl.Price
			var volume int64
			count := 0
			for id := lvl.Head(); id != 0; id = b.storage.Next(id) {
				o := b.storage.Get(id)
				if o == nil {
					err = invariant(b.Pair, "queued id %d missing from storage", id)
					return false
				}
				if o.Side != s || o.Price != lvl.Price {
					err = invariant(b.Pair, "order %d misfiled at %s/%d", id, s, lvl.Price)
					return false
				}
				if o.Remaining <= 0 || o.Remaining > o.Original {
					err = invariant(b.Pair, "order %d remaining %d of %d", id, o.Remaining, o.Original)
					return false
				}
				volume += o.Remaining
				count++
			}
			if count == 0 {
				err = invariant(b.Pair, "empty level persisted at %s/%d", s, lvl.Price)
				return false
			}
			if volume != lvl.Volume || count != lvl.Count {
				err = invariant(b.Pair, "level %s/%d cache volume=%d count=%d, actual volume=%d count=%d",
					s, lvl.Price, lvl.Volume, lvl.Count, volume, count)
				return false
			}
			total += count
			return true
		})
		if err != nil {
			return err
		}
	}
	if total != b.storage.Len() {
		return invariant(b.Pair, "storage holds %d orders, queues hold %d", b.storage.Len(), total)
	}
	if b.l1.BidPrice != 0 && b.l1.AskPrice != 0 && b.l1.BidPrice >= b.l1.AskPrice {
		return invariant(b.Pair, "book crossed: bid %d >= ask %d", b.l1.BidPrice, b.l1.AskPrice)
	}
	return nil
}
