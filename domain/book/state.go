package book

import "sort"

// LevelState is one serialized price level: price, cached volume, and
// the order ids in queue (FIFO) order.
type LevelState struct {
	Price  int64
	Volume int64
	IDs    []uint64
}

// State is the full structural image of a book, in the mandated
// component order: storage contents first, then the two side lists
// level by level, then the L1 cache. The L1 cache is persisted rather
// than recomputed so a restore can detect corruption.
type State struct {
	Pair   string
	Seq    uint64
	Orders []Order      // sorted by id
	Bids   []LevelState // best (highest) first
	Asks   []LevelState // best (lowest) first
	L1     L1
}

// Snapshot captures the book as a State. The caller must have the
// book quiesced; the per-pair worker takes snapshots between
// commands.
func (b *OrderBook) Snapshot(seq uint64) *State {
	st := &State{Pair: b.Pair, Seq: seq, L1: b.l1}

	st.Orders = make([]Order, 0, b.storage.Len())
	b.storage.ForEach(func(o *Order) {
		st.Orders = append(st.Orders, *o)
	})
	sort.Slice(st.Orders, func(i, j int) bool { return st.Orders[i].ID < st.Orders[j].ID })

	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		st.Bids = append(st.Bids, LevelState{
			Price:  lvl.Price,
			Volume: lvl.Volume,
			IDs:    lvl.orderIDs(b.storage),
		})
		return true
	})
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		st.Asks = append(st.Asks, LevelState{
			Price:  lvl.Price,
			Volume: lvl.Volume,
			IDs:    lvl.orderIDs(b.storage),
		})
		return true
	})
	return st
}

// Restore rebuilds a book from a State: orders first, then each level
// re-inserted in the exact persisted queue order (anything else would
// scramble FIFO priority across a restart), then the L1 cache is
// recomputed and compared against the persisted copy. Any mismatch
// fails the whole restore with ErrCorruption wrapped in an
// InvariantError-grade detail; no partial book is ever returned.
func (b *OrderBook) restore(st *State) error {
	byID := make(map[uint64]*Order, len(st.Orders))
	for i := range st.Orders {
		o := st.Orders[i]
		if byID[o.ID] != nil {
			return corruptionf("duplicate order id %d", o.ID)
		}
		if o.Remaining <= 0 || o.Remaining > o.Original {
			return corruptionf("order %d remaining %d of %d", o.ID, o.Remaining, o.Original)
		}
		byID[o.ID] = &o
	}

	restoreSide := func(s Side, levels []LevelState) error {
		var lastPrice int64
		for i, ls := range levels {
			if i > 0 {
				ordered := ls.Price < lastPrice // bids descend
				if s == Ask {
					ordered = ls.Price > lastPrice
				}
				if !ordered {
					return corruptionf("%s levels out of order at %d", s, ls.Price)
				}
			}
			lastPrice = ls.Price
			var volume int64
			for _, id := range ls.IDs {
				o := byID[id]
				if o == nil {
					return corruptionf("level %d references unknown order %d", ls.Price, id)
				}
				if o.Side != s || o.Price != ls.Price {
					return corruptionf("order %d does not belong at %s/%d", id, s, ls.Price)
				}
				if err := b.Insert(o); err != nil {
					return corruptionf("reinsert order %d: %v", id, err)
				}
				delete(byID, id)
				volume += o.Remaining
			}
			if volume != ls.Volume {
				return corruptionf("level %s/%d persisted volume %d, orders sum to %d",
					s, ls.Price, ls.Volume, volume)
			}
		}
		return nil
	}
	if err := restoreSide(Bid, st.Bids); err != nil {
		return err
	}
	if err := restoreSide(Ask, st.Asks); err != nil {
		return err
	}
	if len(byID) != 0 {
		return corruptionf("%d stored orders referenced by no level", len(byID))
	}

	// Cross-check the recomputed L1 against the persisted cache.
	b.l1.LastTrade = st.L1.LastTrade
	if b.l1 != st.L1 {
		return corruptionf("recomputed L1 %+v disagrees with persisted %+v", b.l1, st.L1)
	}
	return b.Validate()
}

// FromState builds a fresh book from a snapshot State, or fails with
// ErrCorruption without returning a partial book.
func FromState(st *State) (*OrderBook, error) {
	b := New(st.Pair)
	if err := b.restore(st); err != nil {
		return nil, err
	}
	return b, nil
}
