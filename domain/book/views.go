package book

// L1 is the best-of-book view: best bid and ask with their aggregate
// volumes, plus the last execution price. A zero price means the side
// is empty.
type L1 struct {
	BidPrice  int64
	BidVolume int64
	AskPrice  int64
	AskVolume int64
	LastTrade int64
}

// PriceVolume is one L2 depth entry.
type PriceVolume struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
}

// L1View returns the incrementally maintained L1 cache.
func (b *OrderBook) L1View() L1 { return b.l1 }

// L2Cursor walks one side's levels best-to-worst up to a depth limit.
// It is lazy and restartable; Reset rewinds to the best level.
type L2Cursor struct {
	tree  *rbTree
	desc  bool
	depth int
	node  *rbNode
	seen  int
}

// L2View opens a depth cursor over side. depth <= 0 means unlimited.
func (b *OrderBook) L2View(s Side, depth int) *L2Cursor {
	c := &L2Cursor{tree: b.side(s), desc: s == Bid, depth: depth}
	c.Reset()
	return c
}

func (c *L2Cursor) Reset() {
	if c.desc {
		c.node = c.tree.maxNode(c.tree.root)
	} else {
		c.node = c.tree.minNode(c.tree.root)
	}
	c.seen = 0
}

// Next yields the next (price, volume) pair, best first.
func (c *L2Cursor) Next() (PriceVolume, bool) {
	if c.node == c.tree.nil || (c.depth > 0 && c.seen >= c.depth) {
		return PriceVolume{}, false
	}
	lvl := c.node.level
	if c.desc {
		c.node = c.tree.prev(c.node)
	} else {
		c.node = c.tree.next(c.node)
	}
	c.seen++
	return PriceVolume{Price: lvl.Price, Volume: lvl.Volume}, true
}

// L3Cursor walks the individual orders of one price level in arrival
// order.
type L3Cursor struct {
	st    *OrderStorage
	level *PriceLevel
	cur   uint64
}

// L3View opens a cursor over the level at price on side. The cursor
// is empty when no such level exists.
func (b *OrderBook) L3View(s Side, price int64) *L3Cursor {
	c := &L3Cursor{st: b.storage, level: b.side(s).FindLevel(price)}
	c.Reset()
	return c
}

func (c *L3Cursor) Reset() {
	if c.level != nil {
		c.cur = c.level.Head()
	} else {
		c.cur = 0
	}
}

// Next yields a copy of the next order in the queue.
func (c *L3Cursor) Next() (Order, bool) {
	if c.cur == 0 {
		return Order{}, false
	}
	o := c.st.Get(c.cur)
	c.cur = c.st.Next(c.cur)
	return *o, true
}
