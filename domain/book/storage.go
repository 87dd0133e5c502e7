package book

// OrderStorage indexes every resting order by id: the order record,
// its queue links, and the level it currently sits in. All lookups
// are O(1); removal from storage and from the level queue happen as
// one step inside OrderBook so the two can never disagree.
type OrderStorage struct {
	orders map[uint64]*Order
	nodes  map[uint64]*listNode
	levels map[uint64]*PriceLevel
}

func newOrderStorage() *OrderStorage {
	return &OrderStorage{
		orders: make(map[uint64]*Order),
		nodes:  make(map[uint64]*listNode),
		levels: make(map[uint64]*PriceLevel),
	}
}

func (st *OrderStorage) Len() int { return len(st.orders) }

// Get returns the resting order for id, or nil.
func (st *OrderStorage) Get(id uint64) *Order { return st.orders[id] }

// Level returns the price level currently holding id, or nil.
func (st *OrderStorage) Level(id uint64) *PriceLevel { return st.levels[id] }

// Next returns the id queued after id within its level, zero at the
// tail.
func (st *OrderStorage) Next(id uint64) uint64 {
	n, ok := st.nodes[id]
	if !ok {
		return 0
	}
	return n.next
}

func (st *OrderStorage) register(o *Order, lvl *PriceLevel) {
	st.orders[o.ID] = o
	st.levels[o.ID] = lvl
}

func (st *OrderStorage) unregister(id uint64) {
	delete(st.orders, id)
	delete(st.levels, id)
}

// ForEach visits every indexed order. Iteration order is undefined;
// callers needing determinism sort the ids themselves.
func (st *OrderStorage) ForEach(fn func(*Order)) {
	for _, o := range st.orders {
		fn(o)
	}
}
