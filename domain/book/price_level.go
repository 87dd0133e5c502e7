package book

// listNode links an order into its price level's FIFO queue. Links
// are order ids rather than pointers so the structure is relocatable
// and serializes without chasing memory references. Zero means none;
// order ids start at one.
type listNode struct {
	prev uint64
	next uint64
}

// PriceLevel is the FIFO queue of orders resting at one price, with a
// cached aggregate of their remaining amounts. The cache must equal
// the sum of remaining amounts of the queued orders at all times.
type PriceLevel struct {
	Price  int64
	Volume int64
	Count  int
	head   uint64
	tail   uint64
}

// Head returns the id of the first (oldest) order at this price, or
// zero when the level is empty.
func (l *PriceLevel) Head() uint64 { return l.head }

func (l *PriceLevel) Tail() uint64 { return l.tail }

// append enqueues o at the tail, preserving arrival order.
func (l *PriceLevel) append(st *OrderStorage, o *Order) {
	n := &listNode{prev: l.tail}
	if l.tail != 0 {
		st.nodes[l.tail].next = o.ID
	} else {
		l.head = o.ID
	}
	l.tail = o.ID
	st.nodes[o.ID] = n
	l.Volume += o.Remaining
	l.Count++
}

// unlink removes o from the queue, keeping the order of the remaining
// entries. volume is the amount still attributed to o in the cache.
func (l *PriceLevel) unlink(st *OrderStorage, o *Order, volume int64) {
	n := st.nodes[o.ID]
	if n.prev != 0 {
		st.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != 0 {
		st.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	delete(st.nodes, o.ID)
	l.Volume -= volume
	l.Count--
}

// orderIDs returns the queue in FIFO order.
func (l *PriceLevel) orderIDs(st *OrderStorage) []uint64 {
	ids := make([]uint64, 0, l.Count)
	for id := l.head; id != 0; id = st.nodes[id].next {
		ids = append(ids, id)
	}
	return ids
}
