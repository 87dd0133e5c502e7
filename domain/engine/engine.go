// Package engine executes the matching algorithm for one trading
// pair under strict price-time priority and emits the ordered event
// stream each command produces.
package engine

import (
	"sort"

	"vela/domain/book"
)

// Engine is the sole mutator of its pair's order book. It holds no
// state between commands beyond the book and the trade sequence.
type Engine struct {
	book     *book.OrderBook
	tradeSeq uint64

	// strict re-validates the full book after every mutating
	// command. Meant for tests and staging; the per-trade checks
	// stay on either way.
	strict bool
}

func New(pair string) *Engine {
	return &Engine{book: book.New(pair)}
}

// Resume wraps a book restored from a snapshot, continuing the trade
// sequence where it left off.
func Resume(b *book.OrderBook, tradeSeq uint64) *Engine {
	return &Engine{book: b, tradeSeq: tradeSeq}
}

func (e *Engine) SetStrict(v bool) { e.strict = v }

func (e *Engine) Book() *book.OrderBook { return e.book }

func (e *Engine) TradeSeq() uint64 { return e.tradeSeq }

// Submit runs one matching pass for o. The returned events are in
// execution order and must be dispatched in that order. A non-nil
// error is an invariant violation: the book can no longer be trusted
// and the pair's worker must stop.
func (e *Engine) Submit(o *book.Order) ([]Event, error) {
	var q queue

	if reason, detail := e.validate(o); reason != "" {
		o.Status = book.Cancelled
		q.emit(Event{
			Type: OrderRejected, Pair: e.book.Pair, Order: orderInfo(o),
			Reason: reason, Detail: detail, Timestamp: o.Timestamp,
		})
		return q.drain(), nil
	}
	o.Remaining = o.Original
	o.Status = book.Open

	// Fill-or-kill is decided as a dry run before any mutation: if
	// the crossing depth cannot cover the order, nothing happens.
	// Market orders cross every level, so for them the dry run sums
	// the whole opposite side.
	if o.TimeInForce == book.FOK && !e.fullyMatchable(o) {
		o.Status = book.Cancelled
		q.emit(Event{
			Type: OrderRejected, Pair: e.book.Pair, Order: orderInfo(o),
			Reason: ReasonInsufficientLiquidity, Timestamp: o.Timestamp,
		})
		return q.drain(), nil
	}

	matched := false
	for o.Remaining > 0 {
		maker := e.book.HeadOrder(o.Side.Opposite())
		if maker == nil || !o.Crosses(maker.Price) {
			break
		}
		qty := min64(o.Remaining, maker.Remaining)
		price := maker.Price // maker's price always wins

		e.tradeSeq++
		maker, err := e.book.Reduce(maker.ID, qty)
		if err != nil {
			return q.drain(), err
		}
		o.Remaining -= qty
		matched = true
		e.book.SetLastTrade(price)

		q.emit(Event{
			Type: TradeExecuted, Pair: e.book.Pair,
			Trade: &TradeInfo{
				MakerID: maker.ID, TakerID: o.ID, Pair: e.book.Pair,
				Price: price, Amount: qty, Seq: e.tradeSeq,
			},
			Timestamp: o.Timestamp,
		})
		makerType := OrderPartiallyFilled
		if maker.Remaining == 0 {
			makerType = OrderFilled
		}
		q.emit(Event{Type: makerType, Pair: e.book.Pair, Order: orderInfo(maker), Timestamp: o.Timestamp})
	}

	switch {
	case o.Remaining == 0:
		o.Status = book.Filled
		q.emit(Event{Type: OrderFilled, Pair: e.book.Pair, Order: orderInfo(o), Timestamp: o.Timestamp})

	case o.Kind == book.Market || o.TimeInForce == book.IOC:
		// Remainder never rests; report the unfilled portion.
		unfilled := o.Remaining
		o.Remaining = 0
		o.Status = book.Cancelled
		q.emit(Event{
			Type: OrderCancelled, Pair: e.book.Pair, Order: orderInfo(o),
			Unfilled: unfilled, Timestamp: o.Timestamp,
		})

	default: // GTC limit remainder rests on the book
		if matched {
			o.Status = book.PartiallyFilled
		}
		if err := e.book.Insert(o); err != nil {
			return q.drain(), &book.InvariantError{Pair: e.book.Pair, Detail: err.Error()}
		}
		restType := OrderAccepted
		if matched {
			restType = OrderPartiallyFilled
		}
		q.emit(Event{Type: restType, Pair: e.book.Pair, Order: orderInfo(o), Timestamp: o.Timestamp})
	}

	return q.drain(), e.check()
}

// Cancel removes a resting order. Unknown ids resolve to a NotFound
// rejection, deterministically, since cancels flow through the same
// per-pair command sequence as the orders they target.
func (e *Engine) Cancel(id uint64, account string, ts int64) ([]Event, error) {
	var q queue

	o := e.book.Storage().Get(id)
	if o == nil {
		q.emit(Event{
			Type: OrderRejected, Pair: e.book.Pair,
			Order: &OrderInfo{ID: id, Pair: e.book.Pair}, Reason: ReasonNotFound, Timestamp: ts,
		})
		return q.drain(), nil
	}
	if account != "" && o.Account != account {
		q.emit(Event{
			Type: OrderRejected, Pair: e.book.Pair, Order: orderInfo(o),
			Reason: ReasonValidation, Detail: "order not owned by account", Timestamp: ts,
		})
		return q.drain(), nil
	}

	o, err := e.book.Remove(id)
	if err != nil {
		return q.drain(), &book.InvariantError{Pair: e.book.Pair, Detail: err.Error()}
	}
	o.Status = book.Cancelled
	q.emit(Event{Type: OrderCancelled, Pair: e.book.Pair, Order: orderInfo(o), Unfilled: o.Remaining, Timestamp: ts})
	return q.drain(), e.check()
}

// ExpireDue sweeps orders whose deadline has passed. Removal is by
// ascending id so reruns over the same book are deterministic.
func (e *Engine) ExpireDue(now int64) ([]Event, error) {
	var q queue

	var due []uint64
	e.book.Storage().ForEach(func(o *book.Order) {
		if o.ExpiresAt > 0 && o.ExpiresAt <= now {
			due = append(due, o.ID)
		}
	})
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	for _, id := range due {
		o, err := e.book.Remove(id)
		if err != nil {
			return q.drain(), &book.InvariantError{Pair: e.book.Pair, Detail: err.Error()}
		}
		o.Status = book.Expired
		q.emit(Event{Type: OrderExpired, Pair: e.book.Pair, Order: orderInfo(o), Unfilled: o.Remaining, Timestamp: now})
	}
	return q.drain(), e.check()
}

// validate rejects malformed commands before any book mutation.
func (e *Engine) validate(o *book.Order) (Reason, string) {
	switch {
	case o.ID == 0:
		return ReasonValidation, "missing order id"
	case o.Pair != e.book.Pair:
		return ReasonValidation, "order pair does not match book"
	case o.Original <= 0:
		return ReasonValidation, "amount must be positive"
	case o.Kind == book.Limit && o.Price <= 0:
		return ReasonValidation, "limit order requires a positive price"
	case o.Kind == book.Market && o.Price != 0:
		return ReasonValidation, "market order must not carry a price"
	case e.book.Storage().Get(o.ID) != nil:
		return ReasonValidation, "order id already resting"
	}
	return "", ""
}

// fullyMatchable walks the opposite side's crossing levels summing
// cached volumes, without mutating anything.
func (e *Engine) fullyMatchable(o *book.Order) bool {
	need := o.Original
	cur := e.book.L2View(o.Side.Opposite(), 0)
	for need > 0 {
		pv, ok := cur.Next()
		if !ok || !o.Crosses(pv.Price) {
			break
		}
		need -= pv.Volume
	}
	return need <= 0
}

func (e *Engine) check() error {
	if !e.strict {
		return nil
	}
	return e.book.Validate()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
