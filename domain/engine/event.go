package engine

import "vela/domain/book"

// Type tags a domain event.
type Type string

const (
	OrderAccepted        Type = "ORDER_ACCEPTED"
	OrderRejected        Type = "ORDER_REJECTED"
	OrderPartiallyFilled Type = "ORDER_PARTIALLY_FILLED"
	OrderFilled          Type = "ORDER_FILLED"
	OrderCancelled       Type = "ORDER_CANCELLED"
	OrderExpired         Type = "ORDER_EXPIRED"
	TradeExecuted        Type = "TRADE_EXECUTED"
)

// Reason codes a rejection. Every command that cannot be applied gets
// an explicit rejection event carrying one of these; nothing is
// silently dropped.
type Reason string

const (
	ReasonValidation            Reason = "VALIDATION"
	ReasonNotFound              Reason = "NOT_FOUND"
	ReasonInsufficientLiquidity Reason = "INSUFFICIENT_LIQUIDITY"
)

// OrderInfo is the order image carried on order-lifecycle events,
// enough for a consumer to reconstruct book changes without re-running
// the match.
type OrderInfo struct {
	ID          uint64 `json:"id"`
	Account     string `json:"account"`
	Pair        string `json:"pair"`
	Side        string `json:"side"`
	Kind        string `json:"kind"`
	Price       int64  `json:"price,omitempty"`
	Original    int64  `json:"original"`
	Remaining   int64  `json:"remaining"`
	TimeInForce string `json:"tif"`
	Status      string `json:"status"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// TradeInfo describes one execution. Price is always the maker's
// price; Seq is strictly increasing, one per match.
type TradeInfo struct {
	MakerID uint64 `json:"maker_id"`
	TakerID uint64 `json:"taker_id"`
	Pair    string `json:"pair"`
	Price   int64  `json:"price"`
	Amount  int64  `json:"amount"`
	Seq     uint64 `json:"seq"`
}

// Event is one entry of the per-command event queue. Seq is the
// global publish sequence, assigned when the event enters the outbox.
type Event struct {
	Type      Type       `json:"type"`
	Seq       uint64     `json:"seq,omitempty"`
	Pair      string     `json:"pair"`
	Order     *OrderInfo `json:"order,omitempty"`
	Trade     *TradeInfo `json:"trade,omitempty"`
	Reason    Reason     `json:"reason,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	Unfilled  int64      `json:"unfilled,omitempty"`
	Timestamp int64      `json:"ts"`
}

// queue is the ordered, append-only event buffer for one matching
// pass. It is drained exactly once by the caller.
type queue struct {
	events []Event
}

func (q *queue) emit(ev Event) {
	q.events = append(q.events, ev)
}

func (q *queue) drain() []Event {
	evs := q.events
	q.events = nil
	return evs
}

func orderInfo(o *book.Order) *OrderInfo {
	return &OrderInfo{
		ID:          o.ID,
		Account:     o.Account,
		Pair:        o.Pair,
		Side:        o.Side.String(),
		Kind:        o.Kind.String(),
		Price:       o.Price,
		Original:    o.Original,
		Remaining:   o.Remaining,
		TimeInForce: o.TimeInForce.String(),
		Status:      o.Status.String(),
		ExpiresAt:   o.ExpiresAt,
	}
}
