package book

type Side uint8
type Kind uint8
type TimeInForce uint8
type Status uint8

const (
	Bid Side = iota
	Ask
)

const (
	Limit Kind = iota
	Market
)

const (
	// GTC rests any unfilled remainder on the book.
	GTC TimeInForce = iota
	// IOC cancels any unfilled remainder.
	IOC
	// FOK fills the whole order immediately or rejects it without
	// touching the book.
	FOK
)

const (
	Open Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Expired
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (k Kind) String() string {
	if k == Market {
		return "market"
	}
	return "limit"
}

func (t TimeInForce) String() string {
	switch t {
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	default:
		return "gtc"
	}
}

func (s Status) String() string {
	switch s {
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Expired:
		return "expired"
	default:
		return "open"
	}
}

// Order is a single resting or incoming order. Prices and amounts are
// fixed-point int64 values; no floating point enters the book.
type Order struct {
	ID          uint64
	Account     string
	Pair        string
	Side        Side
	Kind        Kind
	Price       int64 // zero for market orders
	Original    int64
	Remaining   int64
	TimeInForce TimeInForce
	Timestamp   int64 // arrival tie-break only
	ExpiresAt   int64 // unix millis, zero means never
	Status      Status
}

// Crosses reports whether a taker at this order's limit price can
// trade against a resting level at price.
func (o *Order) Crosses(price int64) bool {
	if o.Kind == Market {
		return true
	}
	if o.Side == Bid {
		return o.Price >= price
	}
	return o.Price <= price
}
