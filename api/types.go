package api

import (
	"fmt"

	"vela/domain/book"
	"vela/domain/engine"
)

type SubmitOrderRequest struct {
	ID          uint64 `json:"id"`
	Account     string `json:"account"`
	Pair        string `json:"pair"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Price       int64  `json:"price"`
	Amount      int64  `json:"amount"`
	TimeInForce string `json:"tif"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

type CancelOrderRequest struct {
	Pair    string `json:"pair"`
	OrderID uint64 `json:"order_id"`
	Account string `json:"account,omitempty"`
}

type CommandResponse struct {
	Events []engine.Event `json:"events"`
}

type L1Response struct {
	Pair      string `json:"pair"`
	BidPrice  int64  `json:"bid_price"`
	BidVolume int64  `json:"bid_volume"`
	AskPrice  int64  `json:"ask_price"`
	AskVolume int64  `json:"ask_volume"`
	LastTrade int64  `json:"last_trade"`
}

type L2Response struct {
	Pair string             `json:"pair"`
	Bids []book.PriceVolume `json:"bids"`
	Asks []book.PriceVolume `json:"asks"`
}

type L3Response struct {
	Pair string             `json:"pair"`
	Bids []engine.OrderInfo `json:"bids"`
	Asks []engine.OrderInfo `json:"asks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r *SubmitOrderRequest) toOrder() (*book.Order, error) {
	o := &book.Order{
		ID:        r.ID,
		Account:   r.Account,
		Pair:      r.Pair,
		Price:     r.Price,
		Original:  r.Amount,
		ExpiresAt: r.ExpiresAt,
	}

	switch r.Side {
	case "bid", "buy":
		o.Side = book.Bid
	case "ask", "sell":
		o.Side = book.Ask
	default:
		return nil, fmt.Errorf("invalid side %q", r.Side)
	}

	switch r.Type {
	case "limit", "":
		o.Kind = book.Limit
	case "market":
		o.Kind = book.Market
	default:
		return nil, fmt.Errorf("invalid order type %q", r.Type)
	}

	switch r.TimeInForce {
	case "gtc", "":
		o.TimeInForce = book.GTC
	case "ioc":
		o.TimeInForce = book.IOC
	case "fok":
		o.TimeInForce = book.FOK
	default:
		return nil, fmt.Errorf("invalid time in force %q", r.TimeInForce)
	}

	return o, nil
}
