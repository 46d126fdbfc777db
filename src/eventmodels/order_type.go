package eventmodels

type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeStop   OrderType = "Stop"
	OrderTypeLimit  OrderType = "Limit"
)

// RequiresEntryPrice reports whether the order type rests away from the
// market and therefore needs an explicit entry price.
func (t OrderType) RequiresEntryPrice() bool {
	return t != OrderTypeMarket
}

type EntryType string

const (
	EntryTypeBuy  EntryType = "buy"
	EntryTypeSell EntryType = "sell"
)
