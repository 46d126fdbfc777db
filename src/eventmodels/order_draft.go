package eventmodels

import (
	"strconv"
	"strings"
)

// OrderDraft is the user-edited pending order prior to verification.
// Numeric fields are kept as text while editing and coerced only when a
// request is built.
type OrderDraft struct {
	Symbol     string    `json:"symbol"`
	EntryType  EntryType `json:"entryType"`
	LotSize    string    `json:"lotSize"`
	StopLoss   string    `json:"stopLoss"`
	TakeProfit []string  `json:"takeProfit"`
	OrderType  OrderType `json:"orderType"`
	EntryPrice string    `json:"entryPrice"`
	Comment    string    `json:"comment"`
}

// NewOrderDraft returns an empty draft sized to the config's splitting
// target: one take-profit slot per leg, or a single slot when the
// config is unknown.
func NewOrderDraft(config *AccountConfig) *OrderDraft {
	return &OrderDraft{
		EntryType:  EntryTypeBuy,
		OrderType:  OrderTypeMarket,
		TakeProfit: make([]string, config.TakeProfitSlots()),
	}
}

func parsePositiveFloat(s string) (float64, bool) {
	val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return val, val > 0
}

// Validate is the form validity predicate. It is re-evaluated
// immediately before every verify and every confirm, never cached,
// because the account config may change between the two calls.
func (d *OrderDraft) Validate(config *AccountConfig) error {
	if strings.TrimSpace(d.Symbol) == "" {
		return NewValidationError("symbol", "symbol is required")
	}

	if config == nil || !config.AutoLotSizeSet {
		if _, ok := parsePositiveFloat(d.LotSize); !ok {
			return NewValidationError("lotSize", "lot size must be greater than zero")
		}
	}

	if _, ok := parsePositiveFloat(d.StopLoss); !ok {
		return NewValidationError("stopLoss", "stop loss must be greater than zero")
	}

	hasTakeProfit := false
	for _, tp := range d.TakeProfit {
		if strings.TrimSpace(tp) != "" {
			hasTakeProfit = true
			break
		}
	}

	if !hasTakeProfit {
		return NewValidationError("takeProfit", "at least one take profit is required")
	}

	if d.OrderType.RequiresEntryPrice() {
		if _, ok := parsePositiveFloat(d.EntryPrice); !ok {
			return NewValidationError("entryPrice", "entry price must be greater than zero")
		}
	}

	return nil
}

// ToPlaceOrderRequest normalizes the draft into an outbound payload:
// uppercased symbol, numeric coercion of the text fields, blank
// take-profit entries dropped. Validate must pass first.
func (d *OrderDraft) ToPlaceOrderRequest(ref AccountRef, config *AccountConfig) (*PlaceOrderRequest, error) {
	if err := d.Validate(config); err != nil {
		return nil, err
	}

	stopLoss, _ := parsePositiveFloat(d.StopLoss)

	var takeProfit TakeProfitValues
	for _, tp := range d.TakeProfit {
		if strings.TrimSpace(tp) == "" {
			continue
		}

		val, ok := parsePositiveFloat(tp)
		if !ok {
			return nil, NewValidationError("takeProfit", "take profit must be greater than zero")
		}

		takeProfit = append(takeProfit, val)
	}

	req := &PlaceOrderRequest{
		AccountID:  ref.PersistentID,
		Symbol:     strings.ToUpper(strings.TrimSpace(d.Symbol)),
		EntryType:  d.EntryType,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		OrderType:  d.OrderType,
		Comment:    strings.TrimSpace(d.Comment),
	}

	if config == nil || !config.AutoLotSizeSet {
		lotSize, _ := parsePositiveFloat(d.LotSize)
		req.LotSize = &lotSize
	}

	if d.OrderType.RequiresEntryPrice() {
		entryPrice, _ := parsePositiveFloat(d.EntryPrice)
		req.EntryPrice = &entryPrice
	}

	return req, nil
}
