package eventmodels

// OrderDraftUpdateDTO is a partial draft edit from the presentation
// layer; nil fields are left untouched.
type OrderDraftUpdateDTO struct {
	Symbol     *string  `schema:"symbol" json:"symbol,omitempty"`
	EntryType  *string  `schema:"entryType" json:"entryType,omitempty"`
	LotSize    *string  `schema:"lotSize" json:"lotSize,omitempty"`
	StopLoss   *string  `schema:"stopLoss" json:"stopLoss,omitempty"`
	TakeProfit []string `schema:"takeProfit" json:"takeProfit,omitempty"`
	OrderType  *string  `schema:"orderType" json:"orderType,omitempty"`
	EntryPrice *string  `schema:"entryPrice" json:"entryPrice,omitempty"`
	Comment    *string  `schema:"comment" json:"comment,omitempty"`
}

// Apply merges the edit into the draft. The take-profit list keeps its
// slot count: provided values fill from the front, missing slots stay
// blank, extras are dropped.
func (u *OrderDraftUpdateDTO) Apply(draft *OrderDraft) {
	if u.Symbol != nil {
		draft.Symbol = *u.Symbol
	}

	if u.EntryType != nil {
		draft.EntryType = EntryType(*u.EntryType)
	}

	if u.LotSize != nil {
		draft.LotSize = *u.LotSize
	}

	if u.StopLoss != nil {
		draft.StopLoss = *u.StopLoss
	}

	if u.TakeProfit != nil {
		slots := make([]string, len(draft.TakeProfit))
		copy(slots, u.TakeProfit)
		draft.TakeProfit = slots
	}

	if u.OrderType != nil {
		draft.OrderType = OrderType(*u.OrderType)
	}

	if u.EntryPrice != nil {
		draft.EntryPrice = *u.EntryPrice
	}

	if u.Comment != nil {
		draft.Comment = *u.Comment
	}
}
