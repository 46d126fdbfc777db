package eventmodels

// VerifiedOrder is the server-computed preview returned by a verify
// call: risk numbers plus the normalized order echoed back.
type VerifiedOrder struct {
	MaxLoss    float64          `json:"maxLoss"`
	MaxProfit  float64          `json:"maxProfit"`
	Quantity   float64          `json:"quantity"`
	EntryType  EntryType        `json:"entryType"`
	OrderType  OrderType        `json:"orderType"`
	Symbol     string           `json:"symbol"`
	StopLoss   float64          `json:"stopLoss"`
	TakeProfit TakeProfitValues `json:"takeProfit"`
}
