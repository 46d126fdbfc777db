package eventmodels

import "encoding/json"

// TakeProfitValues marshals as a scalar when it holds exactly one
// value, matching the wire contract of the verify/place endpoints.
type TakeProfitValues []float64

func (v TakeProfitValues) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}

	return json.Marshal([]float64(v))
}

func (v *TakeProfitValues) UnmarshalJSON(data []byte) error {
	var single float64
	if err := json.Unmarshal(data, &single); err == nil {
		*v = TakeProfitValues{single}
		return nil
	}

	var many []float64
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	*v = many
	return nil
}

// PlaceOrderRequest is the normalized outbound payload for both
// verifyOrder and placeOrder. AccountID carries the persistent
// identifier, not the transport one.
type PlaceOrderRequest struct {
	AccountID  string           `json:"accountId"`
	Symbol     string           `json:"symbol"`
	EntryType  EntryType        `json:"entryType"`
	LotSize    *float64         `json:"lotSize,omitempty"`
	StopLoss   float64          `json:"stopLoss"`
	TakeProfit TakeProfitValues `json:"takeProfit"`
	OrderType  OrderType        `json:"orderType"`
	Comment    string           `json:"comment,omitempty"`
	EntryPrice *float64         `json:"entryPrice,omitempty"`
}
