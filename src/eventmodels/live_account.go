package eventmodels

// LiveAccountInfo is the account metrics block of the live snapshot.
// It is replaced wholesale by a snapshot push, or partially merged by
// an equity/balance patch.
type LiveAccountInfo struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"freeMargin"`
	Credit     float64 `json:"credit"`
	Leverage   float64 `json:"leverage"`
	Broker     string  `json:"broker"`
	Server     string  `json:"server"`
	Platform   string  `json:"platform"`
	Name       string  `json:"name"`
	Login      string  `json:"login"`
}

type Position struct {
	ID         string  `json:"id" csv:"id"`
	Symbol     string  `json:"symbol" csv:"symbol"`
	Type       string  `json:"type" csv:"type"`
	Volume     float64 `json:"volume" csv:"volume"`
	OpenPrice  float64 `json:"openPrice" csv:"open_price"`
	StopLoss   float64 `json:"stopLoss" csv:"stop_loss"`
	TakeProfit float64 `json:"takeProfit" csv:"take_profit"`
	Profit     float64 `json:"profit" csv:"profit"`
	Swap       float64 `json:"swap" csv:"swap"`
	OpenTime   string  `json:"openTime" csv:"open_time"`
}

type PendingOrder struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Type        string  `json:"type"`
	Volume      float64 `json:"volume"`
	TargetPrice float64 `json:"targetPrice"`
	StopLoss    float64 `json:"stopLoss"`
	TakeProfit  float64 `json:"takeProfit"`
	CreatedAt   string  `json:"createdAt"`
}
