package eventmodels

// AccountRef identifies the active account in both identifier spaces.
// REST calls use PersistentID; every stream event is tagged with
// TransportID. The two must never be conflated: stream filtering
// compares TransportID only.
type AccountRef struct {
	PersistentID string `json:"persistentId"`
	TransportID  string `json:"transportId"`
}

type AccountDirectoryEntry struct {
	PersistentID     string  `json:"persistentId"`
	TransportID      string  `json:"transportId"`
	BrokerName       string  `json:"brokerName"`
	MaxPositionLimit float64 `json:"maxPositionLimit"`
}

func (e AccountDirectoryEntry) Ref() AccountRef {
	return AccountRef{
		PersistentID: e.PersistentID,
		TransportID:  e.TransportID,
	}
}

// AccountConfig holds the risk parameters of the active account. It is
// fetched over REST on account selection and re-fetched after each
// successful placement, since a fill consumes daily risk budget.
type AccountConfig struct {
	AutoLotSizeSet      bool    `json:"autoLotSizeSet"`
	SplittingTarget     int     `json:"splittingTarget"`
	RiskPercentage      float64 `json:"riskPercentage"`
	DailyRiskPercentage float64 `json:"dailyRiskPercentage"`
	RemainingDailyRisk  float64 `json:"remainingDailyRisk"`
	MaxPositionLimit    float64 `json:"maxPositionLimit"`
	Timezone            string  `json:"timezone"`
}

// TakeProfitSlots returns the number of take-profit legs the draft
// should carry for this config: SplittingTarget when known, else 1.
func (c *AccountConfig) TakeProfitSlots() int {
	if c == nil || c.SplittingTarget < 1 {
		return 1
	}

	return c.SplittingTarget
}
