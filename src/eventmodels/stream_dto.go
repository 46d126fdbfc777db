package eventmodels

import "encoding/json"

// StreamMessageDTO is the envelope of every frame on the streaming
// channel: an event name plus an opaque payload.
type StreamMessageDTO struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// StreamEventTag is the minimal projection used by the dispatch guard
// to read the transport identifier off any inbound payload.
type StreamEventTag struct {
	AccountID string `json:"accountId"`
}

type PositionDataDTO struct {
	LivePositions      []Position       `json:"livePositions"`
	PendingOrders      []PendingOrder   `json:"pendingOrders"`
	AccountInformation *LiveAccountInfo `json:"accountInformation"`
}

// LiveDataDTO is the full snapshot push: positions, pending orders and
// account info are always replaced wholesale, never patched.
type LiveDataDTO struct {
	AccountID    string          `json:"accountId"`
	PositionData PositionDataDTO `json:"positionData"`
}

// EquityBalanceDTO is the incremental push: only equity and balance are
// merged into the existing account info.
type EquityBalanceDTO struct {
	AccountID string  `json:"accountId"`
	Equity    float64 `json:"equity"`
	Balance   float64 `json:"balance"`
}

type VerifyOrderResponseDTO struct {
	Data  *VerifiedOrder `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

type OrderResponseDTO struct {
	Message     string   `json:"message,omitempty"`
	PositionIDs []string `json:"positionIds,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// StreamAuthDTO authenticates a freshly opened channel against one
// account. The credential travels with the persistent identifier; the
// transport identifier only ever appears on inbound events.
type StreamAuthDTO struct {
	Credential string `json:"credential"`
	AccountID  string `json:"accountId"`
}
