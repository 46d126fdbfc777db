package eventmodels

type EventName string

const (
	LiveDataEventName            EventName = "live-data"
	EquityBalanceEventName       EventName = "equity-balance"
	VerifyOrderResponseEventName EventName = "verify-order-response"
	OrderResponseEventName       EventName = "order-response"
	StreamConnectedEventName     EventName = "stream-connected"
	StreamDisconnectedEventName  EventName = "stream-disconnected"
	Error                        EventName = "DefaultError"
)

// Wire-level event names on the streaming channel.
const (
	StreamEventLiveData            = "live-data"
	StreamEventEquityBalance       = "equity-balance"
	StreamEventVerifyOrderResponse = "verify-order-response"
	StreamEventOrderResponse       = "order-response"
	StreamEventVerifyOrder         = "verifyOrder"
	StreamEventPlaceOrder          = "placeOrder"
)
