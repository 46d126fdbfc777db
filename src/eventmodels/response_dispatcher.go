package eventmodels

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type ResponseDispatchItem struct {
	ResultCh chan interface{}
	ErrCh    chan error
}

// ResponseDispatcher correlates HTTP requests with submission results.
// The streaming channel itself carries no request id, so the dispatcher
// is keyed by a locally generated uuid that the submission worker holds
// while a round trip is in flight.
type ResponseDispatcher struct {
	mutex    sync.Mutex
	channels map[uuid.UUID]ResponseDispatchItem
}

func NewResponseDispatcher() *ResponseDispatcher {
	return &ResponseDispatcher{
		channels: make(map[uuid.UUID]ResponseDispatchItem),
	}
}

func (d *ResponseDispatcher) Register(requestID uuid.UUID) (chan interface{}, chan error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	d.channels[requestID] = ResponseDispatchItem{
		ResultCh: resultCh,
		ErrCh:    errCh,
	}

	return resultCh, errCh
}

// GetChannelAndRemove fetches a channel pair and removes it.
func (d *ResponseDispatcher) GetChannelAndRemove(requestID uuid.UUID) (ResponseDispatchItem, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	item, found := d.channels[requestID]
	if !found {
		return ResponseDispatchItem{}, fmt.Errorf("ResponseDispatcher.GetChannelAndRemove: lookup failed using uuid %s", requestID)
	}

	delete(d.channels, requestID)

	return item, nil
}

// Remove drops a registration without resolving it, used when a waiter
// gives up before a result arrives.
func (d *ResponseDispatcher) Remove(requestID uuid.UUID) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	delete(d.channels, requestID)
}
