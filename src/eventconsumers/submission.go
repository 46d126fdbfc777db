package eventconsumers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventmodels"
	pubsub "tradepanel/src/eventpubsub"
)

var (
	// ErrSubmissionInFlight is returned when verify or confirm is
	// called while the machine is not in a state that accepts it. The
	// call is a no-op and leaves the machine unchanged.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrSuperseded resolves a waiter whose call was coalesced into a
	// newer one inside the debounce window.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrCancelled resolves a waiter whose submission was cancelled
	// before a result arrived.
	ErrCancelled = errors.New("submission cancelled")
)

// SubmissionWorker drives the two-phase verify/confirm protocol over
// the streaming channel. The channel carries no request id, so
// correctness rests on the single-flight discipline: at most one
// round trip is outstanding at any time, and a response arriving while
// the machine is not in the state that expects it is stale and dropped.
type SubmissionWorker struct {
	wg         *sync.WaitGroup
	state      *eventmodels.DashboardState
	dispatcher *eventmodels.ResponseDispatcher
	debounce   time.Duration
	timeout    time.Duration

	mu            sync.Mutex
	sender        OrderChannel
	refreshConfig func()

	// generation is bumped on every transition so a scheduled debounce
	// send or timeout from a previous life of the machine cannot fire
	// into the current one.
	generation    int
	debounceTimer *time.Timer
	timeoutTimer  *time.Timer
	pendingID     *uuid.UUID
}

func NewSubmissionWorkerClient(wg *sync.WaitGroup, state *eventmodels.DashboardState, dispatcher *eventmodels.ResponseDispatcher, debounce time.Duration, timeout time.Duration) *SubmissionWorker {
	return &SubmissionWorker{
		wg:         wg,
		state:      state,
		dispatcher: dispatcher,
		debounce:   debounce,
		timeout:    timeout,
	}
}

// SetRefreshConfig installs the callback that re-fetches the account
// config after a successful placement.
func (w *SubmissionWorker) SetRefreshConfig(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.refreshConfig = fn
}

// SetSender binds the worker to the active account's channel. Called on
// every account switch, after Reset.
func (w *SubmissionWorker) SetSender(sender OrderChannel) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sender = sender
}

// Verify starts a verification round trip for the current draft. The
// outbound send is debounced: rapid repeated calls coalesce into one
// request, with the last caller's requestID winning. Returns
// ErrSubmissionInFlight when the machine is past the debounce window.
func (w *SubmissionWorker) Verify(requestID uuid.UUID) error {
	if err := w.state.ValidateForm(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.SubmissionState() {
	case eventmodels.SubmissionStateIdle:
		w.state.SetSubmissionState(eventmodels.SubmissionStateVerifying)
		w.beginDebouncedSendLocked(requestID, w.sendVerify)
		return nil

	case eventmodels.SubmissionStateVerifying:
		if w.debounceTimer == nil {
			// Already sent; the round trip is in flight.
			return ErrSubmissionInFlight
		}

		w.coalesceLocked(requestID, w.sendVerify)
		return nil

	default:
		return ErrSubmissionInFlight
	}
}

// Confirm places the order previewed by the last verification. The
// request is rebuilt from the current draft, and the form is
// re-validated first: the account config may have changed since verify.
func (w *SubmissionWorker) Confirm(requestID uuid.UUID) error {
	if err := w.state.ValidateForm(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.SubmissionState() {
	case eventmodels.SubmissionStateAwaitingConfirmation:
		w.state.SetSubmissionState(eventmodels.SubmissionStateConfirming)
		w.beginDebouncedSendLocked(requestID, w.sendPlace)
		return nil

	case eventmodels.SubmissionStateConfirming:
		if w.debounceTimer == nil {
			return ErrSubmissionInFlight
		}

		w.coalesceLocked(requestID, w.sendPlace)
		return nil

	default:
		return ErrSubmissionInFlight
	}
}

func (w *SubmissionWorker) beginDebouncedSendLocked(requestID uuid.UUID, send func(generation int)) {
	w.generation++
	generation := w.generation
	w.pendingID = &requestID

	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		send(generation)
	})
}

// coalesceLocked resets the debounce timer for a repeated trigger. The
// previous waiter is resolved as superseded; at most one outbound
// request leaves the window.
func (w *SubmissionWorker) coalesceLocked(requestID uuid.UUID, send func(generation int)) {
	w.debounceTimer.Stop()
	w.resolveErrorLocked(ErrSuperseded)
	w.beginDebouncedSendLocked(requestID, send)
}

func (w *SubmissionWorker) sendVerify(generation int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if generation != w.generation || w.state.SubmissionState() != eventmodels.SubmissionStateVerifying {
		return
	}

	w.debounceTimer = nil
	w.sendLocked(func(req *eventmodels.PlaceOrderRequest) error {
		return w.sender.VerifyOrder(req)
	})
}

func (w *SubmissionWorker) sendPlace(generation int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if generation != w.generation || w.state.SubmissionState() != eventmodels.SubmissionStateConfirming {
		return
	}

	w.debounceTimer = nil
	w.sendLocked(func(req *eventmodels.PlaceOrderRequest) error {
		return w.sender.PlaceOrder(req)
	})
}

func (w *SubmissionWorker) sendLocked(send func(req *eventmodels.PlaceOrderRequest) error) {
	req, err := w.state.BuildOrderRequest()
	if err != nil {
		w.failLocked(err)
		return
	}

	if w.sender == nil {
		w.failLocked(eventmodels.NewTransportError("SubmissionWorker.send", fmt.Errorf("no channel bound")))
		return
	}

	if err := send(req); err != nil {
		w.failLocked(err)
		return
	}

	generation := w.generation
	w.timeoutTimer = time.AfterFunc(w.timeout, func() {
		w.fireTimeout(generation)
	})
}

// fireTimeout bounds the round trip: a response that never arrives
// must not leave the machine stuck in Verifying or Confirming.
func (w *SubmissionWorker) fireTimeout(generation int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if generation != w.generation {
		return
	}

	w.failLocked(eventmodels.NewTransportError("SubmissionWorker", fmt.Errorf("timed out waiting for response")))
}

func (w *SubmissionWorker) handleVerifyOrderResponse(event eventmodels.VerifyOrderResponseDTO) {
	log.Debug("<- SubmissionWorker.handleVerifyOrderResponse")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.SubmissionState() != eventmodels.SubmissionStateVerifying || w.debounceTimer != nil {
		log.Debugf("SubmissionWorker.handleVerifyOrderResponse: stale response discarded")
		return
	}

	w.stopTimersLocked()
	w.generation++

	if event.Error != "" {
		w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)
		w.resolveErrorLocked(eventmodels.NewDomainError(event.Error))
		return
	}

	w.state.SetVerifiedOrder(event.Data)
	w.state.SetSubmissionState(eventmodels.SubmissionStateAwaitingConfirmation)
	w.resolveResultLocked(event.Data)
}

func (w *SubmissionWorker) handleOrderResponse(event eventmodels.OrderResponseDTO) {
	log.Debug("<- SubmissionWorker.handleOrderResponse")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.SubmissionState() != eventmodels.SubmissionStateConfirming || w.debounceTimer != nil {
		log.Debugf("SubmissionWorker.handleOrderResponse: stale response discarded")
		return
	}

	w.stopTimersLocked()
	w.generation++
	w.state.SetVerifiedOrder(nil)
	w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)

	if event.Error != "" {
		// Draft preserved so the user can correct and retry.
		w.resolveErrorLocked(eventmodels.NewDomainError(event.Error))
		return
	}

	w.state.ResetDraft()
	w.resolveResultLocked(event)

	if w.refreshConfig != nil {
		w.refreshConfig()
	}
}

// Cancel backs out of a pending verification or confirmation. A result
// arriving afterwards finds the machine idle and is dropped as stale.
func (w *SubmissionWorker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.SubmissionState() == eventmodels.SubmissionStateIdle {
		return
	}

	w.stopTimersLocked()
	w.generation++
	w.state.SetVerifiedOrder(nil)
	w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)
	w.resolveErrorLocked(ErrCancelled)
}

// InvalidateVerification discards the stored preview when the draft is
// edited while awaiting confirmation, forcing a re-verify so the
// confirmation dialog can never show numbers that no longer match what
// would be submitted.
func (w *SubmissionWorker) InvalidateVerification() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.SubmissionState() != eventmodels.SubmissionStateAwaitingConfirmation {
		return
	}

	w.generation++
	w.state.SetVerifiedOrder(nil)
	w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)
}

// Reset returns the machine to idle unconditionally and unbinds the
// channel. Called on account switch, before the new channel opens.
func (w *SubmissionWorker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopTimersLocked()
	w.generation++
	w.sender = nil
	w.state.SetVerifiedOrder(nil)
	w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)
	w.resolveErrorLocked(ErrCancelled)
}

func (w *SubmissionWorker) failLocked(err error) {
	w.stopTimersLocked()
	w.generation++
	w.state.SetVerifiedOrder(nil)
	w.state.SetSubmissionState(eventmodels.SubmissionStateIdle)
	w.resolveErrorLocked(err)
}

func (w *SubmissionWorker) stopTimersLocked() {
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}

	if w.timeoutTimer != nil {
		w.timeoutTimer.Stop()
		w.timeoutTimer = nil
	}
}

func (w *SubmissionWorker) resolveResultLocked(result interface{}) {
	if w.pendingID == nil {
		return
	}

	item, err := w.dispatcher.GetChannelAndRemove(*w.pendingID)
	w.pendingID = nil

	if err != nil {
		log.Debugf("SubmissionWorker.resolveResult: %v", err)
		return
	}

	item.ResultCh <- result
}

func (w *SubmissionWorker) resolveErrorLocked(resolveErr error) {
	if w.pendingID == nil {
		// The error still has to surface somewhere: without a waiter it
		// goes to the error topic.
		if resolveErr != nil && !errors.Is(resolveErr, ErrCancelled) {
			pubsub.PublishError("SubmissionWorker", resolveErr)
		}
		return
	}

	item, err := w.dispatcher.GetChannelAndRemove(*w.pendingID)
	w.pendingID = nil

	if err != nil {
		log.Debugf("SubmissionWorker.resolveError: %v", err)
		if resolveErr != nil && !errors.Is(resolveErr, ErrCancelled) {
			pubsub.PublishError("SubmissionWorker", resolveErr)
		}
		return
	}

	item.ErrCh <- resolveErr
}

func (w *SubmissionWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	pubsub.Subscribe("SubmissionWorker", eventmodels.VerifyOrderResponseEventName, w.handleVerifyOrderResponse)
	pubsub.Subscribe("SubmissionWorker", eventmodels.OrderResponseEventName, w.handleOrderResponse)

	go func() {
		defer w.wg.Done()

		<-ctx.Done()
		log.Info("stopping SubmissionWorker consumer")
	}()
}
