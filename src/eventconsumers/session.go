package eventconsumers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventmodels"
	pubsub "tradepanel/src/eventpubsub"
	"tradepanel/src/eventservices"
)

// OrderChannel is the outbound half of the streaming channel.
type OrderChannel interface {
	VerifyOrder(req *eventmodels.PlaceOrderRequest) error
	PlaceOrder(req *eventmodels.PlaceOrderRequest) error
}

// StreamChannel is one account-scoped streaming channel. Close must
// remove every listener before disconnecting.
type StreamChannel interface {
	OrderChannel
	Connect() error
	OnMessage(fn func(msg eventmodels.StreamMessageDTO))
	OnConnect(fn func())
	OnDisconnect(fn func())
	Close() error
}

type StreamFactory func(account eventmodels.AccountRef) StreamChannel

// SessionWorker owns the account selection and the lifecycle of the one
// streaming channel bound to it. All inbound stream events pass through
// its dispatch method, the single point where misrouted events are
// discarded.
type SessionWorker struct {
	wg         *sync.WaitGroup
	mu         sync.Mutex
	state      *eventmodels.DashboardState
	submission *SubmissionWorker
	newStream  StreamFactory
	stream     StreamChannel
	apiBaseURL string
	apiToken   string
}

func NewSessionWorkerClient(wg *sync.WaitGroup, state *eventmodels.DashboardState, submission *SubmissionWorker, newStream StreamFactory, apiBaseURL string, apiToken string) *SessionWorker {
	return &SessionWorker{
		wg:         wg,
		state:      state,
		submission: submission,
		newStream:  newStream,
		apiBaseURL: apiBaseURL,
		apiToken:   apiToken,
	}
}

// FetchAccounts proxies the account directory for the presentation
// layer.
func (w *SessionWorker) FetchAccounts() ([]eventmodels.AccountDirectoryEntry, error) {
	return eventservices.FetchAccounts(w.apiBaseURL, w.apiToken)
}

// SelectAccount swaps the active account. The old channel is torn down
// fully and synchronously before the new one opens, so a late event
// from the old channel can never be routed into the new account's
// state. The config fetch is issued after the swap; its failure
// surfaces an error but does not block the swap.
func (w *SessionWorker) SelectAccount(ref eventmodels.AccountRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stream != nil {
		if err := w.stream.Close(); err != nil {
			log.Errorf("SessionWorker.SelectAccount: error closing old channel: %v", err)
		}
		w.stream = nil
	}

	w.submission.Reset()
	w.state.SetActiveAccount(ref)

	stream := w.newStream(ref)
	stream.OnMessage(w.dispatch)
	stream.OnConnect(func() {
		pubsub.Publish("SessionWorker", eventmodels.StreamConnectedEventName, ref)
	})
	stream.OnDisconnect(func() {
		pubsub.Publish("SessionWorker", eventmodels.StreamDisconnectedEventName, ref)
	})

	if err := stream.Connect(); err != nil {
		return fmt.Errorf("SessionWorker.SelectAccount: %w", err)
	}

	w.stream = stream
	w.submission.SetSender(stream)

	go w.fetchConfig(ref)

	return nil
}

func (w *SessionWorker) fetchConfig(ref eventmodels.AccountRef) {
	config, err := eventservices.FetchAccountConfig(w.apiBaseURL, w.apiToken, ref.PersistentID)
	if err != nil {
		pubsub.PublishError("SessionWorker.fetchConfig", err)
		return
	}

	// The selection may have moved on while the fetch was in flight;
	// the state container compares under the lock that writes.
	if !w.state.SetConfigFor(ref, config) {
		log.Debugf("SessionWorker.fetchConfig: dropping config for %s: no longer active", ref.PersistentID)
	}
}

// RefreshConfig re-fetches the active account's config, used after a
// successful placement to reflect the consumed risk budget.
func (w *SessionWorker) RefreshConfig() {
	active := w.state.ActiveAccount()
	if active == nil {
		return
	}

	go w.fetchConfig(*active)
}

// dispatch routes every inbound stream event. The transport-id guard
// runs here as the single dispatch-time check; because delivery to the
// handlers is asynchronous, the state container re-checks the tag under
// its own lock before writing. An event tagged with any transport id
// other than the active account's is silently discarded.
func (w *SessionWorker) dispatch(msg eventmodels.StreamMessageDTO) {
	var tag eventmodels.StreamEventTag
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &tag); err != nil {
			log.Errorf("SessionWorker.dispatch: failed to read event tag: %v", err)
			return
		}
	}

	if tag.AccountID != "" && tag.AccountID != w.state.ActiveTransportID() {
		log.Debugf("SessionWorker.dispatch: discarding %s event for transport id %s", msg.Event, tag.AccountID)
		return
	}

	switch msg.Event {
	case eventmodels.StreamEventLiveData:
		var dto eventmodels.LiveDataDTO
		if err := json.Unmarshal(msg.Data, &dto); err != nil {
			log.Errorf("SessionWorker.dispatch: failed to unmarshal live-data: %v", err)
			return
		}

		pubsub.Publish("SessionWorker.dispatch", eventmodels.LiveDataEventName, dto)

	case eventmodels.StreamEventEquityBalance:
		var dto eventmodels.EquityBalanceDTO
		if err := json.Unmarshal(msg.Data, &dto); err != nil {
			log.Errorf("SessionWorker.dispatch: failed to unmarshal equity-balance: %v", err)
			return
		}

		pubsub.Publish("SessionWorker.dispatch", eventmodels.EquityBalanceEventName, dto)

	case eventmodels.StreamEventVerifyOrderResponse:
		var dto eventmodels.VerifyOrderResponseDTO
		if err := json.Unmarshal(msg.Data, &dto); err != nil {
			log.Errorf("SessionWorker.dispatch: failed to unmarshal verify-order-response: %v", err)
			return
		}

		pubsub.Publish("SessionWorker.dispatch", eventmodels.VerifyOrderResponseEventName, dto)

	case eventmodels.StreamEventOrderResponse:
		var dto eventmodels.OrderResponseDTO
		if err := json.Unmarshal(msg.Data, &dto); err != nil {
			log.Errorf("SessionWorker.dispatch: failed to unmarshal order-response: %v", err)
			return
		}

		pubsub.Publish("SessionWorker.dispatch", eventmodels.OrderResponseEventName, dto)

	default:
		log.Debugf("SessionWorker.dispatch: ignoring unknown event %s", msg.Event)
	}
}

func (w *SessionWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		<-ctx.Done()
		log.Info("stopping SessionWorker consumer")

		w.mu.Lock()
		defer w.mu.Unlock()

		if w.stream != nil {
			w.stream.Close()
			w.stream = nil
		}
	}()
}
