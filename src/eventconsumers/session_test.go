package eventconsumers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepanel/src/eventmodels"
	pubsub "tradepanel/src/eventpubsub"
)

type fakeStreamChannel struct {
	fakeOrderChannel

	ref          eventmodels.AccountRef
	lifecycleLog *[]string

	onMessage    func(msg eventmodels.StreamMessageDTO)
	onConnect    func()
	onDisconnect func()

	connectErr error
}

func (c *fakeStreamChannel) Connect() error {
	if c.connectErr != nil {
		return c.connectErr
	}

	*c.lifecycleLog = append(*c.lifecycleLog, fmt.Sprintf("connect %s", c.ref.PersistentID))

	if c.onConnect != nil {
		c.onConnect()
	}

	return nil
}

func (c *fakeStreamChannel) OnMessage(fn func(msg eventmodels.StreamMessageDTO)) {
	c.onMessage = fn
}

func (c *fakeStreamChannel) OnConnect(fn func()) {
	c.onConnect = fn
}

func (c *fakeStreamChannel) OnDisconnect(fn func()) {
	c.onDisconnect = fn
}

func (c *fakeStreamChannel) Close() error {
	// Mirrors the real channel: listeners are removed before the
	// connection drops.
	c.onMessage = nil
	c.onConnect = nil
	c.onDisconnect = nil

	*c.lifecycleLog = append(*c.lifecycleLog, fmt.Sprintf("close %s", c.ref.PersistentID))

	return nil
}

func createConfigServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(eventmodels.AccountConfig{SplittingTarget: 2})
	}))
	t.Cleanup(server.Close)

	return server
}

type sessionFixture struct {
	session      *SessionWorker
	submission   *SubmissionWorker
	state        *eventmodels.DashboardState
	dispatcher   *eventmodels.ResponseDispatcher
	lifecycleLog *[]string
	streams      []*fakeStreamChannel
}

func createSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	pubsub.Init()

	server := createConfigServer(t)

	state := eventmodels.NewDashboardState()
	dispatcher := eventmodels.NewResponseDispatcher()
	wg := sync.WaitGroup{}

	submission := NewSubmissionWorkerClient(&wg, state, dispatcher, 5*time.Millisecond, time.Second)

	fixture := &sessionFixture{
		submission:   submission,
		state:        state,
		dispatcher:   dispatcher,
		lifecycleLog: &[]string{},
	}

	newStream := func(ref eventmodels.AccountRef) StreamChannel {
		stream := &fakeStreamChannel{ref: ref, lifecycleLog: fixture.lifecycleLog}
		fixture.streams = append(fixture.streams, stream)
		return stream
	}

	fixture.session = NewSessionWorkerClient(&wg, state, submission, newStream, server.URL, "test-token")

	return fixture
}

func TestSessionSelectAccount(t *testing.T) {
	refA := eventmodels.AccountRef{PersistentID: "acct-a", TransportID: "tr-a"}
	refB := eventmodels.AccountRef{PersistentID: "acct-b", TransportID: "tr-b"}

	t.Run("first selection opens a channel and fetches config", func(t *testing.T) {
		fixture := createSessionFixture(t)

		require.Nil(t, fixture.session.SelectAccount(refA))

		require.NotNil(t, fixture.state.ActiveAccount())
		assert.Equal(t, "acct-a", fixture.state.ActiveAccount().PersistentID)
		assert.Equal(t, "tr-a", fixture.state.ActiveTransportID())
		assert.Equal(t, []string{"connect acct-a"}, *fixture.lifecycleLog)

		waitFor(t, time.Second, func() bool { return fixture.state.Config() != nil })
		assert.Equal(t, 2, fixture.state.Config().SplittingTarget)
		assert.Len(t, fixture.state.Draft().TakeProfit, 2)
	})

	t.Run("old channel is torn down before the new one opens", func(t *testing.T) {
		fixture := createSessionFixture(t)

		require.Nil(t, fixture.session.SelectAccount(refA))
		require.Nil(t, fixture.session.SelectAccount(refB))

		assert.Equal(t, []string{"connect acct-a", "close acct-a", "connect acct-b"}, *fixture.lifecycleLog)
		assert.Equal(t, "tr-b", fixture.state.ActiveTransportID())
	})

	t.Run("switching clears account-scoped state and resets the submission", func(t *testing.T) {
		fixture := createSessionFixture(t)

		require.Nil(t, fixture.session.SelectAccount(refA))
		waitFor(t, time.Second, func() bool { return fixture.state.Config() != nil })

		fixture.state.ApplySnapshot("tr-a", eventmodels.PositionDataDTO{
			LivePositions:      []eventmodels.Position{{Symbol: "EURUSD"}},
			AccountInformation: &eventmodels.LiveAccountInfo{Equity: 1000},
		})
		fixture.state.SetDraft(createValidDraft())
		fixture.state.SetSubmissionState(eventmodels.SubmissionStateAwaitingConfirmation)
		fixture.state.SetVerifiedOrder(&eventmodels.VerifiedOrder{Symbol: "EURUSD"})

		require.Nil(t, fixture.session.SelectAccount(refB))

		assert.Equal(t, eventmodels.SubmissionStateIdle, fixture.state.SubmissionState())
		assert.Nil(t, fixture.state.VerifiedOrder())
		assert.Empty(t, fixture.state.Positions())
		assert.Equal(t, "", fixture.state.Draft().Symbol)
		assert.Nil(t, fixture.state.View().AccountInfo)
	})

	t.Run("submission sender follows the active channel", func(t *testing.T) {
		fixture := createSessionFixture(t)

		require.Nil(t, fixture.session.SelectAccount(refA))
		waitFor(t, time.Second, func() bool { return fixture.state.Config() != nil })
		fixture.state.SetDraft(createValidDraft())

		requestID := uuid.New()
		fixture.dispatcher.Register(requestID)
		require.Nil(t, fixture.submission.Verify(requestID))

		waitFor(t, time.Second, func() bool { return fixture.streams[0].verifyCount() == 1 })
		assert.Equal(t, "acct-a", fixture.streams[0].lastVerified().AccountID)
	})

	t.Run("failed connect surfaces the error", func(t *testing.T) {
		fixture := createSessionFixture(t)

		pubsub.Init()

		session := NewSessionWorkerClient(&sync.WaitGroup{}, fixture.state, fixture.submission, func(ref eventmodels.AccountRef) StreamChannel {
			return &fakeStreamChannel{
				ref:          ref,
				lifecycleLog: fixture.lifecycleLog,
				connectErr:   fmt.Errorf("dial refused"),
			}
		}, "http://127.0.0.1:1", "test-token")

		assert.NotNil(t, session.SelectAccount(refA))
	})
}

func TestSessionDispatchGuard(t *testing.T) {
	refA := eventmodels.AccountRef{PersistentID: "acct-a", TransportID: "tr-a"}

	liveDataFrame := func(transportID string, equity float64) eventmodels.StreamMessageDTO {
		payload, err := json.Marshal(eventmodels.LiveDataDTO{
			AccountID: transportID,
			PositionData: eventmodels.PositionDataDTO{
				LivePositions:      []eventmodels.Position{{Symbol: "EURUSD"}},
				AccountInformation: &eventmodels.LiveAccountInfo{Equity: equity},
			},
		})
		require.Nil(t, err)

		return eventmodels.StreamMessageDTO{Event: eventmodels.StreamEventLiveData, Data: payload}
	}

	setup := func(t *testing.T) *sessionFixture {
		fixture := createSessionFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)

		wg := sync.WaitGroup{}
		NewLiveStateWorkerClient(&wg, fixture.state).Start(ctx)
		fixture.submission.Start(ctx)

		require.Nil(t, fixture.session.SelectAccount(refA))

		return fixture
	}

	t.Run("event for another transport id is discarded", func(t *testing.T) {
		fixture := setup(t)

		fixture.session.dispatch(liveDataFrame("tr-other", 1000))
		pubsub.WaitAsync()

		assert.Empty(t, fixture.state.Positions())
		assert.Nil(t, fixture.state.View().AccountInfo)
	})

	t.Run("event in flight across an account switch is never applied", func(t *testing.T) {
		fixture := setup(t)

		refB := eventmodels.AccountRef{PersistentID: "acct-b", TransportID: "tr-b"}

		// The frame passes the dispatch guard while A is active, then the
		// switch lands before the async handler runs. Whichever side wins
		// the race, none of A's data may be visible under B.
		for i := 0; i < 200; i++ {
			fixture.session.dispatch(liveDataFrame("tr-a", 1000))
			fixture.state.SetActiveAccount(refB)
			pubsub.WaitAsync()

			assert.Empty(t, fixture.state.Positions())
			assert.Nil(t, fixture.state.View().AccountInfo)

			fixture.state.SetActiveAccount(refA)
		}
	})

	t.Run("event for the active transport id is applied", func(t *testing.T) {
		fixture := setup(t)

		fixture.session.dispatch(liveDataFrame("tr-a", 1000))
		pubsub.WaitAsync()

		waitFor(t, time.Second, func() bool { return len(fixture.state.Positions()) == 1 })
		assert.Equal(t, 1000.0, fixture.state.View().AccountInfo.Equity)
	})

	t.Run("equity patch before any snapshot is dropped", func(t *testing.T) {
		fixture := setup(t)

		payload, err := json.Marshal(eventmodels.EquityBalanceDTO{AccountID: "tr-a", Equity: 1100, Balance: 1050})
		require.Nil(t, err)

		fixture.session.dispatch(eventmodels.StreamMessageDTO{Event: eventmodels.StreamEventEquityBalance, Data: payload})
		pubsub.WaitAsync()

		assert.Nil(t, fixture.state.View().AccountInfo)
	})

	t.Run("equity patch after a snapshot merges", func(t *testing.T) {
		fixture := setup(t)

		fixture.session.dispatch(liveDataFrame("tr-a", 1000))
		pubsub.WaitAsync()
		waitFor(t, time.Second, func() bool { return fixture.state.View().AccountInfo != nil })

		payload, err := json.Marshal(eventmodels.EquityBalanceDTO{AccountID: "tr-a", Equity: 1100, Balance: 1050})
		require.Nil(t, err)

		fixture.session.dispatch(eventmodels.StreamMessageDTO{Event: eventmodels.StreamEventEquityBalance, Data: payload})
		pubsub.WaitAsync()

		waitFor(t, time.Second, func() bool { return fixture.state.View().AccountInfo.Equity == 1100 })
		assert.Equal(t, 1050.0, fixture.state.View().AccountInfo.Balance)
		// The patch touches equity and balance only; the snapshot's
		// positions survive.
		assert.Len(t, fixture.state.Positions(), 1)
	})

	t.Run("verify response routes to the submission machine", func(t *testing.T) {
		fixture := setup(t)

		waitFor(t, time.Second, func() bool { return fixture.state.Config() != nil })
		fixture.state.SetDraft(createValidDraft())

		requestID := uuid.New()
		resultCh, _ := fixture.dispatcher.Register(requestID)
		require.Nil(t, fixture.submission.Verify(requestID))
		waitFor(t, time.Second, func() bool { return fixture.streams[0].verifyCount() == 1 })

		payload, err := json.Marshal(eventmodels.VerifyOrderResponseDTO{
			Data: &eventmodels.VerifiedOrder{Symbol: "EURUSD", MaxLoss: -50},
		})
		require.Nil(t, err)

		fixture.session.dispatch(eventmodels.StreamMessageDTO{Event: eventmodels.StreamEventVerifyOrderResponse, Data: payload})

		select {
		case <-resultCh:
		case <-time.After(time.Second):
			t.Fatal("verify result never resolved")
		}

		assert.Equal(t, eventmodels.SubmissionStateAwaitingConfirmation, fixture.state.SubmissionState())
	})
}

func TestSessionFetchConfig(t *testing.T) {
	t.Run("stale config is dropped after the selection moved on", func(t *testing.T) {
		fixture := createSessionFixture(t)

		fixture.state.SetActiveAccount(eventmodels.AccountRef{PersistentID: "acct-b", TransportID: "tr-b"})

		fixture.session.fetchConfig(eventmodels.AccountRef{PersistentID: "acct-a", TransportID: "tr-a"})

		assert.Nil(t, fixture.state.Config())
	})

	t.Run("refresh is a no-op without a selection", func(t *testing.T) {
		fixture := createSessionFixture(t)

		fixture.session.RefreshConfig()

		assert.Nil(t, fixture.state.Config())
	})
}
