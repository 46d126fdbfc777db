package eventconsumers

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventmodels"
	pubsub "tradepanel/src/eventpubsub"
)

// LiveStateWorker mutates the live snapshot. The dispatch guard has
// already run when an event reaches it, but delivery is asynchronous,
// so the state container re-checks the transport tag under its own
// lock and reports a drop back to the handler.
type LiveStateWorker struct {
	wg    *sync.WaitGroup
	state *eventmodels.DashboardState
}

func NewLiveStateWorkerClient(wg *sync.WaitGroup, state *eventmodels.DashboardState) *LiveStateWorker {
	return &LiveStateWorker{
		wg:    wg,
		state: state,
	}
}

func (w *LiveStateWorker) handleLiveData(event eventmodels.LiveDataDTO) {
	log.Debug("<- LiveStateWorker.handleLiveData")

	if !w.state.ApplySnapshot(event.AccountID, event.PositionData) {
		log.Debugf("LiveStateWorker.handleLiveData: dropped snapshot for transport id %s", event.AccountID)
	}
}

func (w *LiveStateWorker) handleEquityBalance(event eventmodels.EquityBalanceDTO) {
	log.Debug("<- LiveStateWorker.handleEquityBalance")

	if !w.state.ApplyEquityBalance(event) {
		log.Debugf("LiveStateWorker.handleEquityBalance: dropped patch, no snapshot yet")
	}
}

func (w *LiveStateWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	pubsub.Subscribe("LiveStateWorker", eventmodels.LiveDataEventName, w.handleLiveData)
	pubsub.Subscribe("LiveStateWorker", eventmodels.EquityBalanceEventName, w.handleEquityBalance)

	go func() {
		defer w.wg.Done()

		<-ctx.Done()
		log.Info("stopping LiveStateWorker consumer")
	}()
}
