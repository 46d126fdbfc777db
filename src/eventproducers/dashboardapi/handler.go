package dashboardapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventconsumers"
	"tradepanel/src/eventmodels"
	"tradepanel/src/eventproducers"
	"tradepanel/src/eventservices"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type Handler struct {
	session      *eventconsumers.SessionWorker
	submission   *eventconsumers.SubmissionWorker
	state        *eventmodels.DashboardState
	dispatcher   *eventmodels.ResponseDispatcher
	resultWindow time.Duration
}

// NewHandler wires the presentation surface. resultWindow bounds how
// long a verify/confirm request waits for its stream response; it must
// exceed the coordinator's debounce plus its round-trip timeout.
func NewHandler(session *eventconsumers.SessionWorker, submission *eventconsumers.SubmissionWorker, state *eventmodels.DashboardState, dispatcher *eventmodels.ResponseDispatcher, resultWindow time.Duration) *Handler {
	return &Handler{
		session:      session,
		submission:   submission,
		state:        state,
		dispatcher:   dispatcher,
		resultWindow: resultWindow,
	}
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(404)
		return
	}

	accounts, err := h.session.FetchAccounts()
	if err != nil {
		if respErr := eventproducers.SetErrorResponse("req", 502, err, w); respErr != nil {
			log.Errorf("handleAccounts: failed to set error response: %v", respErr)
		}
		return
	}

	if err := eventproducers.SetResponse(accounts, w); err != nil {
		log.Errorf("handleAccounts: failed to set response: %v", err)
	}
}

func (h *Handler) handleSelectAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(404)
		return
	}

	var ref eventmodels.AccountRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		eventproducers.SetErrorResponse("parser", 400, err, w)
		return
	}

	if ref.PersistentID == "" || ref.TransportID == "" {
		eventproducers.SetErrorResponse("validation", 400, fmt.Errorf("persistentId and transportId are required"), w)
		return
	}

	if err := h.session.SelectAccount(ref); err != nil {
		eventproducers.SetErrorResponse("req", 502, err, w)
		return
	}

	if err := eventproducers.SetResponse(h.state.View(), w); err != nil {
		log.Errorf("handleSelectAccount: failed to set response: %v", err)
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(404)
		return
	}

	if err := eventproducers.SetResponse(h.state.View(), w); err != nil {
		log.Errorf("handleState: failed to set response: %v", err)
	}
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(404)
		return
	}

	if err := r.ParseForm(); err != nil {
		eventproducers.SetErrorResponse("parser", 400, err, w)
		return
	}

	var update eventmodels.OrderDraftUpdateDTO
	if err := decoder.Decode(&update, r.Form); err != nil {
		eventproducers.SetErrorResponse("parser", 400, err, w)
		return
	}

	h.state.UpdateDraft(func(draft *eventmodels.OrderDraft) {
		update.Apply(draft)
	})

	// Editing while a preview is on screen invalidates it: the user
	// must re-verify before confirming.
	h.submission.InvalidateVerification()

	if err := eventproducers.SetResponse(h.state.View(), w); err != nil {
		log.Errorf("handleDraft: failed to set response: %v", err)
	}
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(404)
		return
	}

	h.runSubmission(w, h.submission.Verify)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(404)
		return
	}

	h.runSubmission(w, h.submission.Confirm)
}

// runSubmission registers a uuid result callback, triggers the
// coordinator and waits, bounded, for the matching stream response.
func (h *Handler) runSubmission(w http.ResponseWriter, trigger func(requestID uuid.UUID) error) {
	id := uuid.New()
	resultCh, errCh := h.dispatcher.Register(id)

	if err := trigger(id); err != nil {
		h.dispatcher.Remove(id)
		h.setSubmissionError(err, w)
		return
	}

	select {
	case result := <-resultCh:
		if err := eventproducers.SetResponse(result, w); err != nil {
			log.Errorf("runSubmission: failed to set response: %v", err)
		}
	case err := <-errCh:
		h.setSubmissionError(err, w)
	case <-time.After(h.resultWindow):
		h.dispatcher.Remove(id)
		h.setSubmissionError(eventmodels.NewTransportError("runSubmission", fmt.Errorf("timed out waiting for result")), w)
	}
}

func (h *Handler) setSubmissionError(err error, w http.ResponseWriter) {
	var validationErr *eventmodels.ValidationError
	var domainErr *eventmodels.DomainError
	var transportErr *eventmodels.TransportError

	switch {
	case errors.As(err, &validationErr):
		eventproducers.SetErrorResponse("validation", 400, err, w)
	case errors.As(err, &domainErr):
		eventproducers.SetErrorResponse("domain", 422, err, w)
	case errors.Is(err, eventconsumers.ErrSubmissionInFlight), errors.Is(err, eventconsumers.ErrSuperseded):
		eventproducers.SetErrorResponse("conflict", 409, err, w)
	case errors.Is(err, eventconsumers.ErrCancelled):
		eventproducers.SetErrorResponse("cancelled", 409, err, w)
	case errors.As(err, &transportErr):
		eventproducers.SetErrorResponse("transport", 504, err, w)
	default:
		eventproducers.SetErrorResponse("req", 500, err, w)
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(404)
		return
	}

	h.submission.Cancel()

	if err := eventproducers.SetResponse(h.state.View(), w); err != nil {
		log.Errorf("handleCancel: failed to set response: %v", err)
	}
}

func (h *Handler) handleExportPositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(404)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="positions.csv"`)

	if err := eventservices.ExportPositionsCSV(w, h.state.Positions()); err != nil {
		log.Errorf("handleExportPositions: %v", err)
	}
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(404)
		return
	}

	result, err := eventservices.ComputeEquityStats(h.state.EquityHistory())
	if err != nil {
		eventproducers.SetErrorResponse("req", 404, err, w)
		return
	}

	if err := eventproducers.SetResponse(result, w); err != nil {
		log.Errorf("handleMetrics: failed to set response: %v", err)
	}
}

func (h *Handler) SetupHandler(router *mux.Router) {
	router.HandleFunc("/accounts", h.handleAccounts)
	router.HandleFunc("/accounts/select", h.handleSelectAccount)
	router.HandleFunc("/state", h.handleState)
	router.HandleFunc("/draft", h.handleDraft)
	router.HandleFunc("/orders/verify", h.handleVerify)
	router.HandleFunc("/orders/confirm", h.handleConfirm)
	router.HandleFunc("/orders/cancel", h.handleCancel)
	router.HandleFunc("/positions/export", h.handleExportPositions)
	router.HandleFunc("/metrics", h.handleMetrics)
}
