package eventmodels

import "sync"

const maxEquityHistory = 1024

// DashboardState is the shared view-state container: the account
// selection, the live snapshot, the order draft and the submission
// machine state. It is owned by the session worker and passed by
// reference to the live-state and submission workers.
type DashboardState struct {
	mu sync.RWMutex

	activeAccount *AccountRef
	config        *AccountConfig

	liveInfo      *LiveAccountInfo
	positions     []Position
	pendingOrders []PendingOrder
	equityHistory []float64

	draft           *OrderDraft
	submissionState SubmissionState
	verifiedOrder   *VerifiedOrder
}

func NewDashboardState() *DashboardState {
	return &DashboardState{
		draft:           NewOrderDraft(nil),
		submissionState: SubmissionStateIdle,
	}
}

// SetActiveAccount swaps the selection and clears everything scoped to
// the previous account. The clear happens here, eagerly, so stale data
// from the old account is never shown under the new selection.
func (s *DashboardState) SetActiveAccount(ref AccountRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeAccount = &ref
	s.config = nil
	s.clearLiveStateLocked()
	s.draft = NewOrderDraft(nil)
	s.submissionState = SubmissionStateIdle
	s.verifiedOrder = nil
}

func (s *DashboardState) clearLiveStateLocked() {
	s.liveInfo = nil
	s.positions = nil
	s.pendingOrders = nil
	s.equityHistory = nil
}

func (s *DashboardState) ActiveAccount() *AccountRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeAccount == nil {
		return nil
	}

	ref := *s.activeAccount
	return &ref
}

// ActiveTransportID returns the transport identifier every inbound
// stream event must match, or "" when no account is selected.
func (s *DashboardState) ActiveTransportID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeAccount == nil {
		return ""
	}

	return s.activeAccount.TransportID
}

// SetConfig stores a freshly fetched config and re-initializes the
// draft so it carries one take-profit slot per splitting-target leg.
func (s *DashboardState) SetConfig(config *AccountConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = config
	s.draft = NewOrderDraft(config)
}

// SetConfigFor installs a fetched config only if ref is still the
// active account, compared under the same lock that writes. A fetch
// completing after the selection moved on is dropped.
func (s *DashboardState) SetConfigFor(ref AccountRef, config *AccountConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeAccount == nil || s.activeAccount.PersistentID != ref.PersistentID {
		return false
	}

	s.config = config
	s.draft = NewOrderDraft(config)

	return true
}

func (s *DashboardState) Config() *AccountConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil
	}

	config := *s.config
	return &config
}

// matchesTransportLocked mirrors the dispatch guard: an untagged event
// passes, a tagged one must match the active account's transport id.
func (s *DashboardState) matchesTransportLocked(transportID string) bool {
	if transportID == "" {
		return true
	}

	return s.activeAccount != nil && s.activeAccount.TransportID == transportID
}

// ApplySnapshot replaces positions, pending orders and account info
// wholesale. The event's transport id is re-checked under the same lock
// that writes: handlers run asynchronously, and an account switch
// landing between the dispatch guard and this write must drop the
// snapshot, not apply it into the new account's state.
func (s *DashboardState) ApplySnapshot(transportID string, data PositionDataDTO) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.matchesTransportLocked(transportID) {
		return false
	}

	s.positions = data.LivePositions
	s.pendingOrders = data.PendingOrders
	s.liveInfo = data.AccountInformation

	if data.AccountInformation != nil {
		s.appendEquityLocked(data.AccountInformation.Equity)
	}

	return true
}

// ApplyEquityBalance merges equity and balance into the existing
// account info. The transport id is re-checked under the lock, same as
// ApplySnapshot. When no snapshot has arrived yet the patch is dropped;
// a later snapshot supersedes it.
func (s *DashboardState) ApplyEquityBalance(patch EquityBalanceDTO) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.matchesTransportLocked(patch.AccountID) {
		return false
	}

	if s.liveInfo == nil {
		return false
	}

	s.liveInfo.Equity = patch.Equity
	s.liveInfo.Balance = patch.Balance
	s.appendEquityLocked(patch.Equity)

	return true
}

func (s *DashboardState) appendEquityLocked(equity float64) {
	s.equityHistory = append(s.equityHistory, equity)
	if len(s.equityHistory) > maxEquityHistory {
		s.equityHistory = s.equityHistory[len(s.equityHistory)-maxEquityHistory:]
	}
}

func (s *DashboardState) EquityHistory() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]float64, len(s.equityHistory))
	copy(history, s.equityHistory)

	return history
}

func (s *DashboardState) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]Position, len(s.positions))
	copy(positions, s.positions)

	return positions
}

// Draft returns a copy of the current draft.
func (s *DashboardState) Draft() OrderDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft := *s.draft
	draft.TakeProfit = append([]string(nil), s.draft.TakeProfit...)

	return draft
}

func (s *DashboardState) SetDraft(draft OrderDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = &draft
}

// UpdateDraft applies an edit to the draft in place, under the lock, so
// two concurrent edits cannot lose each other's fields.
func (s *DashboardState) UpdateDraft(fn func(draft *OrderDraft)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.draft)
}

// ResetDraft re-initializes the draft from the current config, used
// after a successful placement.
func (s *DashboardState) ResetDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = NewOrderDraft(s.config)
}

// ValidateForm is the submission validity predicate: an account must be
// selected and the draft must pass validation against the current
// config.
func (s *DashboardState) ValidateForm() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeAccount == nil {
		return NewValidationError("account", "no account selected")
	}

	return s.draft.Validate(s.config)
}

// BuildOrderRequest normalizes the current draft into an outbound
// payload against the current account and config.
func (s *DashboardState) BuildOrderRequest() (*PlaceOrderRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeAccount == nil {
		return nil, NewValidationError("account", "no account selected")
	}

	return s.draft.ToPlaceOrderRequest(*s.activeAccount, s.config)
}

func (s *DashboardState) SubmissionState() SubmissionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.submissionState
}

func (s *DashboardState) SetSubmissionState(state SubmissionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissionState = state
}

func (s *DashboardState) VerifiedOrder() *VerifiedOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.verifiedOrder == nil {
		return nil
	}

	order := *s.verifiedOrder
	return &order
}

func (s *DashboardState) SetVerifiedOrder(order *VerifiedOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifiedOrder = order
}

// DashboardStateView is the read model served to the presentation
// layer.
type DashboardStateView struct {
	ActiveAccount   *AccountRef      `json:"activeAccount"`
	Config          *AccountConfig   `json:"config"`
	AccountInfo     *LiveAccountInfo `json:"accountInfo"`
	Positions       []Position       `json:"positions"`
	PendingOrders   []PendingOrder   `json:"pendingOrders"`
	Draft           OrderDraft       `json:"draft"`
	SubmissionState SubmissionState  `json:"submissionState"`
	VerifiedOrder   *VerifiedOrder   `json:"verifiedOrder,omitempty"`
}

func (s *DashboardState) View() DashboardStateView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := DashboardStateView{
		Positions:       append([]Position(nil), s.positions...),
		PendingOrders:   append([]PendingOrder(nil), s.pendingOrders...),
		SubmissionState: s.submissionState,
	}

	if s.activeAccount != nil {
		ref := *s.activeAccount
		view.ActiveAccount = &ref
	}

	if s.config != nil {
		config := *s.config
		view.Config = &config
	}

	if s.liveInfo != nil {
		info := *s.liveInfo
		view.AccountInfo = &info
	}

	view.Draft = *s.draft
	view.Draft.TakeProfit = append([]string(nil), s.draft.TakeProfit...)

	if s.verifiedOrder != nil {
		order := *s.verifiedOrder
		view.VerifiedOrder = &order
	}

	return view
}
