package http

import (
	"net/http"
	"strconv"
	"time"

	"kopilka/internal/core"
)

type itemRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	CategoryID  *int64 `json:"category_id"`
	Subcategory string `json:"subcategory"`
}

type applyRequest struct {
	UserID      int64         `json:"user_id"`
	Kind        string        `json:"kind"`
	Account     string        `json:"account"`
	Text        string        `json:"text"`
	PiggyBankID int64         `json:"piggy_bank_id"`
	Items       []itemRequest `json:"items"`
}

func (s *Server) handleApplyOperation(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	intent := core.Intent{
		UserID:      req.UserID,
		Kind:        core.OperationKind(req.Kind),
		PiggyBankID: req.PiggyBankID,
	}
	if intent.UserID == 0 {
		intent.UserID = s.defaultUserID
	}

	// An explicit account wins; otherwise the free text is scanned for
	// card/cash vocabulary.
	switch req.Account {
	case "card":
		intent.Hint = core.HintCard
	case "cash":
		intent.Hint = core.HintCash
	case "":
		if req.Text != "" {
			hint, err := core.ResolveAccountHint(req.Text)
			if err != nil && needsAccountHint(intent.Kind) {
				writeError(w, r, err)
				return
			}
			intent.Hint = hint
		}
	default:
		writeError(w, r, core.ErrAmbiguousAccount)
		return
	}

	for _, it := range req.Items {
		amount, err := core.ParseAmount(it.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		intent.Items = append(intent.Items, core.ItemDraft{
			Name:        it.Name,
			Amount:      amount,
			CategoryID:  it.CategoryID,
			Subcategory: it.Subcategory,
		})
	}

	op, err := s.ledger.Apply(r.Context(), intent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationView(op))
}

func needsAccountHint(kind core.OperationKind) bool {
	switch kind {
	case core.HouseholdExpense, core.HouseholdIncome, core.Salary:
		return true
	}
	return false
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	userID := queryInt64(r, "user_id", s.defaultUserID)
	limit := int(queryInt64(r, "limit", 10))

	ops, err := s.ledger.Recent(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]operationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, toOperationView(op))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid operation id"})
		return
	}
	op, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationView(op))
}

func (s *Server) handleReverseOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid operation id"})
		return
	}
	if err := s.reversals.Reverse(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type amendItemRequest struct {
	Amount string `json:"amount"`
	Name   string `json:"name"`
}

func (s *Server) handleAmendItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item id"})
		return
	}
	var req amendItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Amount == "" && req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nothing to amend"})
		return
	}

	var op core.Operation
	if req.Amount != "" {
		amount, err := core.ParseAmount(req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		op, err = s.ledger.AmendItemAmount(r.Context(), id, amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Name != "" {
		op, err = s.ledger.AmendItemName(r.Context(), id, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toOperationView(op))
}

type fixedPaymentRequest struct {
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	DueDay     int    `json:"due_day"`
	CategoryID *int64 `json:"category_id"`
}

func (s *Server) handleCreateFixedPayment(w http.ResponseWriter, r *http.Request) {
	var req fixedPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := s.obligations.CreateFixedPayment(r.Context(), core.FixedPayment{
		Name:       req.Name,
		Amount:     amount,
		DueDay:     req.DueDay,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFixedPaymentView(payment))
}

func (s *Server) handleUpdateFixedPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payment id"})
		return
	}
	var req fixedPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.obligations.UpdateFixedPayment(r.Context(), id, req.Name, amount, req.DueDay); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeactivateFixedPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payment id"})
		return
	}
	if err := s.obligations.DeactivateFixedPayment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListDues(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := int(queryInt64(r, "year", int64(now.Year())))
	month := int(queryInt64(r, "month", int64(now.Month())))
	if month < 1 || month > 12 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid month"})
		return
	}

	outstanding, dues, err := s.obligations.OutstandingForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]dueView, 0, len(dues))
	for _, d := range dues {
		views = append(views, toDueView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":        year,
		"month":       month,
		"outstanding": outstanding.String(),
		"dues":        views,
	})
}

type payDueRequest struct {
	UserID  int64  `json:"user_id"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (s *Server) handlePayDue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due id"})
		return
	}
	var req payDueRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == 0 {
		req.UserID = s.defaultUserID
	}

	var amount core.Money
	if req.Amount != "" {
		amount, err = core.ParseAmount(req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	op, err := s.obligations.Pay(r.Context(), id, req.UserID, core.AccountHint(req.Account), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationView(op))
}

func (s *Server) handleSkipDue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due id"})
		return
	}
	if err := s.obligations.Skip(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type debtRequest struct {
	UserID     int64  `json:"user_id"`
	PersonName string `json:"person_name"`
	Amount     string `json:"amount"`
	Note       string `json:"note"`
	Kind       string `json:"kind"`
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == 0 {
		req.UserID = s.defaultUserID
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	debt, err := s.debts.Add(r.Context(), core.Debt{
		UserID:     req.UserID,
		PersonName: req.PersonName,
		Amount:     amount,
		Note:       req.Note,
		Kind:       core.DebtKind(req.Kind),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebtView(debt))
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	userID := queryInt64(r, "user_id", s.defaultUserID)

	debts, err := s.debts.ListOpen(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	oweMe, iOwe, err := s.debts.Totals(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]debtView, 0, len(debts))
	for _, d := range debts {
		views = append(views, toDebtView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"debts":        views,
		"owe_me_total": oweMe.String(),
		"i_owe_total":  iOwe.String(),
	})
}

func (s *Server) handleSettleDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid debt id"})
		return
	}
	if err := s.debts.Settle(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleHouseholdReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	userID := queryInt64(r, "user_id", s.defaultUserID)
	year := int(queryInt64(r, "year", int64(now.Year())))
	month := int(queryInt64(r, "month", int64(now.Month())))

	overview, err := s.reports.HouseholdMonth(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthOverviewView(overview))
}

func (s *Server) handleBusinessReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	userID := queryInt64(r, "user_id", s.defaultUserID)
	year := int(queryInt64(r, "year", int64(now.Year())))
	month := int(queryInt64(r, "month", int64(now.Month())))

	summary, err := s.reports.BusinessMonth(r.Context(), userID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessSummaryView(summary))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reports.HouseholdSnapshot(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotView(snap))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func queryInt64(r *http.Request, name string, fallback int64) int64 {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
