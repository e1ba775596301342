package expense

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/expenseflow/expense-workflow/internal/audit"
	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/transport"

	"github.com/go-chi/chi"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type ServiceAPI interface {
	CreateExpense(actor *auth.Actor, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(actor *auth.Actor, id int64) (*Expense, error)
	ListExpenses(actor *auth.Actor, status string, limit, offset int) ([]*Expense, error)
	UpdateExpense(actor *auth.Actor, id int64, dto UpdateExpenseDTO) (*Expense, error)
	DeleteExpense(actor *auth.Actor, id int64) error
	SubmitExpense(actor *auth.Actor, id int64) (*Expense, error)
	ApproveExpense(actor *auth.Actor, id int64) (*Expense, error)
	RejectExpense(actor *auth.Actor, id int64, dto RejectExpenseDTO) (*Expense, error)
	AuditHistory(actor *auth.Actor, id int64) ([]*audit.Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     service,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.CreateExpense(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]any{"data": e})
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	status := r.URL.Query().Get("status")
	limit, offset := pagination(r)

	expenses, err := h.Service.ListExpenses(actor, status, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": expenses})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	e, err := h.Service.GetExpense(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": e})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.UpdateExpense(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": e})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteExpense(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.SubmitExpense)
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.ApproveExpense)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	var dto RejectExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.RejectExpense(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": e})
}

func (h *Handler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.AuditHistory(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(*auth.Actor, int64) (*Expense, error)) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, ok := h.expenseID(w, r)
	if !ok {
		return
	}

	e, err := op(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": e})
}

func (h *Handler) expenseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
