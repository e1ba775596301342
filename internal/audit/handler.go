package audit

import (
	"net/http"
	"strconv"

	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/transport"
)

type ServiceAPI interface {
	ListAll(actor *auth.Actor, limit, offset int) ([]*Entry, error)
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

// ListAuditLogs is the compliance view over every entry, reviewer-only.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	entries, err := h.Service.ListAll(actor, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": entries})
}
