package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/transport"

	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListUsers(actor *auth.Actor) ([]*User, error)
	UpdateRole(actor *auth.Actor, targetUserID int64, dto UpdateRoleDTO) (*User, error)
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

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	users, err := h.Service.ListUsers(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = u.ToResponse(true)
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": responses})
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, svcErr := h.Service.UpdateRole(actor, targetID, dto)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": updated.ToResponse(false)})
}
