package category

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/transport"

	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListCategories(actor *auth.Actor) ([]CategoryResponse, error)
	CreateCategory(actor *auth.Actor, dto CreateCategoryDTO) (*Category, error)
	DeleteCategory(actor *auth.Actor, id int64) error
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

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	categories, err := h.Service.ListCategories(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"data": categories})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var dto CreateCategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.Service.CreateCategory(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]any{"data": cat.ToResponse()})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	if err := h.Service.DeleteCategory(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
