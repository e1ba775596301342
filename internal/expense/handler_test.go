package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/expense"
)

var _ = Describe("ExpenseHandler", func() {
	var (
		repo    *mockRepository
		handler *expense.Handler

		employee *auth.Actor
	)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	request := func(method string, body map[string]any) *http.Request {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(method, "/expenses", bytes.NewReader(raw))
		return req.WithContext(auth.ContextWithActor(req.Context(), employee))
	}

	withRouteID := func(req *http.Request, id int64) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", strconv.FormatInt(id, 10))
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	decode := func(w *httptest.ResponseRecorder) expense.Expense {
		var response struct {
			Data expense.Expense `json:"data"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		return response.Data
	}

	BeforeEach(func() {
		repo = newMockRepository()
		categories := &mockCategoryChecker{valid: map[int64]bool{10: true}}
		service := expense.NewService(repo, categories, &mockAuditReader{repo: repo}, auth.NewPolicy(), quiet)
		handler = expense.NewHandler(service)

		employee = &auth.Actor{ID: 1, Email: "employee@example.com", Role: auth.RoleEmployee}
	})

	Describe("CreateExpense", func() {
		It("creates a drafted expense from the whitelisted fields", func() {
			w := httptest.NewRecorder()
			handler.CreateExpense(w, request(http.MethodPost, map[string]any{
				"amount_cents": 4200,
				"currency":     "usd",
				"description":  "client lunch",
				"incurred_on":  "2026-08-20",
			}))

			Expect(w.Code).To(Equal(http.StatusCreated))
			created := decode(w)
			Expect(created.Status).To(Equal(expense.StatusDrafted))
			Expect(created.Currency).To(Equal("USD"))
			Expect(created.UserID).To(Equal(employee.ID))
		})

		It("drops injected workflow fields from the request body", func() {
			w := httptest.NewRecorder()
			handler.CreateExpense(w, request(http.MethodPost, map[string]any{
				"amount_cents":     4200,
				"incurred_on":      "2026-08-20",
				"status":           "approved",
				"user_id":          42,
				"reviewer_id":      9,
				"submitted_at":     "2026-08-21T00:00:00Z",
				"reviewed_at":      "2026-08-21T00:00:00Z",
				"rejection_reason": "smuggled",
				"lock_version":     7,
			}))

			Expect(w.Code).To(Equal(http.StatusCreated))
			created := decode(w)
			Expect(created.Status).To(Equal(expense.StatusDrafted))
			Expect(created.UserID).To(Equal(employee.ID))
			Expect(created.ReviewerID).To(BeNil())
			Expect(created.SubmittedAt).To(BeNil())
			Expect(created.ReviewedAt).To(BeNil())
			Expect(created.RejectionReason).To(BeNil())
			Expect(created.LockVersion).To(BeZero())

			stored, err := repo.GetByID(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(expense.StatusDrafted))
			Expect(stored.UserID).To(Equal(employee.ID))
			Expect(stored.ReviewerID).To(BeNil())
			Expect(stored.LockVersion).To(BeZero())
		})
	})

	Describe("UpdateExpense", func() {
		It("applies whitelisted fields and drops injected ones", func() {
			create := httptest.NewRecorder()
			handler.CreateExpense(create, request(http.MethodPost, map[string]any{
				"amount_cents": 4200,
				"incurred_on":  "2026-08-20",
			}))
			Expect(create.Code).To(Equal(http.StatusCreated))
			draft := decode(create)

			w := httptest.NewRecorder()
			handler.UpdateExpense(w, withRouteID(request(http.MethodPatch, map[string]any{
				"lock_version": 0,
				"amount_cents": 9900,
				"status":       "approved",
				"user_id":      42,
				"reviewer_id":  9,
				"reviewed_at":  "2026-08-21T00:00:00Z",
			}), draft.ID))

			Expect(w.Code).To(Equal(http.StatusOK))
			updated := decode(w)
			Expect(updated.Status).To(Equal(expense.StatusDrafted))
			Expect(updated.AmountCents).To(Equal(int64(9900)))
			Expect(updated.UserID).To(Equal(employee.ID))
			Expect(updated.ReviewerID).To(BeNil())
			Expect(updated.ReviewedAt).To(BeNil())
			Expect(updated.LockVersion).To(Equal(int64(1)))

			stored, err := repo.GetByID(draft.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(expense.StatusDrafted))
			Expect(stored.UserID).To(Equal(employee.ID))
			Expect(stored.ReviewerID).To(BeNil())

			changes, ok := repo.lastEntry().Metadata["previous_changes"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(changes).To(HaveLen(1))
			Expect(changes).To(HaveKey("amount_cents"))
		})
	})
})
