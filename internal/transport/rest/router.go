package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/expenseflow/expense-workflow/internal/audit"
	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/category"
	"github.com/expenseflow/expense-workflow/internal/expense"
	"github.com/expenseflow/expense-workflow/internal/summary"
	"github.com/expenseflow/expense-workflow/internal/transport/middleware"
	"github.com/expenseflow/expense-workflow/internal/transport/swagger"
	"github.com/expenseflow/expense-workflow/internal/user"

	"github.com/go-chi/chi"
)

type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Expense  *expense.Handler
	Category *category.Handler
	Summary  *summary.Handler
	Audit    *audit.Handler
}

// RegisterAllRoutes wires the full API surface under /api/v1. Everything
// except login, refresh, and the health probes sits behind the auth
// middleware.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestLogger)

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.Me)
			pr.Get("/users", h.User.ListUsers)
			pr.Patch("/users/{id}/role", h.User.UpdateRole)

			pr.Get("/categories", h.Category.ListCategories)
			pr.Post("/categories", h.Category.CreateCategory)
			pr.Delete("/categories/{id}", h.Category.DeleteCategory)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/", h.Expense.ListExpenses)
				er.Get("/summary", h.Summary.GetSummary)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
				er.Patch("/{id}/submit", h.Expense.SubmitExpense)
				er.Patch("/{id}/approve", h.Expense.ApproveExpense)
				er.Patch("/{id}/reject", h.Expense.RejectExpense)
				er.Get("/{id}/audit_logs", h.Expense.AuditHistory)
			})

			pr.Get("/audit_logs", h.Audit.ListAuditLogs)
		})
	})
}
