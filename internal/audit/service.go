package audit

import (
	"log/slog"
	"sort"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

type Repository interface {
	// HistoryForExpense returns entries whose live reference matches,
	// ordered by created_at ascending.
	HistoryForExpense(expenseID int64) ([]*Entry, error)
	// OrphanedForExpense returns entries whose expense reference was
	// nullified by a deletion, matched through the metadata stamp so the
	// lookup does not scan every deleted trail.
	OrphanedForExpense(expenseID int64) ([]*Entry, error)
	ListAll(limit, offset int) ([]*Entry, error)
}

// Service is the audit read path. Writes happen inside the lifecycle
// engine's transactions; nothing here mutates state.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// HistoryForExpense reconstructs the full trail for an expense, including
// entries whose column reference was nullified when the expense was
// deleted (matched through the metadata stamp).
func (s *Service) HistoryForExpense(expenseID int64) ([]*Entry, error) {
	entries, err := s.repo.HistoryForExpense(expenseID)
	if err != nil {
		s.logger.Error("failed to load audit history", "error", err, "expense_id", expenseID)
		return nil, err
	}

	orphaned, err := s.repo.OrphanedForExpense(expenseID)
	if err != nil {
		s.logger.Error("failed to load orphaned audit entries", "error", err, "expense_id", expenseID)
		return nil, err
	}
	entries = append(entries, orphaned...)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// ListAll is the compliance view over every entry, reviewer-only.
func (s *Service) ListAll(actor *auth.Actor, limit, offset int) ([]*Entry, error) {
	if actor == nil {
		return nil, internal.ErrUnauthenticated
	}
	if !actor.IsReviewer() {
		return nil, internal.ErrForbidden
	}

	entries, err := s.repo.ListAll(limit, offset)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		return nil, err
	}
	return entries, nil
}
