package summary

import (
	"log/slog"
	"sort"
	"time"

	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/expense"
)

// RecentExpense is the slice of an expense the monthly bucketing needs.
type RecentExpense struct {
	IncurredOn  time.Time
	Currency    string
	AmountCents int64
}

type Repository interface {
	// CountAll returns the number of visible expenses.
	CountAll(scope auth.ExpenseScope) (int64, error)
	// CurrencyTotals sums visible amounts grouped by currency.
	CurrencyTotals(scope auth.ExpenseScope) ([]CurrencyTotal, error)
	// StatusCounts counts visible expenses grouped by status.
	StatusCounts(scope auth.ExpenseScope) (map[string]int64, error)
	// ExpensesSince returns visible expenses incurred on or after the date.
	ExpensesSince(scope auth.ExpenseScope, since time.Time) ([]RecentExpense, error)
}

// monthlyWindow is the number of trailing calendar months in the monthly
// breakdown, current month included.
const monthlyWindow = 6

// Service computes the aggregate view. Month bucketing happens here
// rather than in SQL so the grouping is identical across databases.
type Service struct {
	repo   Repository
	policy *auth.Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, policy *auth.Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source; test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetSummary aggregates the actor's visible expenses: an all-time count
// with per-currency totals, a zero-filled by-status breakdown, and a
// per-month, per-currency breakdown over the trailing six UTC calendar
// months.
func (s *Service) GetSummary(actor *auth.Actor) (*Summary, error) {
	scope, err := s.policy.ScopeExpenses(actor)
	if err != nil {
		return nil, err
	}

	count, cntErr := s.repo.CountAll(scope)
	if cntErr != nil {
		s.logger.Error("failed to count expenses", "error", cntErr)
		return nil, cntErr
	}

	totals, totErr := s.repo.CurrencyTotals(scope)
	if totErr != nil {
		s.logger.Error("failed to total expenses", "error", totErr)
		return nil, totErr
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })

	byStatus, stErr := s.repo.StatusCounts(scope)
	if stErr != nil {
		s.logger.Error("failed to count expenses by status", "error", stErr)
		return nil, stErr
	}
	for _, status := range expense.Statuses {
		if _, ok := byStatus[status]; !ok {
			byStatus[status] = 0
		}
	}

	monthly, moErr := s.monthlyBreakdown(scope)
	if moErr != nil {
		s.logger.Error("failed to build monthly breakdown", "error", moErr)
		return nil, moErr
	}

	return &Summary{
		AllTime:  AllTime{Count: count, Totals: totals},
		ByStatus: byStatus,
		Monthly:  monthly,
	}, nil
}

func (s *Service) monthlyBreakdown(scope auth.ExpenseScope) ([]MonthlyTotal, error) {
	now := s.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(monthlyWindow - 1), 0)

	recent, err := s.repo.ExpensesSince(scope, windowStart)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		month    string
		currency string
	}
	sums := map[bucket]*MonthlyTotal{}
	for _, e := range recent {
		incurred := e.IncurredOn.UTC()
		if incurred.Before(windowStart) {
			continue
		}
		key := bucket{month: incurred.Format("2006-01"), currency: e.Currency}
		total, ok := sums[key]
		if !ok {
			total = &MonthlyTotal{Month: key.month, Currency: key.currency}
			sums[key] = total
		}
		total.AmountCents += e.AmountCents
		total.Count++
	}

	monthly := make([]MonthlyTotal, 0, len(sums))
	for _, total := range sums {
		monthly = append(monthly, *total)
	}
	sort.Slice(monthly, func(i, j int) bool {
		if monthly[i].Month != monthly[j].Month {
			return monthly[i].Month < monthly[j].Month
		}
		return monthly[i].Currency < monthly[j].Currency
	})
	return monthly, nil
}
