package postgres

import (
	"time"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
	expenseDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/expense"
	"github.com/expenseflow/expense-workflow/internal/summary"

	"gorm.io/gorm"
)

type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) summary.Repository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) scoped(scope auth.ExpenseScope) *gorm.DB {
	query := r.db.Model(&expenseDatamodel.Expense{})
	if !scope.All {
		query = query.Where("user_id = ?", scope.OwnerID)
	}
	return query
}

func (r *SummaryRepository) CountAll(scope auth.ExpenseScope) (int64, error) {
	var count int64
	if err := r.scoped(scope).Count(&count).Error; err != nil {
		return 0, internal.NewInternalError("failed to count expenses", err)
	}
	return count, nil
}

func (r *SummaryRepository) CurrencyTotals(scope auth.ExpenseScope) ([]summary.CurrencyTotal, error) {
	var totals []summary.CurrencyTotal
	err := r.scoped(scope).
		Select("currency, SUM(amount_cents) AS amount_cents").
		Group("currency").
		Scan(&totals).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to total expenses by currency", err)
	}
	return totals, nil
}

func (r *SummaryRepository) StatusCounts(scope auth.ExpenseScope) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.scoped(scope).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to count expenses by status", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *SummaryRepository) ExpensesSince(scope auth.ExpenseScope, since time.Time) ([]summary.RecentExpense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.scoped(scope).
		Where("incurred_on >= ?", since).
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load recent expenses", err)
	}

	recent := make([]summary.RecentExpense, len(rows))
	for i, row := range rows {
		recent[i] = summary.RecentExpense{
			IncurredOn:  row.IncurredOn,
			Currency:    row.Currency,
			AmountCents: row.AmountCents,
		}
	}
	return recent, nil
}
