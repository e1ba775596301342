package postgres

import (
	"errors"
	"time"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/audit"
	auditPostgres "github.com/expenseflow/expense-workflow/internal/audit/postgres"
	"github.com/expenseflow/expense-workflow/internal/auth"
	expenseDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/expense"
	"github.com/expenseflow/expense-workflow/internal/expense"

	"gorm.io/gorm"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

// Create inserts the expense and its creation audit entry in one
// transaction. The entry is stamped with the generated id before append so
// the trail stays traceable after a later delete.
func (r *ExpenseRepository) Create(e *expense.Expense, entry *audit.Entry) error {
	row := expense.ToDataModel(e)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		entry.BindExpense(row.ID)
		return auditPostgres.Append(tx, entry)
	})
	if err != nil {
		return internal.NewInternalError("failed to create expense", err)
	}

	*e = *expense.FromDataModel(row)
	return nil
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, internal.NewInternalError("failed to get expense", err)
	}
	return expense.FromDataModel(&row), nil
}

// List applies the visibility scope and optional status filter, newest
// first.
func (r *ExpenseRepository) List(scope auth.ExpenseScope, status string, limit, offset int) ([]*expense.Expense, error) {
	query := r.db.Model(&expenseDatamodel.Expense{})
	if !scope.All {
		query = query.Where("user_id = ?", scope.OwnerID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []*expenseDatamodel.Expense
	err := query.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list expenses", err)
	}
	return expense.FromDataModelSlice(rows), nil
}

// Update persists the mutated expense guarded by a compare-and-swap on
// lock_version, bumps the version, and appends the audit entry in the same
// transaction. A version mismatch on an existing row is ErrStaleWrite.
func (r *ExpenseRepository) Update(e *expense.Expense, expectedVersion int64, entry *audit.Entry) error {
	row := expense.ToDataModel(e)
	row.LockVersion = expectedVersion + 1
	row.UpdatedAt = time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&expenseDatamodel.Expense{}).
			Where("id = ? AND lock_version = ?", row.ID, expectedVersion).
			Updates(map[string]interface{}{
				"amount_cents":     row.AmountCents,
				"currency":         row.Currency,
				"description":      row.Description,
				"merchant":         row.Merchant,
				"incurred_on":      row.IncurredOn,
				"category_id":      row.CategoryID,
				"status":           row.Status,
				"reviewer_id":      row.ReviewerID,
				"submitted_at":     row.SubmittedAt,
				"reviewed_at":      row.ReviewedAt,
				"rejection_reason": row.RejectionReason,
				"lock_version":     row.LockVersion,
				"updated_at":       row.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.staleOrMissing(tx, row.ID)
		}
		return auditPostgres.Append(tx, entry)
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		return internal.NewInternalError("failed to update expense", err)
	}

	e.LockVersion = row.LockVersion
	e.UpdatedAt = row.UpdatedAt
	return nil
}

// Delete removes the row under the same compare-and-swap guard, nullifies
// the live reference on the expense's prior audit entries, and appends the
// deletion entry, all in one transaction.
func (r *ExpenseRepository) Delete(e *expense.Expense, expectedVersion int64, entry *audit.Entry) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND lock_version = ?", e.ID, expectedVersion).
			Delete(&expenseDatamodel.Expense{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.staleOrMissing(tx, e.ID)
		}
		if err := auditPostgres.NullifyExpenseRef(tx, e.ID); err != nil {
			return err
		}
		entry.ExpenseID = nil
		return auditPostgres.Append(tx, entry)
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		return internal.NewInternalError("failed to delete expense", err)
	}
	return nil
}

// staleOrMissing disambiguates a zero-row compare-and-swap: a row that
// still exists lost the version race, a missing row is not found.
func (r *ExpenseRepository) staleOrMissing(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return internal.ErrExpenseNotFound
	}
	return internal.ErrStaleWrite
}
