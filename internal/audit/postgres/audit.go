package postgres

import (
	"strconv"

	"github.com/expenseflow/expense-workflow/internal/audit"
	auditDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/audit"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

// Append inserts one entry using the given handle, which may be a
// transaction owned by the lifecycle engine. Entries are insert-only.
func Append(tx *gorm.DB, entry *audit.Entry) error {
	row := audit.ToDataModel(entry)
	if err := tx.Create(row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

// NullifyExpenseRef clears the live reference on every entry for the
// expense; called inside the delete transaction, mirroring the FK's
// ON DELETE SET NULL.
func NullifyExpenseRef(tx *gorm.DB, expenseID int64) error {
	return tx.Model(&auditDatamodel.AuditLog{}).
		Where("expense_id = ?", expenseID).
		Update("expense_id", nil).Error
}

func (r *AuditRepository) HistoryForExpense(expenseID int64) ([]*audit.Entry, error) {
	var rows []*auditDatamodel.AuditLog
	err := r.db.Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return audit.FromDataModelSlice(rows), nil
}

// OrphanedForExpense matches nullified entries through the metadata stamp
// written at creation, so the query stays indexed on the predicate instead
// of scanning every deleted trail. The cast keeps the comparison valid on
// both the jsonb column and the sqlite text column used in tests.
func (r *AuditRepository) OrphanedForExpense(expenseID int64) ([]*audit.Entry, error) {
	var rows []*auditDatamodel.AuditLog
	err := r.db.Where("expense_id IS NULL").
		Where("CAST(metadata ->> 'expense_id' AS TEXT) = ?", strconv.FormatInt(expenseID, 10)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return audit.FromDataModelSlice(rows), nil
}

func (r *AuditRepository) ListAll(limit, offset int) ([]*audit.Entry, error) {
	var rows []*auditDatamodel.AuditLog
	err := r.db.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return audit.FromDataModelSlice(rows), nil
}
