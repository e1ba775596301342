package postgres

import (
	"errors"

	"github.com/expenseflow/expense-workflow/internal/category"
	categoryDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/category"
	expenseDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/expense"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.Repository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll() ([]*category.Category, error) {
	var rows []*categoryDatamodel.Category
	if err := r.db.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return category.FromDataModelSlice(rows), nil
}

func (r *CategoryRepository) GetByID(id int64) (*category.Category, error) {
	var row categoryDatamodel.Category
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return category.FromDataModel(&row), nil
}

func (r *CategoryRepository) GetByNameInsensitive(name string) (*category.Category, error) {
	var row categoryDatamodel.Category
	err := r.db.Where("lower(name) = lower(?)", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return category.FromDataModel(&row), nil
}

func (r *CategoryRepository) Create(c *category.Category) error {
	row := category.ToDataModel(c)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt
	return nil
}

// Delete nullifies expense references before removing the category, the
// same behavior the ON DELETE SET NULL constraint guarantees in postgres.
func (r *CategoryRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&expenseDatamodel.Expense{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&categoryDatamodel.Category{}).Error
	})
}
