package postgres

import (
	"errors"

	"github.com/expenseflow/expense-workflow/internal"
	userDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/user"
	"github.com/expenseflow/expense-workflow/internal/user"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) ListAll() ([]*user.User, error) {
	var rows []*userDatamodel.User
	if err := r.db.Order("email ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(rows), nil
}

func (r *UserRepository) UpdateRole(id int64, role string) error {
	res := r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
