package category

import (
	"strings"

	"github.com/expenseflow/expense-workflow/internal"
)

type CreateCategoryDTO struct {
	Name string `json:"name"`
}

// Normalize trims surrounding whitespace before storage.
func (dto *CreateCategoryDTO) Normalize() {
	dto.Name = strings.TrimSpace(dto.Name)
}

func (dto CreateCategoryDTO) Validate() *internal.AppError {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name can't be blank", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}
