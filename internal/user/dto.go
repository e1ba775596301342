package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

type UpdateRoleDTO struct {
	Role string `json:"role"`
}

func (dto UpdateRoleDTO) Validate() *internal.AppError {
	if !auth.ValidRole(dto.Role) {
		message := fmt.Sprintf("role must be one of: %s", strings.Join(auth.Roles, ", "))
		return internal.NewValidationFieldError("role", message, internal.ErrCodeInvalidRole)
	}
	return nil
}

type UserResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (u *User) ToResponse(includeCreatedAt bool) UserResponse {
	resp := UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
	if includeCreatedAt {
		createdAt := u.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}
