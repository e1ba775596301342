package user

import (
	"log/slog"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

type Repository interface {
	GetByID(id int64) (*User, error)
	ListAll() ([]*User, error)
	UpdateRole(id int64, role string) error
}

type Service struct {
	repo   Repository
	policy *auth.Policy
	logger *slog.Logger
}

func NewService(repo Repository, policy *auth.Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		logger: logger,
	}
}

func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every user, ordered by email. Reviewer-only.
func (s *Service) ListUsers(actor *auth.Actor) ([]*User, error) {
	if err := s.policy.AuthorizeListUsers(actor); err != nil {
		s.logger.Warn("list users denied", "actor_id", actorID(actor))
		return nil, err
	}

	users, err := s.repo.ListAll()
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

// UpdateRole assigns a new role to the target user. Only reviewers may
// change roles, and never their own.
func (s *Service) UpdateRole(actor *auth.Actor, targetUserID int64, dto UpdateRoleDTO) (*User, error) {
	if err := s.policy.AuthorizeRoleChange(actor, targetUserID); err != nil {
		s.logger.Warn("role change denied",
			"actor_id", actorID(actor),
			"target_user_id", targetUserID,
			"code", err.Code)
		return nil, err
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(targetUserID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if err := s.repo.UpdateRole(target.ID, dto.Role); err != nil {
		s.logger.Error("failed to update role", "error", err, "target_user_id", targetUserID)
		return nil, err
	}
	target.Role = dto.Role

	s.logger.Info("role updated",
		"actor_id", actor.ID,
		"target_user_id", target.ID,
		"role", dto.Role)

	return target, nil
}

func actorID(actor *auth.Actor) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
