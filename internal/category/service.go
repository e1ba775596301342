package category

import (
	"log/slog"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

type Repository interface {
	GetAll() ([]*Category, error)
	GetByID(id int64) (*Category, error)
	GetByNameInsensitive(name string) (*Category, error)
	Create(category *Category) error
	// Delete removes the category and nullifies any expense references.
	Delete(id int64) error
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

// ListCategories returns all categories ordered by name. Any authenticated
// actor may list.
func (s *Service) ListCategories(actor *auth.Actor) ([]CategoryResponse, error) {
	if err := s.policy.AuthorizeListCategories(actor); err != nil {
		return nil, err
	}

	categories, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to get categories", "error", err)
		return nil, err
	}

	responses := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		responses[i] = c.ToResponse()
	}
	return responses, nil
}

// CreateCategory stores a new category. Reviewer-only; names are trimmed
// and unique case-insensitively.
func (s *Service) CreateCategory(actor *auth.Actor, dto CreateCategoryDTO) (*Category, error) {
	if err := s.policy.AuthorizeCreateCategory(actor); err != nil {
		s.logger.Warn("create category denied", "actor_id", actorID(actor))
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByNameInsensitive(dto.Name)
	if err != nil {
		s.logger.Error("failed to check category name", "error", err, "name", dto.Name)
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewValidationFieldError("name", "name has already been taken", internal.ErrCodeDuplicateCategory)
	}

	cat := &Category{Name: dto.Name}
	if err := s.repo.Create(cat); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("category created", "category_id", cat.ID, "name", cat.Name, "actor_id", actor.ID)
	return cat, nil
}

// DeleteCategory removes a category; expenses referencing it keep existing
// with a nullified reference.
func (s *Service) DeleteCategory(actor *auth.Actor, id int64) error {
	if err := s.policy.AuthorizeCreateCategory(actor); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return internal.ErrCategoryNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete category", "error", err, "category_id", id)
		return err
	}

	s.logger.Info("category deleted", "category_id", id, "actor_id", actor.ID)
	return nil
}

// IsValidCategory reports whether a category id exists; used by the
// expense engine to validate references.
func (s *Service) IsValidCategory(id int64) (bool, error) {
	cat, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	return cat != nil, nil
}

func actorID(actor *auth.Actor) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
