package expense

import (
	"log/slog"
	"time"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/audit"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

// Repository is the engine's persistence contract. Every mutating method
// commits the expense change and the audit entry in one atomic unit; a
// failed audit append aborts the mutation. Update and Delete run a
// compare-and-swap on lock_version and return internal.ErrStaleWrite when
// the stored version no longer matches.
type Repository interface {
	Create(e *Expense, entry *audit.Entry) error
	GetByID(id int64) (*Expense, error)
	List(scope auth.ExpenseScope, status string, limit, offset int) ([]*Expense, error)
	Update(e *Expense, expectedVersion int64, entry *audit.Entry) error
	Delete(e *Expense, expectedVersion int64, entry *audit.Entry) error
}

// CategoryChecker validates category references on create/edit.
type CategoryChecker interface {
	IsValidCategory(id int64) (bool, error)
}

// AuditReader is the history read path.
type AuditReader interface {
	HistoryForExpense(expenseID int64) ([]*audit.Entry, error)
}

// Service is the expense lifecycle engine. Transitions follow the fixed
// table: drafted -> submitted -> approved|rejected; approved and rejected
// are terminal. The access policy is consulted before every operation.
type Service struct {
	repo       Repository
	categories CategoryChecker
	auditLog   AuditReader
	policy     *auth.Policy
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, categories CategoryChecker, auditLog AuditReader, policy *auth.Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		auditLog:   auditLog,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source; test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var (
	errMustBeDraftedToModify    = internal.NewValidationError("cannot modify expense in current status", internal.ErrCodeInvalidExpenseStatus)
	errMustBeDraftedToSubmit    = internal.NewValidationError("must be drafted to submit", internal.ErrCodeInvalidExpenseStatus)
	errMustBeSubmittedToApprove = internal.NewValidationError("must be submitted to approve", internal.ErrCodeInvalidExpenseStatus)
	errMustBeSubmittedToReject  = internal.NewValidationError("must be submitted to reject", internal.ErrCodeInvalidExpenseStatus)
)

// CreateExpense creates a drafted expense owned by the acting employee.
func (s *Service) CreateExpense(actor *auth.Actor, dto CreateExpenseDTO) (*Expense, error) {
	if err := s.policy.AuthorizeExpense(actor, auth.ActionCreate, nil); err != nil {
		s.logger.Warn("create expense denied", "actor_id", actorID(actor))
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(dto.CategoryID); err != nil {
		return nil, err
	}

	e := &Expense{
		UserID:      actor.ID,
		AmountCents: dto.AmountCents,
		Currency:    dto.Currency,
		Description: dto.Description,
		Merchant:    dto.Merchant,
		IncurredOn:  dto.IncurredOnDate(),
		CategoryID:  dto.CategoryID,
		Status:      StatusDrafted,
	}

	entry := audit.NewEntry(0, actor, audit.ActionCreated, nil, strPtr(StatusDrafted), nil)
	if err := s.repo.Create(e, entry); err != nil {
		s.logger.Error("failed to create expense", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"actor_id", actor.ID,
		"amount_cents", e.AmountCents,
		"currency", e.Currency)

	return e, nil
}

// GetExpense returns one expense if the actor may see it.
func (s *Service) GetExpense(actor *auth.Actor, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeExpense(actor, auth.ActionShow, e); err != nil {
		s.logger.Warn("show expense denied", "expense_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	return e, nil
}

// ListExpenses returns the actor's visible set, newest first. An unknown
// status filter is ignored rather than rejected.
func (s *Service) ListExpenses(actor *auth.Actor, status string, limit, offset int) ([]*Expense, error) {
	scope, err := s.policy.ScopeExpenses(actor)
	if err != nil {
		return nil, err
	}

	if status != "" && !ValidStatus(status) {
		status = ""
	}

	expenses, listErr := s.repo.List(scope, status, limit, offset)
	if listErr != nil {
		s.logger.Error("failed to list expenses", "error", listErr, "actor_id", actor.ID)
		return nil, listErr
	}
	return expenses, nil
}

// UpdateExpense edits whitelisted fields of a drafted expense owned by
// the actor, guarded by the lock_version the caller read.
func (s *Service) UpdateExpense(actor *auth.Actor, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionUpdate, e); err != nil {
		s.logger.Warn("update expense denied", "expense_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	if !e.IsDrafted() {
		return nil, errMustBeDraftedToModify
	}

	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if err := s.checkCategory(dto.CategoryID); err != nil {
		return nil, err
	}

	expectedVersion := *dto.LockVersion
	changes := dto.Apply(e)

	entry := audit.NewEntry(e.ID, actor, audit.ActionUpdated,
		strPtr(e.Status), strPtr(e.Status),
		map[string]any{"previous_changes": changes})

	if err := s.repo.Update(e, expectedVersion, entry); err != nil {
		s.logger.Warn("update expense failed", "error", err, "expense_id", id, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("expense updated", "expense_id", e.ID, "actor_id", actor.ID, "changed_fields", len(changes))
	return e, nil
}

// DeleteExpense removes a drafted expense owned by the actor. Prior audit
// entries survive with a nullified expense reference; the delete entry
// itself carries a field snapshot.
func (s *Service) DeleteExpense(actor *auth.Actor, id int64) error {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionDelete, e); err != nil {
		s.logger.Warn("delete expense denied", "expense_id", id, "actor_id", actorID(actor))
		return err
	}
	if !e.IsDrafted() {
		return errMustBeDraftedToModify
	}

	entry := audit.NewEntry(e.ID, actor, audit.ActionDeleted,
		strPtr(e.Status), nil,
		map[string]any{"snapshot": e.Snapshot()})

	if err := s.repo.Delete(e, e.LockVersion, entry); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "actor_id", actor.ID)
	return nil
}

// SubmitExpense moves a drafted expense into review.
func (s *Service) SubmitExpense(actor *auth.Actor, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionSubmit, e); err != nil {
		s.logger.Warn("submit expense denied", "expense_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	if !e.IsDrafted() {
		return nil, errMustBeDraftedToSubmit
	}

	fromStatus := e.Status
	e.Submit(s.now())

	entry := audit.NewEntry(e.ID, actor, audit.ActionSubmitted,
		strPtr(fromStatus), strPtr(e.Status), nil)

	if err := s.repo.Update(e, e.LockVersion, entry); err != nil {
		s.logger.Warn("submit expense failed", "error", err, "expense_id", id)
		return nil, err
	}

	s.logger.Info("expense submitted", "expense_id", e.ID, "actor_id", actor.ID)
	return e, nil
}

// ApproveExpense closes a submitted expense as approved. Reviewer-only;
// a second approve fails the submitted precondition and writes nothing.
func (s *Service) ApproveExpense(actor *auth.Actor, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionApprove, e); err != nil {
		s.logger.Warn("approve expense denied", "expense_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	if !e.IsSubmitted() {
		return nil, errMustBeSubmittedToApprove
	}

	fromStatus := e.Status
	e.Approve(actor, s.now())

	entry := audit.NewEntry(e.ID, actor, audit.ActionApproved,
		strPtr(fromStatus), strPtr(e.Status), nil)

	if err := s.repo.Update(e, e.LockVersion, entry); err != nil {
		s.logger.Warn("approve expense failed", "error", err, "expense_id", id)
		return nil, err
	}

	s.logger.Info("expense approved", "expense_id", e.ID, "reviewer_id", actor.ID)
	return e, nil
}

// RejectExpense closes a submitted expense as rejected; the reason is
// mandatory and recorded in the audit entry.
func (s *Service) RejectExpense(actor *auth.Actor, id int64, dto RejectExpenseDTO) (*Expense, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionReject, e); err != nil {
		s.logger.Warn("reject expense denied", "expense_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	if !e.IsSubmitted() {
		return nil, errMustBeSubmittedToReject
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	fromStatus := e.Status
	e.Reject(actor, dto.RejectionReason, s.now())

	entry := audit.NewEntry(e.ID, actor, audit.ActionRejected,
		strPtr(fromStatus), strPtr(e.Status),
		map[string]any{"rejection_reason": dto.RejectionReason})

	if err := s.repo.Update(e, e.LockVersion, entry); err != nil {
		s.logger.Warn("reject expense failed", "error", err, "expense_id", id)
		return nil, err
	}

	s.logger.Info("expense rejected", "expense_id", e.ID, "reviewer_id", actor.ID)
	return e, nil
}

// AuditHistory returns the expense's trail, oldest first. Visible to the
// owner and to reviewers. The trail of a deleted expense stays readable by
// its former owner and by reviewers; everyone else sees the same not-found
// as for an id that never existed.
func (s *Service) AuditHistory(actor *auth.Actor, id int64) ([]*audit.Entry, error) {
	e, err := s.repo.GetByID(id)
	if err != nil {
		appErr, ok := internal.IsAppError(err)
		if !ok || appErr.Type != internal.ErrorTypeNotFound {
			return nil, err
		}
		if actor == nil {
			return nil, internal.ErrUnauthenticated
		}
		entries, histErr := s.auditLog.HistoryForExpense(id)
		if histErr != nil {
			return nil, histErr
		}
		if len(entries) == 0 {
			return nil, internal.ErrExpenseNotFound
		}
		if !actor.IsReviewer() && !createdBy(entries, actor) {
			return nil, internal.ErrExpenseNotFound
		}
		return entries, nil
	}

	if err := s.policy.AuthorizeExpense(actor, auth.ActionShow, e); err != nil {
		return nil, err
	}
	return s.auditLog.HistoryForExpense(id)
}

func (s *Service) checkCategory(id *int64) error {
	if id == nil || s.categories == nil {
		return nil
	}
	ok, err := s.categories.IsValidCategory(*id)
	if err != nil {
		return err
	}
	if !ok {
		return internal.NewValidationFieldError("category_id", "category must exist", internal.ErrCodeCategoryNotFound)
	}
	return nil
}

// createdBy reports whether the actor authored the trail's creation entry;
// for a deleted expense that entry identifies the former owner.
func createdBy(entries []*audit.Entry, actor *auth.Actor) bool {
	for _, entry := range entries {
		if entry.Action == audit.ActionCreated {
			return entry.ActorType == audit.ActorTypeUser && entry.ActorID == actor.ID
		}
	}
	return false
}

func actorID(actor *auth.Actor) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}

func strPtr(s string) *string {
	return &s
}
