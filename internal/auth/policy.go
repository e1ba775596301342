package auth

import (
	"github.com/expenseflow/expense-workflow/internal"
)

// Action names every capability the policy can grant. Lifecycle
// preconditions (e.g. "must be submitted to approve") are enforced by the
// expense engine; the policy only answers who may attempt what.
type Action string

const (
	ActionShow    Action = "show"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ExpenseRecord is the view of an expense the policy needs.
type ExpenseRecord interface {
	OwnerID() int64
}

// ExpenseScope is the visibility predicate for expense reads. Repositories
// translate it into a WHERE clause; in-memory callers use Allows.
type ExpenseScope struct {
	All     bool
	OwnerID int64
}

func (s ExpenseScope) Allows(record ExpenseRecord) bool {
	return s.All || record.OwnerID() == s.OwnerID
}

// Policy is the single capability-check surface consulted before every
// operation. It never mutates state.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// ScopeExpenses computes which expenses the actor may see: employees see
// their own records, reviewers see everything, no actor sees nothing.
func (p *Policy) ScopeExpenses(actor *Actor) (ExpenseScope, *internal.AppError) {
	if actor == nil {
		return ExpenseScope{}, internal.ErrUnauthenticated
	}
	if actor.IsReviewer() {
		return ExpenseScope{All: true}, nil
	}
	return ExpenseScope{OwnerID: actor.ID}, nil
}

// CanPerform reports whether the actor may attempt the action on the
// record. Record may be nil for record-independent actions (create).
func (p *Policy) CanPerform(actor *Actor, action Action, record ExpenseRecord) bool {
	if actor == nil {
		return false
	}
	switch action {
	case ActionShow:
		return actor.IsReviewer() || record.OwnerID() == actor.ID
	case ActionCreate:
		return actor.IsEmployee()
	case ActionUpdate, ActionDelete, ActionSubmit:
		return record.OwnerID() == actor.ID
	case ActionApprove, ActionReject:
		return actor.IsReviewer()
	default:
		return false
	}
}

// AuthorizeExpense maps a capability check onto the error surface.
func (p *Policy) AuthorizeExpense(actor *Actor, action Action, record ExpenseRecord) *internal.AppError {
	if actor == nil {
		return internal.ErrUnauthenticated
	}
	if !p.CanPerform(actor, action, record) {
		return internal.ErrForbidden
	}
	return nil
}

// Categories: any authenticated actor may list, only reviewers create.

func (p *Policy) AuthorizeListCategories(actor *Actor) *internal.AppError {
	if actor == nil {
		return internal.ErrUnauthenticated
	}
	return nil
}

func (p *Policy) AuthorizeCreateCategory(actor *Actor) *internal.AppError {
	if actor == nil {
		return internal.ErrUnauthenticated
	}
	if !actor.IsReviewer() {
		return internal.ErrForbidden
	}
	return nil
}

// Users: listing and role changes are reviewer-only; changing one's own
// role is a distinct validation failure, not a generic forbidden.

func (p *Policy) AuthorizeListUsers(actor *Actor) *internal.AppError {
	if actor == nil {
		return internal.ErrUnauthenticated
	}
	if !actor.IsReviewer() {
		return internal.ErrForbidden
	}
	return nil
}

func (p *Policy) AuthorizeRoleChange(actor *Actor, targetUserID int64) *internal.AppError {
	if actor == nil {
		return internal.ErrUnauthenticated
	}
	if !actor.IsReviewer() {
		return internal.ErrForbidden
	}
	if actor.ID == targetUserID {
		return internal.ErrCannotChangeOwnRole
	}
	return nil
}
