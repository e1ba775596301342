package audit

import (
	"time"

	"github.com/expenseflow/expense-workflow/internal/auth"
	auditDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/audit"
)

// Audit actions, one per successful lifecycle mutation.
const (
	ActionCreated   = "expense.created"
	ActionUpdated   = "expense.updated"
	ActionDeleted   = "expense.deleted"
	ActionSubmitted = "expense.submitted"
	ActionApproved  = "expense.approved"
	ActionRejected  = "expense.rejected"
)

// ActorTypeUser is the only actor kind in this domain. The column pair
// (actor_type, actor_id) stays open for future kinds without a migration.
const ActorTypeUser = "User"

// Entry is one immutable record of a completed mutation. Entries are never
// updated or deleted; they outlive the expense they reference.
type Entry struct {
	ID         int64          `json:"id"`
	ExpenseID  *int64         `json:"expense_id"`
	ActorType  string         `json:"-"`
	ActorID    int64          `json:"actor_id"`
	ActorEmail string         `json:"actor_email,omitempty"`
	Action     string         `json:"action"`
	FromStatus *string        `json:"from_status"`
	ToStatus   *string        `json:"to_status"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEntry builds an entry for a mutation on the given expense. The causal
// expense id is also stamped into metadata so history survives the
// nullify-on-delete of the column reference.
func NewEntry(expenseID int64, actor *auth.Actor, action string, fromStatus, toStatus *string, metadata map[string]any) *Entry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["expense_id"] = expenseID

	id := expenseID
	return &Entry{
		ExpenseID:  &id,
		ActorType:  ActorTypeUser,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Metadata:   metadata,
	}
}

// BindExpense re-stamps the entry with the expense id once it is known,
// used when the entry is built before the insert that generates the id.
func (e *Entry) BindExpense(expenseID int64) {
	id := expenseID
	e.ExpenseID = &id
	e.Metadata["expense_id"] = expenseID
}

func ToDataModel(e *Entry) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:         e.ID,
		ExpenseID:  e.ExpenseID,
		ActorType:  e.ActorType,
		ActorID:    e.ActorID,
		Action:     e.Action,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		Metadata:   auditDatamodel.Metadata(e.Metadata),
	}
}

func FromDataModel(row *auditDatamodel.AuditLog) *Entry {
	return &Entry{
		ID:         row.ID,
		ExpenseID:  row.ExpenseID,
		ActorType:  row.ActorType,
		ActorID:    row.ActorID,
		Action:     row.Action,
		FromStatus: row.FromStatus,
		ToStatus:   row.ToStatus,
		Metadata:   map[string]any(row.Metadata),
		CreatedAt:  row.CreatedAt,
	}
}

func FromDataModelSlice(rows []*auditDatamodel.AuditLog) []*Entry {
	result := make([]*Entry, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
