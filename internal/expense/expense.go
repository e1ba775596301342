package expense

import (
	"time"

	"github.com/expenseflow/expense-workflow/internal/auth"
	expenseDatamodel "github.com/expenseflow/expense-workflow/internal/core/datamodel/expense"
)

// Statuses form a closed set; drafted and submitted are the only
// non-terminal states. Mutation happens only through the named transition
// methods below; there is no generic status setter.
const (
	StatusDrafted   = "drafted"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Statuses in enum order, used for filter validation and the zero-filled
// by-status breakdown.
var Statuses = []string{StatusDrafted, StatusSubmitted, StatusApproved, StatusRejected}

func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

type Expense struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	ReviewerID      *int64     `json:"reviewer_id"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	Description     string     `json:"description"`
	Merchant        string     `json:"merchant"`
	IncurredOn      time.Time  `json:"incurred_on"`
	Status          string     `json:"status"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason *string    `json:"rejection_reason"`
	CategoryID      *int64     `json:"category_id"`
	LockVersion     int64      `json:"lock_version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OwnerID implements auth.ExpenseRecord.
func (e *Expense) OwnerID() int64 {
	return e.UserID
}

func (e *Expense) IsDrafted() bool {
	return e.Status == StatusDrafted
}

func (e *Expense) IsSubmitted() bool {
	return e.Status == StatusSubmitted
}

// Submit moves a drafted expense into review. The caller checks the
// drafted precondition first.
func (e *Expense) Submit(now time.Time) {
	e.Status = StatusSubmitted
	e.SubmittedAt = &now
}

// Approve closes the review. Clears any rejection reason left from a
// prior rejected draft cycle.
func (e *Expense) Approve(reviewer *auth.Actor, now time.Time) {
	e.Status = StatusApproved
	e.ReviewedAt = &now
	e.ReviewerID = &reviewer.ID
	e.RejectionReason = nil
}

// Reject closes the review with a reason.
func (e *Expense) Reject(reviewer *auth.Actor, reason string, now time.Time) {
	e.Status = StatusRejected
	e.ReviewedAt = &now
	e.ReviewerID = &reviewer.ID
	e.RejectionReason = &reason
}

// Snapshot captures the fields recorded in the delete audit entry.
func (e *Expense) Snapshot() map[string]any {
	return map[string]any{
		"amount_cents":     e.AmountCents,
		"currency":         e.Currency,
		"merchant":         e.Merchant,
		"description":      e.Description,
		"incurred_on":      e.IncurredOn.Format(time.DateOnly),
		"status":           e.Status,
		"submitted_at":     e.SubmittedAt,
		"reviewed_at":      e.ReviewedAt,
		"reviewer_id":      e.ReviewerID,
		"rejection_reason": e.RejectionReason,
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:              e.ID,
		UserID:          e.UserID,
		ReviewerID:      e.ReviewerID,
		AmountCents:     e.AmountCents,
		Currency:        e.Currency,
		Description:     e.Description,
		Merchant:        e.Merchant,
		IncurredOn:      e.IncurredOn,
		Status:          e.Status,
		SubmittedAt:     e.SubmittedAt,
		ReviewedAt:      e.ReviewedAt,
		RejectionReason: e.RejectionReason,
		CategoryID:      e.CategoryID,
		LockVersion:     e.LockVersion,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:              e.ID,
		UserID:          e.UserID,
		ReviewerID:      e.ReviewerID,
		AmountCents:     e.AmountCents,
		Currency:        e.Currency,
		Description:     e.Description,
		Merchant:        e.Merchant,
		IncurredOn:      e.IncurredOn,
		Status:          e.Status,
		SubmittedAt:     e.SubmittedAt,
		ReviewedAt:      e.ReviewedAt,
		RejectionReason: e.RejectionReason,
		CategoryID:      e.CategoryID,
		LockVersion:     e.LockVersion,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
