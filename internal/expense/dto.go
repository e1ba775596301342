package expense

import (
	"strings"
	"time"

	"github.com/expenseflow/expense-workflow/internal"
)

// CreateExpenseDTO is the field whitelist for create. Workflow fields
// (status, reviewer, timestamps, rejection reason) are not part of the
// struct, so injected values are dropped during decoding and can never
// reach the engine.
type CreateExpenseDTO struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	IncurredOn  string `json:"incurred_on"`
	CategoryID  *int64 `json:"category_id"`

	incurredOn time.Time
}

// Normalize uppercases the currency tag; it is otherwise opaque.
func (dto *CreateExpenseDTO) Normalize() {
	dto.Currency = strings.ToUpper(strings.TrimSpace(dto.Currency))
	if dto.Currency == "" {
		dto.Currency = "USD"
	}
}

func (dto *CreateExpenseDTO) Validate() *internal.AppError {
	var errs []internal.ValidationError

	if dto.AmountCents <= 0 {
		errs = append(errs, internal.ValidationError{
			Field:   "amount_cents",
			Message: "amount_cents must be greater than 0",
			Code:    string(internal.ErrCodeInvalidAmount),
		})
	}

	if dto.IncurredOn == "" {
		errs = append(errs, internal.ValidationError{
			Field:   "incurred_on",
			Message: "incurred_on can't be blank",
			Code:    string(internal.ErrCodeInvalidDate),
		})
	} else {
		parsed, err := time.Parse(time.DateOnly, dto.IncurredOn)
		if err != nil {
			errs = append(errs, internal.ValidationError{
				Field:   "incurred_on",
				Message: "incurred_on must be a valid date (YYYY-MM-DD)",
				Code:    string(internal.ErrCodeInvalidDate),
			})
		} else {
			dto.incurredOn = parsed
		}
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

// IncurredOnDate returns the parsed date; valid only after Validate.
func (dto *CreateExpenseDTO) IncurredOnDate() time.Time {
	return dto.incurredOn
}

// UpdateExpenseDTO is the partial-update whitelist. LockVersion carries
// the version the caller read, not a target value.
type UpdateExpenseDTO struct {
	AmountCents *int64  `json:"amount_cents"`
	Currency    *string `json:"currency"`
	Description *string `json:"description"`
	Merchant    *string `json:"merchant"`
	IncurredOn  *string `json:"incurred_on"`
	CategoryID  *int64  `json:"category_id"`
	LockVersion *int64  `json:"lock_version"`

	incurredOn time.Time
}

func (dto *UpdateExpenseDTO) Validate() *internal.AppError {
	var errs []internal.ValidationError

	if dto.LockVersion == nil {
		errs = append(errs, internal.ValidationError{
			Field:   "lock_version",
			Message: "lock_version is required",
			Code:    string(internal.ErrCodeValidationFailed),
		})
	}

	if dto.AmountCents != nil && *dto.AmountCents <= 0 {
		errs = append(errs, internal.ValidationError{
			Field:   "amount_cents",
			Message: "amount_cents must be greater than 0",
			Code:    string(internal.ErrCodeInvalidAmount),
		})
	}

	if dto.IncurredOn != nil {
		parsed, err := time.Parse(time.DateOnly, *dto.IncurredOn)
		if err != nil {
			errs = append(errs, internal.ValidationError{
				Field:   "incurred_on",
				Message: "incurred_on must be a valid date (YYYY-MM-DD)",
				Code:    string(internal.ErrCodeInvalidDate),
			})
		} else {
			dto.incurredOn = parsed
		}
	}

	if len(errs) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: errs})
	}
	return nil
}

// Apply mutates the whitelisted fields on e and returns the change set in
// {field: [old, new]} form for the audit entry.
func (dto *UpdateExpenseDTO) Apply(e *Expense) map[string]any {
	changes := map[string]any{}

	if dto.AmountCents != nil && *dto.AmountCents != e.AmountCents {
		changes["amount_cents"] = []any{e.AmountCents, *dto.AmountCents}
		e.AmountCents = *dto.AmountCents
	}
	if dto.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*dto.Currency))
		if currency != "" && currency != e.Currency {
			changes["currency"] = []any{e.Currency, currency}
			e.Currency = currency
		}
	}
	if dto.Description != nil && *dto.Description != e.Description {
		changes["description"] = []any{e.Description, *dto.Description}
		e.Description = *dto.Description
	}
	if dto.Merchant != nil && *dto.Merchant != e.Merchant {
		changes["merchant"] = []any{e.Merchant, *dto.Merchant}
		e.Merchant = *dto.Merchant
	}
	if dto.IncurredOn != nil && !dto.incurredOn.Equal(e.IncurredOn) {
		changes["incurred_on"] = []any{
			e.IncurredOn.Format(time.DateOnly),
			dto.incurredOn.Format(time.DateOnly),
		}
		e.IncurredOn = dto.incurredOn
	}
	if dto.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *dto.CategoryID) {
		var old any
		if e.CategoryID != nil {
			old = *e.CategoryID
		}
		changes["category_id"] = []any{old, *dto.CategoryID}
		e.CategoryID = dto.CategoryID
	}

	return changes
}

type RejectExpenseDTO struct {
	RejectionReason string `json:"rejection_reason"`
}

func (dto RejectExpenseDTO) Validate() *internal.AppError {
	if strings.TrimSpace(dto.RejectionReason) == "" {
		return internal.NewValidationFieldError("rejection_reason", "rejection_reason can't be blank", internal.ErrCodeMissingReason)
	}
	return nil
}
