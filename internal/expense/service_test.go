package expense_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/audit"
	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/expense"
)

func TestExpenseService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ExpenseService Suite")
}

type mockRepository struct {
	expenses  map[int64]*expense.Expense
	entries   []*audit.Entry
	nextID    int64
	createErr error
	getErr    error
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		expenses: make(map[int64]*expense.Expense),
		nextID:   1,
	}
}

func (m *mockRepository) Create(e *expense.Expense, entry *audit.Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	e.ID = m.nextID
	m.nextID++
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt

	stored := *e
	m.expenses[e.ID] = &stored

	entry.BindExpense(e.ID)
	m.appendEntry(entry)
	return nil
}

func (m *mockRepository) GetByID(id int64) (*expense.Expense, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	stored, ok := m.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	copied := *stored
	return &copied, nil
}

func (m *mockRepository) List(scope auth.ExpenseScope, status string, limit, offset int) ([]*expense.Expense, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*expense.Expense
	for _, e := range m.expenses {
		if !scope.Allows(e) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		copied := *e
		result = append(result, &copied)
	}
	return result, nil
}

func (m *mockRepository) Update(e *expense.Expense, expectedVersion int64, entry *audit.Entry) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.expenses[e.ID]
	if !ok {
		return internal.ErrExpenseNotFound
	}
	if stored.LockVersion != expectedVersion {
		return internal.ErrStaleWrite
	}
	e.LockVersion = expectedVersion + 1
	e.UpdatedAt = time.Now()

	copied := *e
	m.expenses[e.ID] = &copied

	m.appendEntry(entry)
	return nil
}

func (m *mockRepository) Delete(e *expense.Expense, expectedVersion int64, entry *audit.Entry) error {
	stored, ok := m.expenses[e.ID]
	if !ok {
		return internal.ErrExpenseNotFound
	}
	if stored.LockVersion != expectedVersion {
		return internal.ErrStaleWrite
	}
	delete(m.expenses, e.ID)

	for _, existing := range m.entries {
		if existing.ExpenseID != nil && *existing.ExpenseID == e.ID {
			existing.ExpenseID = nil
		}
	}
	entry.ExpenseID = nil
	m.appendEntry(entry)
	return nil
}

func (m *mockRepository) appendEntry(entry *audit.Entry) {
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
}

func (m *mockRepository) lastEntry() *audit.Entry {
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

type mockCategoryChecker struct {
	valid map[int64]bool
	err   error
}

func (m *mockCategoryChecker) IsValidCategory(id int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.valid[id], nil
}

type mockAuditReader struct {
	repo *mockRepository
}

func (m *mockAuditReader) HistoryForExpense(expenseID int64) ([]*audit.Entry, error) {
	var result []*audit.Entry
	for _, entry := range m.repo.entries {
		if entry.ExpenseID != nil && *entry.ExpenseID == expenseID {
			result = append(result, entry)
			continue
		}
		if raw, ok := entry.Metadata["expense_id"]; ok {
			if id, ok := raw.(int64); ok && id == expenseID {
				result = append(result, entry)
			}
		}
	}
	return result, nil
}

var _ = Describe("ExpenseService", func() {
	var (
		repo       *mockRepository
		categories *mockCategoryChecker
		service    *expense.Service

		employee      *auth.Actor
		otherEmployee *auth.Actor
		reviewer      *auth.Actor
	)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	createDraft := func(owner *auth.Actor) *expense.Expense {
		e, err := service.CreateExpense(owner, expense.CreateExpenseDTO{
			AmountCents: 4200,
			Currency:    "usd",
			Description: "client lunch",
			Merchant:    "Cafe Uno",
			IncurredOn:  "2026-08-20",
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	submitDraft := func(owner *auth.Actor, id int64) *expense.Expense {
		e, err := service.SubmitExpense(owner, id)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		repo = newMockRepository()
		categories = &mockCategoryChecker{valid: map[int64]bool{10: true}}
		service = expense.NewService(repo, categories, &mockAuditReader{repo: repo}, auth.NewPolicy(), discard)

		employee = &auth.Actor{ID: 1, Email: "employee@example.com", Role: auth.RoleEmployee}
		otherEmployee = &auth.Actor{ID: 2, Email: "other@example.com", Role: auth.RoleEmployee}
		reviewer = &auth.Actor{ID: 9, Email: "reviewer@example.com", Role: auth.RoleReviewer}
	})

	Describe("CreateExpense", func() {
		It("creates a drafted expense owned by the actor", func() {
			e := createDraft(employee)

			Expect(e.ID).To(BeNumerically(">", 0))
			Expect(e.UserID).To(Equal(employee.ID))
			Expect(e.Status).To(Equal(expense.StatusDrafted))
			Expect(e.Currency).To(Equal("USD"))
			Expect(e.LockVersion).To(BeZero())
		})

		It("records a creation audit entry", func() {
			e := createDraft(employee)

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionCreated))
			Expect(entry.ActorID).To(Equal(employee.ID))
			Expect(entry.FromStatus).To(BeNil())
			Expect(*entry.ToStatus).To(Equal(expense.StatusDrafted))
			Expect(*entry.ExpenseID).To(Equal(e.ID))
		})

		It("rejects a non-positive amount", func() {
			_, err := service.CreateExpense(employee, expense.CreateExpenseDTO{
				AmountCents: 0,
				IncurredOn:  "2026-08-20",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.entries).To(BeEmpty())
		})

		It("rejects a missing incurred_on", func() {
			_, err := service.CreateExpense(employee, expense.CreateExpenseDTO{
				AmountCents: 100,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects an unknown category", func() {
			missing := int64(999)
			_, err := service.CreateExpense(employee, expense.CreateExpenseDTO{
				AmountCents: 100,
				IncurredOn:  "2026-08-20",
				CategoryID:  &missing,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("forbids reviewers from creating expenses", func() {
			_, err := service.CreateExpense(reviewer, expense.CreateExpenseDTO{
				AmountCents: 100,
				IncurredOn:  "2026-08-20",
			})

			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("requires an authenticated actor", func() {
			_, err := service.CreateExpense(nil, expense.CreateExpenseDTO{
				AmountCents: 100,
				IncurredOn:  "2026-08-20",
			})

			Expect(err).To(Equal(internal.ErrUnauthenticated))
		})
	})

	Describe("GetExpense", func() {
		It("returns the owner's expense", func() {
			e := createDraft(employee)

			got, err := service.GetExpense(employee, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(e.ID))
		})

		It("lets reviewers see any expense", func() {
			e := createDraft(employee)

			_, err := service.GetExpense(reviewer, e.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("forbids other employees", func() {
			e := createDraft(employee)

			_, err := service.GetExpense(otherEmployee, e.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("returns not found for a missing id", func() {
			_, err := service.GetExpense(employee, 404)
			Expect(err).To(Equal(internal.ErrExpenseNotFound))
		})
	})

	Describe("ListExpenses", func() {
		BeforeEach(func() {
			createDraft(employee)
			createDraft(otherEmployee)
		})

		It("scopes employees to their own expenses", func() {
			expenses, err := service.ListExpenses(employee, "", 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(1))
			Expect(expenses[0].UserID).To(Equal(employee.ID))
		})

		It("lets reviewers see every expense", func() {
			expenses, err := service.ListExpenses(reviewer, "", 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))
		})

		It("filters by status", func() {
			expenses, err := service.ListExpenses(employee, expense.StatusSubmitted, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(BeEmpty())
		})

		It("ignores an unknown status filter", func() {
			expenses, err := service.ListExpenses(employee, "bogus", 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(1))
		})
	})

	Describe("UpdateExpense", func() {
		var draft *expense.Expense

		BeforeEach(func() {
			draft = createDraft(employee)
		})

		It("applies whitelisted fields and bumps the version", func() {
			amount := int64(9900)
			merchant := "Cafe Dos"
			updated, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
				Merchant:    &merchant,
				LockVersion: &draft.LockVersion,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.AmountCents).To(Equal(amount))
			Expect(updated.Merchant).To(Equal(merchant))
			Expect(updated.LockVersion).To(Equal(draft.LockVersion + 1))
		})

		It("records the field diff in the audit entry", func() {
			amount := int64(9900)
			_, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
				LockVersion: &draft.LockVersion,
			})
			Expect(err).NotTo(HaveOccurred())

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionUpdated))
			changes := entry.Metadata["previous_changes"].(map[string]any)
			Expect(changes).To(HaveKey("amount_cents"))
			Expect(changes["amount_cents"]).To(Equal([]any{int64(4200), int64(9900)}))
		})

		It("requires lock_version", func() {
			amount := int64(9900)
			_, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects a stale lock_version without changing the record", func() {
			stale := draft.LockVersion + 5
			amount := int64(9900)
			_, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
				LockVersion: &stale,
			})

			Expect(err).To(Equal(internal.ErrStaleWrite))

			current, getErr := service.GetExpense(employee, draft.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(current.AmountCents).To(Equal(int64(4200)))
		})

		It("refuses to edit a submitted expense", func() {
			submitted := submitDraft(employee, draft.ID)

			amount := int64(9900)
			_, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
				LockVersion: &submitted.LockVersion,
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Message).To(ContainSubstring("cannot modify"))
		})

		It("forbids editing another employee's expense", func() {
			amount := int64(9900)
			_, err := service.UpdateExpense(otherEmployee, draft.ID, expense.UpdateExpenseDTO{
				AmountCents: &amount,
				LockVersion: &draft.LockVersion,
			})

			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("still bumps the version when no field changes", func() {
			updated, err := service.UpdateExpense(employee, draft.ID, expense.UpdateExpenseDTO{
				LockVersion: &draft.LockVersion,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.LockVersion).To(Equal(draft.LockVersion + 1))

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionUpdated))
			Expect(entry.Metadata["previous_changes"]).To(BeEmpty())
		})
	})

	Describe("DeleteExpense", func() {
		var draft *expense.Expense

		BeforeEach(func() {
			draft = createDraft(employee)
		})

		It("deletes a drafted expense and records a snapshot", func() {
			err := service.DeleteExpense(employee, draft.ID)
			Expect(err).NotTo(HaveOccurred())

			_, getErr := service.GetExpense(employee, draft.ID)
			Expect(getErr).To(Equal(internal.ErrExpenseNotFound))

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionDeleted))
			Expect(entry.ExpenseID).To(BeNil())
			snapshot := entry.Metadata["snapshot"].(map[string]any)
			Expect(snapshot["amount_cents"]).To(Equal(int64(4200)))
			Expect(snapshot["status"]).To(Equal(expense.StatusDrafted))
		})

		It("refuses to delete a submitted expense", func() {
			submitDraft(employee, draft.ID)

			err := service.DeleteExpense(employee, draft.ID)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("forbids deleting another employee's expense", func() {
			err := service.DeleteExpense(otherEmployee, draft.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("SubmitExpense", func() {
		var draft *expense.Expense

		BeforeEach(func() {
			draft = createDraft(employee)
		})

		It("moves a drafted expense into review", func() {
			submitted := submitDraft(employee, draft.ID)

			Expect(submitted.Status).To(Equal(expense.StatusSubmitted))
			Expect(submitted.SubmittedAt).NotTo(BeNil())
			Expect(submitted.LockVersion).To(Equal(draft.LockVersion + 1))

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionSubmitted))
			Expect(*entry.FromStatus).To(Equal(expense.StatusDrafted))
			Expect(*entry.ToStatus).To(Equal(expense.StatusSubmitted))
		})

		It("refuses a second submit", func() {
			submitDraft(employee, draft.ID)

			_, err := service.SubmitExpense(employee, draft.ID)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("must be drafted to submit"))
		})

		It("forbids submitting someone else's expense", func() {
			_, err := service.SubmitExpense(reviewer, draft.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("ApproveExpense", func() {
		var submitted *expense.Expense

		BeforeEach(func() {
			draft := createDraft(employee)
			submitted = submitDraft(employee, draft.ID)
		})

		It("closes a submitted expense as approved", func() {
			approved, err := service.ApproveExpense(reviewer, submitted.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(expense.StatusApproved))
			Expect(approved.ReviewedAt).NotTo(BeNil())
			Expect(*approved.ReviewerID).To(Equal(reviewer.ID))

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionApproved))
			Expect(entry.ActorID).To(Equal(reviewer.ID))
		})

		It("forbids employees from approving", func() {
			_, err := service.ApproveExpense(employee, submitted.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("refuses a second approve and writes no entry", func() {
			_, err := service.ApproveExpense(reviewer, submitted.ID)
			Expect(err).NotTo(HaveOccurred())
			entryCount := len(repo.entries)

			_, err = service.ApproveExpense(reviewer, submitted.ID)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("must be submitted to approve"))
			Expect(repo.entries).To(HaveLen(entryCount))
		})

		It("refuses to approve a drafted expense", func() {
			draft := createDraft(employee)

			_, err := service.ApproveExpense(reviewer, draft.ID)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("must be submitted to approve"))
		})
	})

	Describe("RejectExpense", func() {
		var submitted *expense.Expense

		BeforeEach(func() {
			draft := createDraft(employee)
			submitted = submitDraft(employee, draft.ID)
		})

		It("closes a submitted expense as rejected with the reason", func() {
			rejected, err := service.RejectExpense(reviewer, submitted.ID, expense.RejectExpenseDTO{
				RejectionReason: "missing receipt",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(expense.StatusRejected))
			Expect(*rejected.RejectionReason).To(Equal("missing receipt"))

			entry := repo.lastEntry()
			Expect(entry.Action).To(Equal(audit.ActionRejected))
			Expect(entry.Metadata["rejection_reason"]).To(Equal("missing receipt"))
		})

		It("requires a non-blank reason", func() {
			_, err := service.RejectExpense(reviewer, submitted.ID, expense.RejectExpenseDTO{
				RejectionReason: "   ",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("forbids employees from rejecting", func() {
			_, err := service.RejectExpense(employee, submitted.ID, expense.RejectExpenseDTO{
				RejectionReason: "nope",
			})
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("refuses to reject an already rejected expense", func() {
			_, err := service.RejectExpense(reviewer, submitted.ID, expense.RejectExpenseDTO{
				RejectionReason: "missing receipt",
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RejectExpense(reviewer, submitted.ID, expense.RejectExpenseDTO{
				RejectionReason: "again",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("must be submitted to reject"))
		})
	})

	Describe("AuditHistory", func() {
		It("returns the trail in order for the owner", func() {
			draft := createDraft(employee)
			submitDraft(employee, draft.ID)

			entries, err := service.AuditHistory(employee, draft.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Action).To(Equal(audit.ActionCreated))
			Expect(entries[1].Action).To(Equal(audit.ActionSubmitted))
		})

		It("forbids other employees", func() {
			draft := createDraft(employee)

			_, err := service.AuditHistory(otherEmployee, draft.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("keeps a deleted expense's trail readable by reviewers", func() {
			draft := createDraft(employee)
			Expect(service.DeleteExpense(employee, draft.ID)).To(Succeed())

			entries, err := service.AuditHistory(reviewer, draft.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[1].Action).To(Equal(audit.ActionDeleted))
		})

		It("keeps a deleted expense's trail readable by its former owner", func() {
			draft := createDraft(employee)
			Expect(service.DeleteExpense(employee, draft.ID)).To(Succeed())

			entries, err := service.AuditHistory(employee, draft.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Action).To(Equal(audit.ActionCreated))
			Expect(entries[1].Action).To(Equal(audit.ActionDeleted))
		})

		It("hides a deleted expense's trail from other employees", func() {
			draft := createDraft(employee)
			Expect(service.DeleteExpense(employee, draft.ID)).To(Succeed())

			_, err := service.AuditHistory(otherEmployee, draft.ID)
			Expect(err).To(Equal(internal.ErrExpenseNotFound))
		})
	})
})
