package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
)

type record struct {
	ownerID int64
}

func (r record) OwnerID() int64 { return r.ownerID }

var _ = Describe("Policy", func() {
	var (
		policy   *auth.Policy
		employee *auth.Actor
		reviewer *auth.Actor
	)

	BeforeEach(func() {
		policy = auth.NewPolicy()
		employee = &auth.Actor{ID: 1, Email: "employee@example.com", Role: auth.RoleEmployee}
		reviewer = &auth.Actor{ID: 9, Email: "reviewer@example.com", Role: auth.RoleReviewer}
	})

	Describe("ScopeExpenses", func() {
		It("scopes employees to their own records", func() {
			scope, err := policy.ScopeExpenses(employee)
			Expect(err).To(BeNil())
			Expect(scope.All).To(BeFalse())
			Expect(scope.Allows(record{ownerID: 1})).To(BeTrue())
			Expect(scope.Allows(record{ownerID: 2})).To(BeFalse())
		})

		It("gives reviewers the unrestricted scope", func() {
			scope, err := policy.ScopeExpenses(reviewer)
			Expect(err).To(BeNil())
			Expect(scope.All).To(BeTrue())
			Expect(scope.Allows(record{ownerID: 2})).To(BeTrue())
		})

		It("rejects a missing actor", func() {
			_, err := policy.ScopeExpenses(nil)
			Expect(err).To(Equal(internal.ErrUnauthenticated))
		})
	})

	Describe("CanPerform", func() {
		It("lets owners manage their drafts but not review them", func() {
			own := record{ownerID: employee.ID}

			Expect(policy.CanPerform(employee, auth.ActionShow, own)).To(BeTrue())
			Expect(policy.CanPerform(employee, auth.ActionUpdate, own)).To(BeTrue())
			Expect(policy.CanPerform(employee, auth.ActionDelete, own)).To(BeTrue())
			Expect(policy.CanPerform(employee, auth.ActionSubmit, own)).To(BeTrue())
			Expect(policy.CanPerform(employee, auth.ActionApprove, own)).To(BeFalse())
			Expect(policy.CanPerform(employee, auth.ActionReject, own)).To(BeFalse())
		})

		It("keeps employees out of each other's records", func() {
			foreign := record{ownerID: 2}

			Expect(policy.CanPerform(employee, auth.ActionShow, foreign)).To(BeFalse())
			Expect(policy.CanPerform(employee, auth.ActionUpdate, foreign)).To(BeFalse())
			Expect(policy.CanPerform(employee, auth.ActionSubmit, foreign)).To(BeFalse())
		})

		It("lets reviewers see and review but not submit for others", func() {
			foreign := record{ownerID: 1}

			Expect(policy.CanPerform(reviewer, auth.ActionShow, foreign)).To(BeTrue())
			Expect(policy.CanPerform(reviewer, auth.ActionApprove, foreign)).To(BeTrue())
			Expect(policy.CanPerform(reviewer, auth.ActionReject, foreign)).To(BeTrue())
			Expect(policy.CanPerform(reviewer, auth.ActionSubmit, foreign)).To(BeFalse())
			Expect(policy.CanPerform(reviewer, auth.ActionCreate, nil)).To(BeFalse())
		})

		It("grants create to employees only", func() {
			Expect(policy.CanPerform(employee, auth.ActionCreate, nil)).To(BeTrue())
		})
	})

	Describe("AuthorizeRoleChange", func() {
		It("allows reviewers to change another user's role", func() {
			Expect(policy.AuthorizeRoleChange(reviewer, employee.ID)).To(BeNil())
		})

		It("forbids employees", func() {
			err := policy.AuthorizeRoleChange(employee, reviewer.ID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("refuses a reviewer changing their own role", func() {
			err := policy.AuthorizeRoleChange(reviewer, reviewer.ID)
			Expect(err).To(Equal(internal.ErrCannotChangeOwnRole))
		})
	})

	Describe("category rules", func() {
		It("lets any authenticated actor list", func() {
			Expect(policy.AuthorizeListCategories(employee)).To(BeNil())
			Expect(policy.AuthorizeListCategories(reviewer)).To(BeNil())
		})

		It("restricts creation to reviewers", func() {
			Expect(policy.AuthorizeCreateCategory(reviewer)).To(BeNil())
			Expect(policy.AuthorizeCreateCategory(employee)).To(Equal(internal.ErrForbidden))
		})
	})
})
