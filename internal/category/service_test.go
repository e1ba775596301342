package category_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"
	"github.com/expenseflow/expense-workflow/internal/category"
)

func TestCategoryService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CategoryService Suite")
}

type mockCategoryRepository struct {
	categories map[int64]*category.Category
	nextID     int64
	deleted    []int64
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[int64]*category.Category),
		nextID:     1,
	}
}

func (m *mockCategoryRepository) GetAll() ([]*category.Category, error) {
	var result []*category.Category
	for _, c := range m.categories {
		result = append(result, c)
	}
	return result, nil
}

func (m *mockCategoryRepository) GetByID(id int64) (*category.Category, error) {
	return m.categories[id], nil
}

func (m *mockCategoryRepository) GetByNameInsensitive(name string) (*category.Category, error) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepository) Create(c *category.Category) error {
	c.ID = m.nextID
	m.nextID++
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepository) Delete(id int64) error {
	delete(m.categories, id)
	m.deleted = append(m.deleted, id)
	return nil
}

var _ = Describe("CategoryService", func() {
	var (
		repo    *mockCategoryRepository
		service *category.Service

		employee *auth.Actor
		reviewer *auth.Actor
	)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		repo = newMockCategoryRepository()
		service = category.NewService(repo, auth.NewPolicy(), discard)

		employee = &auth.Actor{ID: 1, Email: "employee@example.com", Role: auth.RoleEmployee}
		reviewer = &auth.Actor{ID: 9, Email: "reviewer@example.com", Role: auth.RoleReviewer}
	})

	Describe("CreateCategory", func() {
		It("stores a trimmed category", func() {
			cat, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "  Travel  "})

			Expect(err).NotTo(HaveOccurred())
			Expect(cat.ID).To(BeNumerically(">", 0))
			Expect(cat.Name).To(Equal("Travel"))
		})

		It("rejects a blank name", func() {
			_, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "   "})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects a duplicate name regardless of case", func() {
			_, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "Travel"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "travel"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("already been taken"))
		})

		It("forbids employees", func() {
			_, err := service.CreateCategory(employee, category.CreateCategoryDTO{Name: "Travel"})
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("ListCategories", func() {
		It("lets any authenticated actor list", func() {
			_, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "Meals"})
			Expect(err).NotTo(HaveOccurred())

			categories, err := service.ListCategories(employee)
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(1))
			Expect(categories[0].Name).To(Equal("Meals"))
		})

		It("rejects a missing actor", func() {
			_, err := service.ListCategories(nil)
			Expect(err).To(Equal(internal.ErrUnauthenticated))
		})
	})

	Describe("DeleteCategory", func() {
		It("removes an existing category", func() {
			cat, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "Travel"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteCategory(reviewer, cat.ID)).To(Succeed())
			Expect(repo.deleted).To(ContainElement(cat.ID))
		})

		It("returns not found for a missing id", func() {
			err := service.DeleteCategory(reviewer, 404)
			Expect(err).To(Equal(internal.ErrCategoryNotFound))
		})

		It("forbids employees", func() {
			err := service.DeleteCategory(employee, 1)
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("IsValidCategory", func() {
		It("reports existing and missing ids", func() {
			cat, err := service.CreateCategory(reviewer, category.CreateCategoryDTO{Name: "Travel"})
			Expect(err).NotTo(HaveOccurred())

			ok, err := service.IsValidCategory(cat.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.IsValidCategory(404)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
