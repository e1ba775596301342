package cmd

import (
	"fmt"
	"log"

	"github.com/expenseflow/expense-workflow/internal/auth"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users and categories for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"expense_audit_logs", "expenses", "categories", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)

		users := []struct {
			Email string
			Role  string
		}{
			{"employee@example.com", auth.RoleEmployee},
			{"employee2@example.com", auth.RoleEmployee},
			{"reviewer@example.com", auth.RoleReviewer},
		}

		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := db.Exec(
				"INSERT INTO users (email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
				u.Email, string(hash), u.Role,
			).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email, "role:", u.Role)
		}

		categories := []string{"Travel", "Meals", "Software", "Office Supplies"}
		for _, name := range categories {
			var exists int
			if err := db.Raw("SELECT 1 FROM categories WHERE lower(name) = lower(?)", name).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec(
				"INSERT INTO categories (name, created_at, updated_at) VALUES (?, now(), now())",
				name,
			).Error; err != nil {
				log.Fatalf("failed to insert category %s: %v", name, err)
			}
			fmt.Println("Seeded category:", name)
		}

		fmt.Println("Seeding complete")
	},
}
