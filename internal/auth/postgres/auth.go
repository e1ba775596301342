package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/expenseflow/expense-workflow/internal"
	"github.com/expenseflow/expense-workflow/internal/auth"

	"github.com/jmoiron/sqlx"
)

// AuthRepository reads credentials with sqlx; the hot auth path does not
// need the ORM.
type AuthRepository struct {
	db *sqlx.DB
}

func NewAuthRepository(db *sqlx.DB) auth.RepositoryAPI {
	return &AuthRepository{db: db}
}

type credentialsRow struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
}

func (r *AuthRepository) GetCredentials(email string) (string, *auth.Actor, error) {
	var row credentialsRow
	query := `SELECT id, email, password_hash, role FROM users WHERE lower(email) = lower($1)`
	if err := r.db.Get(&row, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, internal.ErrInvalidCredentials
		}
		return "", nil, err
	}

	actor := &auth.Actor{ID: row.ID, Email: row.Email, Role: row.Role}
	return row.PasswordHash, actor, nil
}

func (r *AuthRepository) GetActorByID(id int64) (*auth.Actor, error) {
	var row credentialsRow
	query := `SELECT id, email, password_hash, role FROM users WHERE id = $1`
	if err := r.db.Get(&row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &auth.Actor{ID: row.ID, Email: row.Email, Role: row.Role}, nil
}
