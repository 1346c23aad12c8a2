// Package directory adapts the account collaborator's users table to the
// UserDirectory contract. The table is owned and migrated by the account
// service; this subsystem only ever reads the email column.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
)

const defaultTimeout = 3 * time.Second

type UserDirectory struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) Email(userID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var email string

	query := `SELECT email FROM users WHERE id=$1`

	err := d.db.GetContext(ctx, &email, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
		}
		return "", err
	}

	return email, nil
}
