package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Account struct {
	UserID       int64
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

type AccountStore interface {
	GetByUserID(ctx context.Context, userID int64) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, userID int64) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

func (s *Store) GetByUserID(ctx context.Context, userID int64) (*Account, error) {
	const q = `
SELECT user_id, password_hash, role, is_disabled, created_at
FROM auth_accounts
WHERE user_id = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&a.UserID,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		a.IsDisabled = true
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (user_id, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, a.UserID, a.PasswordHash, a.Role)
	return err
}

func (s *Store) Delete(ctx context.Context, userID int64) (int64, error) {
	const q = `DELETE FROM auth_accounts WHERE user_id = ?`
	res, err := s.db.ExecContext(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
