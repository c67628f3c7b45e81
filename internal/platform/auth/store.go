package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"inventory-backend/internal/platform/db"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// Account は users テーブルの1行。貸出先（Lendee）の User 側の実体でもある。
type Account struct {
	UserID       int64
	Username     string
	Email        sql.NullString
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    time.Time
}

// FullName は "first last"。両方空ならユーザー名を返す。
func (a *Account) FullName() string {
	n := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if n == "" {
		return a.Username
	}
	return n
}

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const selectAccount = `
SELECT user_id, username, email, first_name, last_name, password_hash, role, is_disabled, created_at
FROM users
`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.UserID,
		&a.Username,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.PasswordHash,
		&a.Role,
		&a.IsDisabled,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// 見つからない場合は (nil, nil)
func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccount+`WHERE username = ? LIMIT 1`, username))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccount+`WHERE email = ? LIMIT 1`, email))
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccount+`WHERE user_id = ? LIMIT 1`, id))
}

// FindByLogin: ユーザー名 → メールアドレスの順で引く
func (s *Store) FindByLogin(ctx context.Context, login string) (*Account, error) {
	a, err := s.GetByUsername(ctx, login)
	if err != nil || a != nil {
		return a, err
	}
	if !strings.Contains(login, "@") {
		return nil, nil
	}
	return s.GetByEmail(ctx, login)
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO users (username, email, first_name, last_name, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`
	res, err := s.db.ExecContext(ctx, q,
		a.Username, a.Email, a.FirstName, a.LastName, a.PasswordHash, a.Role, a.IsDisabled, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.UserID = id
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) (int64, error) {
	const q = `DELETE FROM users WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q, username)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
