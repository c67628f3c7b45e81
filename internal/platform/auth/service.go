package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"inventory-backend/internal/platform/db"
)

const tokenTTL = 24 * time.Hour

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrReferenced         = errors.New("account is still referenced")
	ErrInvalidCredentials = errors.New("authentication failed")
	ErrInvalidInput       = errors.New("invalid input")
)

// Claims: sub にユーザー名、uid に users.user_id
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

type Service struct {
	store  *Store
	secret []byte
	now    func() time.Time
}

func NewService(conn *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(conn), secret: secret, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Secret() []byte {
	return s.secret
}

func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	acct, err := s.store.FindByLogin(ctx, login)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acct)
}

func (s *Service) issueToken(acct *Account) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: acct.UserID,
		Role:   acct.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleAdmin && role != RoleStaff && role != RoleUser {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Username:     username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		acct.Email = sql.NullString{String: e, Valid: true}
	}

	if err := s.store.Create(ctx, acct); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return acct, nil
}

func (s *Service) Delete(ctx context.Context, username string) error {
	n, err := s.store.Delete(ctx, username)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ParseToken は署名アルゴリズムを HS256 に固定して検証する
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.UserID == 0 {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
