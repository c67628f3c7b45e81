package lendees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
)

var errCorruptLendee = errors.New("lendee row does not match its kind")

type Store struct {
	db db.DBTX
	// SELECT の末尾に付けるロック句（MySQL の再読込時のみ）
	lockClause string
}

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

// lockingStore は重複キー後の再読込用。
// MySQL(REPEATABLE READ) は一度目の SELECT のスナップショットを読み続けるので、
// 共有ロック付きの読み取りで他トランザクションがコミットした行を見る。
// SQLite は書き込みが直列化されるのでそのまま。
func lockingStore(conn db.DBTX, driver string) *Store {
	s := NewStore(conn)
	if driver == db.DriverMySQL {
		s.lockClause = ` LOCK IN SHARE MODE`
	}
	return s
}

// ---- subjects ----

// 見つからない場合は (nil, nil)
func (s *Store) GetSubject(ctx context.Context, subjectID int64) (*Subject, error) {
	const q = `SELECT subject_pk, subject_id, created_at FROM subjects WHERE subject_id = ?`
	var m Subject
	err := s.db.QueryRowContext(ctx, q+s.lockClause, subjectID).Scan(&m.SubjectPK, &m.SubjectID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) InsertSubject(ctx context.Context, m *Subject) error {
	const q = `INSERT INTO subjects (subject_id, created_at) VALUES (?, ?)`
	res, err := s.db.ExecContext(ctx, q, m.SubjectID, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.SubjectPK = id
	return nil
}

// ---- lendees ----

const selectLendee = `
SELECT
  l.lendee_id, l.kind, l.created_at,
  s.subject_pk, s.subject_id, s.created_at,
  u.user_id, u.username, u.email, u.first_name, u.last_name, u.role, u.is_disabled, u.created_at
FROM lendees l
LEFT JOIN subjects s ON s.subject_pk = l.subject_pk
LEFT JOIN users u ON u.user_id = l.user_id
`

type lendeeRow struct {
	LendeeID  int64
	Kind      string
	CreatedAt time.Time

	SubjectPK        sql.NullInt64
	SubjectID        sql.NullInt64
	SubjectCreatedAt sql.NullTime

	UserID        sql.NullInt64
	Username      sql.NullString
	Email         sql.NullString
	FirstName     sql.NullString
	LastName      sql.NullString
	Role          sql.NullString
	IsDisabled    sql.NullBool
	UserCreatedAt sql.NullTime
}

func (r *lendeeRow) toModel() (*Lendee, error) {
	l := &Lendee{LendeeID: r.LendeeID, CreatedAt: r.CreatedAt}
	switch Kind(r.Kind) {
	case KindSubject:
		if !r.SubjectPK.Valid || r.UserID.Valid {
			return nil, fmt.Errorf("lendee %d: %w", r.LendeeID, errCorruptLendee)
		}
		l.Identity = SubjectIdentity{Subject: Subject{
			SubjectPK: r.SubjectPK.Int64,
			SubjectID: r.SubjectID.Int64,
			CreatedAt: r.SubjectCreatedAt.Time,
		}}
	case KindUser:
		if !r.UserID.Valid || r.SubjectPK.Valid {
			return nil, fmt.Errorf("lendee %d: %w", r.LendeeID, errCorruptLendee)
		}
		l.Identity = UserIdentity{User: auth.Account{
			UserID:     r.UserID.Int64,
			Username:   r.Username.String,
			Email:      r.Email,
			FirstName:  r.FirstName.String,
			LastName:   r.LastName.String,
			Role:       r.Role.String,
			IsDisabled: r.IsDisabled.Bool,
			CreatedAt:  r.UserCreatedAt.Time,
		}}
	default:
		return nil, fmt.Errorf("lendee %d: unknown kind %q: %w", r.LendeeID, r.Kind, errCorruptLendee)
	}
	return l, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*Lendee, error) {
	var r lendeeRow
	err := s.db.QueryRowContext(ctx, selectLendee+where+` LIMIT 1`+s.lockClause, arg).Scan(
		&r.LendeeID, &r.Kind, &r.CreatedAt,
		&r.SubjectPK, &r.SubjectID, &r.SubjectCreatedAt,
		&r.UserID, &r.Username, &r.Email, &r.FirstName, &r.LastName, &r.Role, &r.IsDisabled, &r.UserCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toModel()
}

func (s *Store) GetByID(ctx context.Context, lendeeID int64) (*Lendee, error) {
	return s.getOne(ctx, `WHERE l.lendee_id = ?`, lendeeID)
}

// GetBySubjectID: 外部の被験者ID（subjects.subject_id）で引く
func (s *Store) GetBySubjectID(ctx context.Context, subjectID int64) (*Lendee, error) {
	return s.getOne(ctx, `WHERE s.subject_id = ?`, subjectID)
}

func (s *Store) GetBySubjectPK(ctx context.Context, subjectPK int64) (*Lendee, error) {
	return s.getOne(ctx, `WHERE l.subject_pk = ?`, subjectPK)
}

func (s *Store) GetByUserID(ctx context.Context, userID int64) (*Lendee, error) {
	return s.getOne(ctx, `WHERE l.user_id = ?`, userID)
}

func (s *Store) insertLendee(ctx context.Context, kind Kind, subjectPK, userID sql.NullInt64, now time.Time) (int64, error) {
	const q = `INSERT INTO lendees (kind, subject_pk, user_id, created_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, string(kind), subjectPK, userID, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) InsertSubjectLendee(ctx context.Context, subjectPK int64, now time.Time) (int64, error) {
	return s.insertLendee(ctx, KindSubject, sql.NullInt64{Int64: subjectPK, Valid: true}, sql.NullInt64{}, now)
}

func (s *Store) InsertUserLendee(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return s.insertLendee(ctx, KindUser, sql.NullInt64{}, sql.NullInt64{Int64: userID, Valid: true}, now)
}
