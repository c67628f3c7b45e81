package lendees

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"inventory-backend/internal/inventory/verhoeff"
	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
)

var (
	ErrInvalidSubjectID = errors.New("invalid subject id")
	ErrUnknownUser      = errors.New("unknown user")
	ErrLendeeNotFound   = errors.New("lendee not found")
	ErrEmptyInput       = errors.New("lendee is required")

	errVanished = errors.New("row vanished between insert and select")
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Resolver は貸出先の文字列（被験者ID or ユーザー名/メール）を Lendee に解決する。
// トランザクションは呼び出し側が持つので、各メソッドは db.DBTX を受け取る。
type Resolver struct {
	driver string
	clock  Clock
}

func NewResolver(driver string) *Resolver { return &Resolver{driver: driver, clock: realClock{}} }

// NewResolverWithClock はテスト用
func NewResolverWithClock(driver string, c Clock) *Resolver {
	return &Resolver{driver: driver, clock: c}
}

// store: locking=true は getOrCreate の再読込
func (r *Resolver) store(q db.DBTX, locking bool) *Store {
	if locking {
		return lockingStore(q, r.driver)
	}
	return NewStore(q)
}

type parsedInput struct {
	text      string
	subjectID int64
	numeric   bool
	// 数字だけど int64 に収まらない／負数
	badNumber bool
}

// 全角数字・全角英字は半角に寄せる（IME 入力対策）
func parseInput(raw string) (parsedInput, error) {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" {
		return parsedInput{}, ErrEmptyInput
	}
	in := parsedInput{text: s}
	n, err := strconv.ParseInt(s, 10, 64)
	switch {
	case err == nil:
		in.numeric = true
		in.subjectID = n
		in.badNumber = n < 0
	case errors.Is(err, strconv.ErrRange):
		in.numeric = true
		in.badNumber = true
	}
	return in, nil
}

// Resolve: 数値なら Verhoeff を検証して Subject と Lendee を get-or-create、
// それ以外はユーザーを引いて Lendee を get-or-create する。
// 不正な被験者IDや存在しないユーザーの場合は何も作らない。
func (r *Resolver) Resolve(ctx context.Context, q db.DBTX, raw string) (*Resolution, error) {
	in, err := parseInput(raw)
	if err != nil {
		return nil, err
	}
	if in.numeric {
		if in.badNumber || !verhoeff.Validate(in.subjectID) {
			return nil, ErrInvalidSubjectID
		}
		return r.resolveSubject(ctx, q, in.subjectID)
	}
	return r.resolveUser(ctx, q, in.text)
}

func (r *Resolver) resolveSubject(ctx context.Context, q db.DBTX, subjectID int64) (*Resolution, error) {
	subject, createdSubject, err := r.getOrCreateSubject(ctx, q, subjectID)
	if err != nil {
		return nil, err
	}

	l, createdLendee, err := getOrCreate(ctx,
		func(locking bool) (*Lendee, error) {
			return r.store(q, locking).GetBySubjectPK(ctx, subject.SubjectPK)
		},
		func() error {
			_, err := NewStore(q).InsertSubjectLendee(ctx, subject.SubjectPK, r.clock.Now())
			return err
		})
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Lendee:         l,
		Name:           l.Name(),
		CreatedSubject: createdSubject,
		CreatedLendee:  createdLendee,
	}, nil
}

func (r *Resolver) getOrCreateSubject(ctx context.Context, q db.DBTX, subjectID int64) (*Subject, bool, error) {
	return getOrCreate(ctx,
		func(locking bool) (*Subject, error) { return r.store(q, locking).GetSubject(ctx, subjectID) },
		func() error {
			return NewStore(q).InsertSubject(ctx, &Subject{SubjectID: subjectID, CreatedAt: r.clock.Now()})
		})
}

func (r *Resolver) resolveUser(ctx context.Context, q db.DBTX, login string) (*Resolution, error) {
	acct, err := auth.NewStore(q).FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.IsDisabled {
		return nil, ErrUnknownUser
	}

	l, createdLendee, err := getOrCreate(ctx,
		func(locking bool) (*Lendee, error) { return r.store(q, locking).GetByUserID(ctx, acct.UserID) },
		func() error {
			_, err := NewStore(q).InsertUserLendee(ctx, acct.UserID, r.clock.Now())
			return err
		})
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Lendee:        l,
		Name:          acct.FullName(),
		CreatedLendee: createdLendee,
	}, nil
}

// getOrCreate: get → 無ければ create → ロック付きでもう一度 get。
// 同時に作られて UNIQUE 違反になった場合も再取得で吸収する。
func getOrCreate[T any](ctx context.Context, get func(locking bool) (*T, error), create func() error) (*T, bool, error) {
	v, err := get(false)
	if err != nil {
		return nil, false, err
	}
	if v != nil {
		return v, false, nil
	}

	created := true
	if err := create(); err != nil {
		if !db.IsDuplicateKey(err) {
			return nil, false, err
		}
		created = false
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	v, err = get(true)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, errVanished
	}
	return v, created, nil
}

// Find は確認ステップ用。既存の Lendee を引くだけで、作成もチェックディジット検証もしない。
func (r *Resolver) Find(ctx context.Context, q db.DBTX, raw string) (*Lendee, error) {
	in, err := parseInput(raw)
	if err != nil {
		return nil, err
	}
	store := NewStore(q)

	var l *Lendee
	if in.numeric {
		if in.badNumber {
			return nil, ErrLendeeNotFound
		}
		l, err = store.GetBySubjectID(ctx, in.subjectID)
	} else {
		acct, aerr := auth.NewStore(q).FindByLogin(ctx, in.text)
		if aerr != nil {
			return nil, aerr
		}
		if acct == nil || acct.IsDisabled {
			return nil, ErrLendeeNotFound
		}
		l, err = store.GetByUserID(ctx, acct.UserID)
	}
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLendeeNotFound
	}
	return l, nil
}

// Get は lendee_id で引く
func (r *Resolver) Get(ctx context.Context, q db.DBTX, lendeeID int64) (*Lendee, error) {
	l, err := NewStore(q).GetByID(ctx, lendeeID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLendeeNotFound
	}
	return l, nil
}
