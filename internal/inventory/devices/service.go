package devices

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"

	"inventory-backend/internal/inventory/lendees"
	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	db       *sql.DB
	dialect  string
	resolver *lendees.Resolver
	clock    Clock
	id       IDGen
}

func NewService(conn *sql.DB, dialect string) *Service {
	return &Service{
		db:       conn,
		dialect:  dialect,
		resolver: lendees.NewResolver(dialect),
		clock:    realClock{},
		id:       ulidGen{},
	}
}

func (s *Service) store(q db.DBTX) *Store { return NewStore(q, s.dialect) }

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, st *Store, tx db.DBTX) error) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, s.store(tx), tx)
	})
}

// ===== 一覧・詳細 =====

func (s *Service) ListDevices(ctx context.Context, f DeviceFilter, p Page) (*DeviceListResponse, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	st := s.store(s.db)

	items, err := st.ListDevices(ctx, f, p)
	if err != nil {
		return nil, err
	}
	total, err := st.CountDevices(ctx, f)
	if err != nil {
		return nil, err
	}

	res := &DeviceListResponse{Items: make([]DeviceResponse, 0, len(items)), Total: total}
	rl := newRelations(s.db, s.resolver)
	for i := range items {
		dr, err := rl.build(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, dr)
	}
	if next := p.Offset + len(items); int64(next) < total {
		res.NextOffset = &next
	}
	return res, nil
}

func (s *Service) GetDevice(ctx context.Context, deviceID int64) (*DeviceResponse, error) {
	d, err := s.store(s.db).GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	dr, err := newRelations(s.db, s.resolver).build(ctx, d)
	if err != nil {
		return nil, err
	}
	return &dr, nil
}

// ===== 登録・編集・削除 =====

func (s *Service) CreateDevice(ctx context.Context, actorID int64, req CreateDeviceRequest) (*DeviceResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalid("name is required")
	}
	status := StatusCheckedIn
	if req.Status != "" {
		status = Status(req.Status)
	}
	if !status.Valid() {
		return nil, ErrInvalid("invalid status")
	}
	if status == StatusCheckedOut {
		return nil, ErrInvalid("a new device cannot be checked out; use checkout instead")
	}
	cond := ConditionExcellent
	if req.Condition != "" {
		cond = Condition(req.Condition)
	}
	if !cond.Valid() {
		return nil, ErrInvalid("invalid condition")
	}

	now := s.clock.Now()
	d := &Device{
		Name:         name,
		SerialNumber: optionalString(req.SerialNumber),
		Description:  optionalString(req.Description),
		Status:       status,
		Condition:    cond,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.inTx(ctx, func(ctx context.Context, st *Store, _ db.DBTX) error {
		if err := st.InsertDevice(ctx, d); err != nil {
			return err
		}
		return s.recordRevision(ctx, st, d, ActionCreated, actorID)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] device created: id=%d name=%q", d.DeviceID, d.Name)
	return s.GetDevice(ctx, d.DeviceID)
}

// UpdateDevice: 部分更新。checked_out にはできない（貸出は checkout 経由）。
// checked_out から他の状態へ移すときは貸出先・貸出者を外す。
// BROKEN / MISSING からの復帰もここで行う。
func (s *Service) UpdateDevice(ctx context.Context, actorID, deviceID int64, req UpdateDeviceRequest) (*DeviceResponse, error) {
	err := s.inTx(ctx, func(ctx context.Context, st *Store, _ db.DBTX) error {
		d, err := st.GetDevice(ctx, deviceID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return ErrInvalid("name must not be empty")
			}
			d.Name = name
		}
		if req.SerialNumber != nil {
			d.SerialNumber = optionalString(req.SerialNumber)
		}
		if req.Description != nil {
			d.Description = optionalString(req.Description)
		}
		if req.Condition != nil {
			c := Condition(*req.Condition)
			if !c.Valid() {
				return ErrInvalid("invalid condition")
			}
			d.Condition = c
		}
		if req.Status != nil {
			next := Status(*req.Status)
			if !next.Valid() {
				return ErrInvalid("invalid status")
			}
			if next == StatusCheckedOut && d.Status != StatusCheckedOut {
				return ErrInvalid("status cannot be set to checked_out directly; use checkout instead")
			}
			if next != StatusCheckedOut {
				d.clearLoan()
			}
			d.Status = next
		}

		d.UpdatedAt = s.clock.Now()
		if err := st.UpdateDevice(ctx, d); err != nil {
			return err
		}
		return s.recordRevision(ctx, st, d, ActionUpdated, actorID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDevice(ctx, deviceID)
}

// DeleteDevice は冪等。存在しなければ何もしない。
func (s *Service) DeleteDevice(ctx context.Context, actorID, deviceID int64) error {
	return s.inTx(ctx, func(ctx context.Context, st *Store, _ db.DBTX) error {
		d, err := st.GetDevice(ctx, deviceID)
		if err != nil {
			var api *APIError
			if errors.As(err, &api) && api.Code == CodeNotFound {
				return nil
			}
			return err
		}
		n, err := st.DeleteDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		log.Printf("[INFO] device deleted: id=%d name=%q", d.DeviceID, d.Name)
		return s.recordRevision(ctx, st, d, ActionDeleted, actorID)
	})
}

// ===== 貸出 =====

// Checkout: 貸出先の文字列を解決する（確認ステップの前段）。
// 被験者IDが正しければ Subject / Lendee を作成するが、デバイスはまだ貸し出さない。
func (s *Service) Checkout(ctx context.Context, deviceID int64, raw string) (*CheckoutResponse, error) {
	var res *lendees.Resolution
	err := s.inTx(ctx, func(ctx context.Context, st *Store, tx db.DBTX) error {
		if _, err := st.GetDevice(ctx, deviceID); err != nil {
			return err
		}
		r, err := s.resolver.Resolve(ctx, tx, raw)
		if err != nil {
			return resolveError(err, raw)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &CheckoutResponse{Success: true, Name: res.Name}
	if res.Lendee.Kind() == lendees.KindSubject {
		created := res.CreatedSubject
		out.CreatedSubject = &created
	}
	if res.CreatedLendee {
		log.Printf("[INFO] lendee created: id=%d kind=%s", res.Lendee.LendeeID, res.Lendee.Kind())
	}
	return out, nil
}

// ConfirmCheckout: 解決済みの貸出先でデバイスを貸し出す。貸出者はログインユーザー。
// ここでは貸出先を新規作成しないし、チェックディジットも再検証しない。
func (s *Service) ConfirmCheckout(ctx context.Context, actorID, deviceID int64, raw string) error {
	if actorID <= 0 {
		return ErrUnauthorized("login required")
	}
	return s.inTx(ctx, func(ctx context.Context, st *Store, tx db.DBTX) error {
		l, err := s.resolver.Find(ctx, tx, raw)
		if err != nil {
			return resolveError(err, raw)
		}
		d, err := st.GetDevice(ctx, deviceID)
		if err != nil {
			return err
		}

		d.markCheckedOut(l.LendeeID, actorID, s.clock.Now())
		if err := st.UpdateDevice(ctx, d); err != nil {
			return err
		}
		log.Printf("[INFO] device checked out: id=%d lendee=%d lender=%d", d.DeviceID, l.LendeeID, actorID)
		return s.recordRevision(ctx, st, d, ActionCheckedOut, actorID)
	})
}

// Checkin: 返却。申告された状態で status / condition を決め、貸出情報を外す。
func (s *Service) Checkin(ctx context.Context, actorID, deviceID int64, req CheckinRequest) (*DeviceResponse, error) {
	if !Condition(req.Condition).Valid() {
		return nil, ErrInvalid("condition must be one of excellent, scratched, broken, missing")
	}
	status, cond := CheckinOutcome(req.Condition)

	err := s.inTx(ctx, func(ctx context.Context, st *Store, _ db.DBTX) error {
		d, err := st.GetDevice(ctx, deviceID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		d.Status = status
		d.Condition = cond
		d.clearLoan()
		d.UpdatedAt = now
		if err := st.UpdateDevice(ctx, d); err != nil {
			return err
		}

		if text := strings.TrimSpace(req.Comment); text != "" {
			cid, err := s.id.New()
			if err != nil {
				return err
			}
			if err := st.InsertComment(ctx, &Comment{
				CommentULID: cid,
				DeviceID:    d.DeviceID,
				Text:        text,
				AuthorID:    nullID(actorID),
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		log.Printf("[INFO] device checked in: id=%d status=%s condition=%s", d.DeviceID, d.Status, d.Condition)
		return s.recordRevision(ctx, st, d, ActionCheckedIn, actorID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDevice(ctx, deviceID)
}

// ===== コメント・履歴 =====

func (s *Service) ListComments(ctx context.Context, deviceID int64) ([]CommentResponse, error) {
	st := s.store(s.db)
	if _, err := st.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	comments, err := st.ListComments(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]CommentResponse, 0, len(comments))
	for _, m := range comments {
		out = append(out, CommentResponse{
			CommentULID: m.CommentULID,
			Text:        m.Text,
			AuthorID:    int64Ptr(m.AuthorID),
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}

// ListRevisions は削除済みデバイスの履歴も返す
func (s *Service) ListRevisions(ctx context.Context, deviceID int64) ([]RevisionResponse, error) {
	revs, err := s.store(s.db).ListRevisions(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]RevisionResponse, 0, len(revs))
	for _, m := range revs {
		var snap DeviceSnapshot
		if err := json.UnmarshalFromString(m.Snapshot, &snap); err != nil {
			return nil, err
		}
		out = append(out, RevisionResponse{
			RevisionULID: m.RevisionULID,
			Action:       m.Action,
			Snapshot:     snap,
			ActorID:      int64Ptr(m.ActorID),
			CreatedAt:    m.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) recordRevision(ctx context.Context, st *Store, d *Device, action Action, actorID int64) error {
	rid, err := s.id.New()
	if err != nil {
		return err
	}
	snap, err := json.MarshalToString(snapshotOf(d))
	if err != nil {
		return err
	}
	return st.InsertRevision(ctx, &Revision{
		RevisionULID: rid,
		DeviceID:     d.DeviceID,
		Action:       action,
		Snapshot:     snap,
		ActorID:      nullID(actorID),
		CreatedAt:    s.clock.Now(),
	})
}

// ===== ヘルパー関数 =====

// resolveError: Resolver のエラーを画面に出すメッセージに変換
func resolveError(err error, raw string) error {
	switch {
	case errors.Is(err, lendees.ErrInvalidSubjectID):
		return ErrInvalid("Invalid subject ID. Please try again.")
	case errors.Is(err, lendees.ErrUnknownUser):
		return ErrNotFound("No user found with e-mail address " + strings.TrimSpace(raw))
	case errors.Is(err, lendees.ErrLendeeNotFound):
		return ErrNotFound("Lendee not found. Please try again.")
	case errors.Is(err, lendees.ErrEmptyInput):
		return ErrInvalid("Please enter a subject ID or e-mail address.")
	default:
		return err
	}
}

// relations は一覧表示中の lendee / lender を使い回すためのキャッシュ
type relations struct {
	q        db.DBTX
	resolver *lendees.Resolver
	lendees  map[int64]*LendeeResponse
	lenders  map[int64]*LenderResponse
}

func newRelations(q db.DBTX, r *lendees.Resolver) *relations {
	return &relations{
		q:        q,
		resolver: r,
		lendees:  map[int64]*LendeeResponse{},
		lenders:  map[int64]*LenderResponse{},
	}
}

func (rl *relations) build(ctx context.Context, d *Device) (DeviceResponse, error) {
	resp := DeviceResponse{
		DeviceID:       d.DeviceID,
		Name:           d.Name,
		SerialNumber:   stringPtr(d.SerialNumber),
		Description:    stringPtr(d.Description),
		Status:         d.Status,
		StatusLabel:    d.Status.Label(),
		Condition:      d.Condition,
		ConditionLabel: d.Condition.Label(),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.LendeeID.Valid {
		l, err := rl.lendee(ctx, d.LendeeID.Int64)
		if err != nil {
			return resp, err
		}
		resp.Lendee = l
	}
	if d.LenderID.Valid {
		u, err := rl.lender(ctx, d.LenderID.Int64)
		if err != nil {
			return resp, err
		}
		resp.Lender = u
	}
	return resp, nil
}

func (rl *relations) lendee(ctx context.Context, id int64) (*LendeeResponse, error) {
	if v, ok := rl.lendees[id]; ok {
		return v, nil
	}
	l, err := rl.resolver.Get(ctx, rl.q, id)
	if err != nil {
		return nil, err
	}
	v := &LendeeResponse{LendeeID: l.LendeeID, Kind: string(l.Kind()), Name: l.Name()}
	rl.lendees[id] = v
	return v, nil
}

func (rl *relations) lender(ctx context.Context, id int64) (*LenderResponse, error) {
	if v, ok := rl.lenders[id]; ok {
		return v, nil
	}
	acct, err := auth.NewStore(rl.q).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, nil
	}
	v := &LenderResponse{UserID: acct.UserID, Username: acct.Username, Name: acct.FullName()}
	rl.lenders[id] = v
	return v, nil
}

func snapshotOf(d *Device) DeviceSnapshot {
	return DeviceSnapshot{
		DeviceID:     d.DeviceID,
		Name:         d.Name,
		SerialNumber: stringPtr(d.SerialNumber),
		Description:  stringPtr(d.Description),
		Status:       d.Status,
		Condition:    d.Condition,
		LendeeID:     int64Ptr(d.LendeeID),
		LenderID:     int64Ptr(d.LenderID),
		UpdatedAt:    d.UpdatedAt,
	}
}

// 空文字は NULL として保存する
func optionalString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullID(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
