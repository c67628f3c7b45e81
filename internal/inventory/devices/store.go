package devices

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"inventory-backend/internal/platform/db"
)

const tableDevices = "devices"

var deviceColumns = []any{
	"device_id", "name", "serial_number", "description", "status", "device_condition",
	"lendee_id", "lender_id", "created_at", "updated_at",
}

type Store struct {
	db      db.DBTX
	dialect goqu.DialectWrapper
}

// dialect は goqu のダイアレクト名（"mysql" / "sqlite3"）
func NewStore(conn db.DBTX, dialect string) *Store {
	return &Store{db: conn, dialect: goqu.Dialect(dialect)}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(sc scanner) (*Device, error) {
	var d Device
	err := sc.Scan(
		&d.DeviceID, &d.Name, &d.SerialNumber, &d.Description, &d.Status, &d.Condition,
		&d.LendeeID, &d.LenderID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ---- devices ----

func (s *Store) GetDevice(ctx context.Context, deviceID int64) (*Device, error) {
	const q = `
		SELECT device_id, name, serial_number, description, status, device_condition,
		       lendee_id, lender_id, created_at, updated_at
		FROM devices WHERE device_id = ?`
	d, err := scanDevice(s.db.QueryRowContext(ctx, q, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("device not found")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) InsertDevice(ctx context.Context, d *Device) error {
	const q = `
		INSERT INTO devices
		(name, serial_number, description, status, device_condition, lendee_id, lender_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		d.Name, d.SerialNumber, d.Description, string(d.Status), string(d.Condition),
		d.LendeeID, d.LenderID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.DeviceID = id
	return nil
}

// UpdateDevice は created_at 以外の全カラムを書き戻す
func (s *Store) UpdateDevice(ctx context.Context, d *Device) error {
	const q = `
		UPDATE devices
		SET name = ?, serial_number = ?, description = ?, status = ?, device_condition = ?,
		    lendee_id = ?, lender_id = ?, updated_at = ?
		WHERE device_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		d.Name, d.SerialNumber, d.Description, string(d.Status), string(d.Condition),
		d.LendeeID, d.LenderID, d.UpdatedAt, d.DeviceID,
	)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound("device not found")
	}
	return nil
}

// DeleteDevice は削除件数を返す（無ければ 0）
func (s *Store) DeleteDevice(ctx context.Context, deviceID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, deviceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) filtered(f DeviceFilter) *goqu.SelectDataset {
	var where []goqu.Expression
	if f.Status != nil {
		where = append(where, goqu.C("status").Eq(string(*f.Status)))
	}
	if f.Condition != nil {
		where = append(where, goqu.C("device_condition").Eq(string(*f.Condition)))
	}
	if f.LendeeID != nil {
		where = append(where, goqu.C("lendee_id").Eq(*f.LendeeID))
	}
	if q := strings.TrimSpace(f.Q); q != "" {
		pat := "%" + q + "%"
		where = append(where, goqu.Or(
			goqu.C("name").Like(pat),
			goqu.C("serial_number").Like(pat),
		))
	}
	return s.dialect.From(tableDevices).Where(where...)
}

// ListDevices: p.Limit <= 0 なら全件
func (s *Store) ListDevices(ctx context.Context, f DeviceFilter, p Page) ([]Device, error) {
	ds := s.filtered(f).Select(deviceColumns...)
	if strings.EqualFold(p.Order, "asc") {
		ds = ds.Order(goqu.C("updated_at").Asc(), goqu.C("device_id").Asc())
	} else {
		ds = ds.Order(goqu.C("updated_at").Desc(), goqu.C("device_id").Desc())
	}
	if p.Limit > 0 {
		ds = ds.Limit(uint(p.Limit))
		if p.Offset > 0 {
			ds = ds.Offset(uint(p.Offset))
		}
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Store) CountDevices(ctx context.Context, f DeviceFilter) (int64, error) {
	query, args, err := s.filtered(f).Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ---- comments ----

func (s *Store) InsertComment(ctx context.Context, m *Comment) error {
	const q = `
		INSERT INTO device_comments (comment_ulid, device_id, text, author_id, created_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, m.CommentULID, m.DeviceID, m.Text, m.AuthorID, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.CommentID = id
	return nil
}

func (s *Store) ListComments(ctx context.Context, deviceID int64) ([]Comment, error) {
	const q = `
		SELECT comment_id, comment_ulid, device_id, text, author_id, created_at
		FROM device_comments
		WHERE device_id = ?
		ORDER BY created_at ASC, comment_id ASC`
	rows, err := s.db.QueryContext(ctx, q, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Comment, 0)
	for rows.Next() {
		var m Comment
		if err := rows.Scan(&m.CommentID, &m.CommentULID, &m.DeviceID, &m.Text, &m.AuthorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- revisions ----

func (s *Store) InsertRevision(ctx context.Context, m *Revision) error {
	const q = `
		INSERT INTO device_revisions (revision_ulid, device_id, action, snapshot, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, m.RevisionULID, m.DeviceID, string(m.Action), m.Snapshot, m.ActorID, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.RevisionID = id
	return nil
}

func (s *Store) ListRevisions(ctx context.Context, deviceID int64) ([]Revision, error) {
	const q = `
		SELECT revision_id, revision_ulid, device_id, action, snapshot, actor_id, created_at
		FROM device_revisions
		WHERE device_id = ?
		ORDER BY revision_id ASC`
	rows, err := s.db.QueryContext(ctx, q, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Revision, 0)
	for rows.Next() {
		var m Revision
		if err := rows.Scan(&m.RevisionID, &m.RevisionULID, &m.DeviceID, &m.Action, &m.Snapshot, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
