package devices

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusCheckedOut Status = "checked_out"
	StatusCheckedIn  Status = "checked_in"
	StatusBroken     Status = "broken"
	StatusMissing    Status = "missing"
)

var statusLabels = map[Status]string{
	StatusCheckedOut: "Checked out",
	StatusCheckedIn:  "Checked in",
	StatusBroken:     "Broken",
	StatusMissing:    "Missing",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionScratched Condition = "scratched"
	ConditionBroken    Condition = "broken"
	ConditionMissing   Condition = "missing"
)

var conditionLabels = map[Condition]string{
	ConditionExcellent: "Excellent",
	ConditionScratched: "Scratched",
	ConditionBroken:    "Broken",
	ConditionMissing:   "Missing",
}

func (c Condition) Valid() bool {
	_, ok := conditionLabels[c]
	return ok
}

func (c Condition) Label() string {
	if l, ok := conditionLabels[c]; ok {
		return l
	}
	return string(c)
}

// CheckinOutcome: 返却時の状態申告 → (status, condition)
// 未知の値は「問題なし」扱い
func CheckinOutcome(reported string) (Status, Condition) {
	switch Condition(reported) {
	case ConditionBroken:
		return StatusBroken, ConditionBroken
	case ConditionScratched:
		return StatusCheckedIn, ConditionScratched
	case ConditionMissing:
		return StatusMissing, ConditionMissing
	default:
		return StatusCheckedIn, ConditionExcellent
	}
}

// Device は devices テーブルの1行を表す。
// Status が checked_out のときだけ LendeeID / LenderID が入る。
type Device struct {
	DeviceID     int64
	Name         string
	SerialNumber sql.NullString
	Description  sql.NullString
	Status       Status
	Condition    Condition
	LendeeID     sql.NullInt64
	LenderID     sql.NullInt64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d *Device) markCheckedOut(lendeeID, lenderID int64, now time.Time) {
	d.Status = StatusCheckedOut
	d.LendeeID = sql.NullInt64{Int64: lendeeID, Valid: true}
	d.LenderID = sql.NullInt64{Int64: lenderID, Valid: true}
	d.UpdatedAt = now
}

func (d *Device) clearLoan() {
	d.LendeeID = sql.NullInt64{}
	d.LenderID = sql.NullInt64{}
}

// Comment は device_comments の1行
type Comment struct {
	CommentID   int64
	CommentULID string
	DeviceID    int64
	Text        string
	AuthorID    sql.NullInt64
	CreatedAt   time.Time
}

type Action string

const (
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionCheckedOut Action = "checked_out"
	ActionCheckedIn  Action = "checked_in"
	ActionDeleted    Action = "deleted"
)

// Revision は変更後のデバイスのスナップショット（device_revisions）
type Revision struct {
	RevisionID   int64
	RevisionULID string
	DeviceID     int64
	Action       Action
	Snapshot     string
	ActorID      sql.NullInt64
	CreatedAt    time.Time
}

// 一覧の検索条件
type DeviceFilter struct {
	Status    *Status
	Condition *Condition
	LendeeID  *int64
	Q         string // name / serial_number の部分一致
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
