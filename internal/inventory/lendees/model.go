package lendees

import (
	"strconv"
	"time"

	"inventory-backend/internal/platform/auth"
)

type Kind string

const (
	KindSubject Kind = "subject"
	KindUser    Kind = "user"
)

// Subject は外部システムの被験者ID（Verhoeff チェックディジット付き）
type Subject struct {
	SubjectPK int64
	SubjectID int64
	CreatedAt time.Time
}

// Identity は Lendee の実体。SubjectIdentity と UserIdentity 以外は実装できない。
type Identity interface {
	Kind() Kind
	DisplayName() string
	sealed()
}

type SubjectIdentity struct{ Subject Subject }

func (SubjectIdentity) Kind() Kind            { return KindSubject }
func (s SubjectIdentity) DisplayName() string { return SubjectName(s.Subject.SubjectID) }
func (SubjectIdentity) sealed()               {}

type UserIdentity struct{ User auth.Account }

func (UserIdentity) Kind() Kind            { return KindUser }
func (u UserIdentity) DisplayName() string { return u.User.FullName() }
func (UserIdentity) sealed()               {}

// Lendee は貸出先。Identity は常にちょうど1つ。
type Lendee struct {
	LendeeID  int64
	Identity  Identity
	CreatedAt time.Time
}

func (l *Lendee) Kind() Kind   { return l.Identity.Kind() }
func (l *Lendee) Name() string { return l.Identity.DisplayName() }

func SubjectName(subjectID int64) string {
	return "Subject " + strconv.FormatInt(subjectID, 10)
}

// Resolution は Resolve の結果
type Resolution struct {
	Lendee         *Lendee
	Name           string
	CreatedSubject bool
	CreatedLendee  bool
}
