package lendees

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-backend/internal/inventory/verhoeff"
	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
	"inventory-backend/internal/platform/db/dbtest"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newResolver() *Resolver {
	return NewResolverWithClock(db.DriverSQLite, fixedClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)})
}

func countRows(t *testing.T, conn *sql.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func createUser(t *testing.T, conn *sql.DB, username, email, first, last string, disabled bool) *auth.Account {
	t.Helper()
	a := &auth.Account{
		Username:     username,
		FirstName:    first,
		LastName:     last,
		PasswordHash: "x",
		Role:         auth.RoleUser,
		IsDisabled:   disabled,
		CreatedAt:    time.Now().UTC(),
	}
	if email != "" {
		a.Email = sql.NullString{String: email, Valid: true}
	}
	require.NoError(t, auth.NewStore(conn).Create(context.Background(), a))
	return a
}

func TestResolve_ValidSubjectCreatesOnce(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()

	res, err := r.Resolve(ctx, conn, "2363")
	require.NoError(t, err)
	assert.Equal(t, "Subject 2363", res.Name)
	assert.True(t, res.CreatedSubject)
	assert.True(t, res.CreatedLendee)
	assert.Equal(t, KindSubject, res.Lendee.Kind())

	again, err := r.Resolve(ctx, conn, " 2363 ")
	require.NoError(t, err)
	assert.False(t, again.CreatedSubject)
	assert.False(t, again.CreatedLendee)
	assert.Equal(t, res.Lendee.LendeeID, again.Lendee.LendeeID)

	assert.Equal(t, int64(1), countRows(t, conn, "subjects"))
	assert.Equal(t, int64(1), countRows(t, conn, "lendees"))
}

func TestResolve_EveryValidSubjectMapsToExactlyOneLendee(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()

	seen := map[int64]int64{}
	for base := 100; base < 130; base++ {
		full, err := verhoeff.Generate(strconv.Itoa(base))
		require.NoError(t, err)

		first, err := r.Resolve(ctx, conn, full)
		require.NoError(t, err)
		second, err := r.Resolve(ctx, conn, full)
		require.NoError(t, err)
		require.Equal(t, first.Lendee.LendeeID, second.Lendee.LendeeID)

		id, _ := strconv.ParseInt(full, 10, 64)
		seen[id] = first.Lendee.LendeeID
	}

	assert.Equal(t, int64(len(seen)), countRows(t, conn, "subjects"))
	assert.Equal(t, int64(len(seen)), countRows(t, conn, "lendees"))
}

func TestResolve_FullWidthDigitsAreFolded(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()

	res, err := r.Resolve(ctx, conn, "２３６３")
	require.NoError(t, err)
	assert.Equal(t, "Subject 2363", res.Name)
}

func TestResolve_InvalidSubjectCreatesNothing(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()

	for _, in := range []string{"2364", "123450", "-2363", "99999999999999999999999"} {
		_, err := r.Resolve(ctx, conn, in)
		assert.ErrorIs(t, err, ErrInvalidSubjectID, in)
	}
	assert.Equal(t, int64(0), countRows(t, conn, "subjects"))
	assert.Equal(t, int64(0), countRows(t, conn, "lendees"))
}

func TestResolve_EmptyInput(t *testing.T) {
	_, err := newResolver().Resolve(context.Background(), dbtest.Open(t), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestResolve_UserByUsernameAndEmail(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()
	alice := createUser(t, conn, "alice", "alice@example.com", "Alice", "Liddell", false)

	byName, err := r.Resolve(ctx, conn, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", byName.Name)
	assert.True(t, byName.CreatedLendee)
	assert.False(t, byName.CreatedSubject)

	ui, ok := byName.Lendee.Identity.(UserIdentity)
	require.True(t, ok)
	assert.Equal(t, alice.UserID, ui.User.UserID)

	byEmail, err := r.Resolve(ctx, conn, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, byEmail.CreatedLendee)
	assert.Equal(t, byName.Lendee.LendeeID, byEmail.Lendee.LendeeID)

	assert.Equal(t, int64(1), countRows(t, conn, "lendees"))
	assert.Equal(t, int64(0), countRows(t, conn, "subjects"))
}

func TestResolve_UserWithoutNameFallsBackToUsername(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	createUser(t, conn, "bob", "", "", "", false)

	res, err := newResolver().Resolve(ctx, conn, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", res.Name)
}

func TestResolve_UnknownOrDisabledUserCreatesNothing(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()
	createUser(t, conn, "mallory", "", "Mal", "Lory", true)

	_, err := r.Resolve(ctx, conn, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = r.Resolve(ctx, conn, "mallory")
	assert.ErrorIs(t, err, ErrUnknownUser)

	assert.Equal(t, int64(0), countRows(t, conn, "lendees"))
}

func TestFind_DoesNotCreate(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()
	createUser(t, conn, "carol", "", "Carol", "", false)

	_, err := r.Find(ctx, conn, "2363")
	assert.ErrorIs(t, err, ErrLendeeNotFound)
	_, err = r.Find(ctx, conn, "carol")
	assert.ErrorIs(t, err, ErrLendeeNotFound)
	_, err = r.Find(ctx, conn, "ghost")
	assert.ErrorIs(t, err, ErrLendeeNotFound)
	assert.Equal(t, int64(0), countRows(t, conn, "lendees"))

	resolved, err := r.Resolve(ctx, conn, "2363")
	require.NoError(t, err)
	found, err := r.Find(ctx, conn, "2363")
	require.NoError(t, err)
	assert.Equal(t, resolved.Lendee.LendeeID, found.LendeeID)

	_, err = r.Resolve(ctx, conn, "carol")
	require.NoError(t, err)
	carol, err := r.Find(ctx, conn, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", carol.Name())
}

func TestFind_SkipsChecksumValidation(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	store := NewStore(conn)

	// チェックディジット不正の被験者が既に存在するケース（移行データなど）
	s := &Subject{SubjectID: 2364, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.InsertSubject(ctx, s))
	_, err := store.InsertSubjectLendee(ctx, s.SubjectPK, time.Now().UTC())
	require.NoError(t, err)

	l, err := newResolver().Find(ctx, conn, "2364")
	require.NoError(t, err)
	si, ok := l.Identity.(SubjectIdentity)
	require.True(t, ok)
	assert.Equal(t, int64(2364), si.Subject.SubjectID)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := newResolver()

	res, err := r.Resolve(ctx, conn, "1428570")
	require.NoError(t, err)

	l, err := r.Get(ctx, conn, res.Lendee.LendeeID)
	require.NoError(t, err)
	assert.Equal(t, "Subject 1428570", l.Name())

	_, err = r.Get(ctx, conn, 424242)
	assert.ErrorIs(t, err, ErrLendeeNotFound)
}

// 別トランザクションが先に INSERT をコミットした場合: 通常の読み取りには見えず、
// INSERT は 1062、ロック付きの再読込でだけ行が見える（MySQL の REPEATABLE READ）
func TestGetOrCreate_ConcurrentInsertIsReadWithLock(t *testing.T) {
	committed := &Subject{SubjectPK: 7, SubjectID: 2363}
	var reads []bool

	got, created, err := getOrCreate(context.Background(),
		func(locking bool) (*Subject, error) {
			reads = append(reads, locking)
			if locking {
				return committed, nil
			}
			return nil, nil
		},
		func() error {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '2363' for key 'subject_id'"}
		})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, committed, got)
	assert.Equal(t, []bool{false, true}, reads)
}

func TestGetOrCreate_OtherInsertErrorIsReturned(t *testing.T) {
	_, _, err := getOrCreate(context.Background(),
		func(bool) (*Subject, error) { return nil, nil },
		func() error { return &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"} })
	var me *mysql.MySQLError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint16(1452), me.Number)
}

func TestResolverStore_LockClausePerDriver(t *testing.T) {
	assert.Equal(t, " LOCK IN SHARE MODE", NewResolver(db.DriverMySQL).store(nil, true).lockClause)
	assert.Empty(t, NewResolver(db.DriverMySQL).store(nil, false).lockClause)
	// SQLite は LOCK 句を解釈できない
	assert.Empty(t, NewResolver(db.DriverSQLite).store(nil, true).lockClause)
}
