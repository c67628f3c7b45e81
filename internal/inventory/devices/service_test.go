package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-backend/internal/platform/auth"
	"inventory-backend/internal/platform/db"
	"inventory-backend/internal/platform/db/dbtest"
)

// 呼ばれるたびに1秒進む時計（updated_at の並びを決定的にする）
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type seqID struct{ n int }

func (g *seqID) New() (string, error) {
	g.n++
	return fmt.Sprintf("01TEST%020d", g.n), nil
}

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc := NewService(conn, db.DriverSQLite)
	svc.clock = &stepClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	svc.id = &seqID{}
	return svc, conn
}

func seedUser(t *testing.T, conn *sql.DB, username, email, first, last, role string) *auth.Account {
	t.Helper()
	a := &auth.Account{
		Username:     username,
		FirstName:    first,
		LastName:     last,
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if email != "" {
		a.Email = sql.NullString{String: email, Valid: true}
	}
	require.NoError(t, auth.NewStore(conn).Create(context.Background(), a))
	return a
}

func mustCreate(t *testing.T, svc *Service, actorID int64, name string) *DeviceResponse {
	t.Helper()
	d, err := svc.CreateDevice(context.Background(), actorID, CreateDeviceRequest{Name: name})
	require.NoError(t, err)
	return d
}

func count(t *testing.T, conn *sql.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.QueryRow(query, args...).Scan(&n))
	return n
}

func requireCode(t *testing.T, err error, code Code) *APIError {
	t.Helper()
	var api *APIError
	require.True(t, errors.As(err, &api), "expected *APIError, got %v", err)
	require.Equal(t, code, api.Code)
	return api
}

func TestCheckinOutcome(t *testing.T) {
	cases := []struct {
		in         string
		wantStatus Status
		wantCond   Condition
	}{
		{"broken", StatusBroken, ConditionBroken},
		{"scratched", StatusCheckedIn, ConditionScratched},
		{"missing", StatusMissing, ConditionMissing},
		{"excellent", StatusCheckedIn, ConditionExcellent},
		{"", StatusCheckedIn, ConditionExcellent},
		{"on fire", StatusCheckedIn, ConditionExcellent},
	}
	for _, tc := range cases {
		st, cond := CheckinOutcome(tc.in)
		assert.Equal(t, tc.wantStatus, st, tc.in)
		assert.Equal(t, tc.wantCond, cond, tc.in)
	}
}

func TestCreateDevice(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)

	serial := " SN-001 "
	d, err := svc.CreateDevice(ctx, staff.UserID, CreateDeviceRequest{Name: "iPad", SerialNumber: &serial})
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, d.Status)
	assert.Equal(t, ConditionExcellent, d.Condition)
	assert.Equal(t, "Checked in", d.StatusLabel)
	require.NotNil(t, d.SerialNumber)
	assert.Equal(t, "SN-001", *d.SerialNumber)
	assert.Nil(t, d.Description)
	assert.Nil(t, d.Lendee)

	_, err = svc.CreateDevice(ctx, staff.UserID, CreateDeviceRequest{Name: "  "})
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.CreateDevice(ctx, staff.UserID, CreateDeviceRequest{Name: "x", Status: "checked_out"})
	requireCode(t, err, CodeInvalidArgument)

	hist, err := svc.ListRevisions(ctx, d.DeviceID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, ActionCreated, hist[0].Action)
	assert.Equal(t, "iPad", hist[0].Snapshot.Name)
}

func TestCheckoutFlow_Subject(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "Sam", "Staff", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")

	res, err := svc.Checkout(ctx, d.DeviceID, "2363")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Subject 2363", res.Name)
	require.NotNil(t, res.CreatedSubject)
	assert.True(t, *res.CreatedSubject)

	again, err := svc.Checkout(ctx, d.DeviceID, "2363")
	require.NoError(t, err)
	require.NotNil(t, again.CreatedSubject)
	assert.False(t, *again.CreatedSubject)

	// 解決だけではまだ貸し出さない
	got, err := svc.GetDevice(ctx, d.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, got.Status)

	require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "2363"))

	got, err = svc.GetDevice(ctx, d.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, got.Status)
	require.NotNil(t, got.Lendee)
	assert.Equal(t, "subject", got.Lendee.Kind)
	assert.Equal(t, "Subject 2363", got.Lendee.Name)
	require.NotNil(t, got.Lender)
	assert.Equal(t, "staff", got.Lender.Username)
	assert.Equal(t, "Sam Staff", got.Lender.Name)

	assert.Equal(t, int64(1), count(t, conn, `SELECT COUNT(*) FROM subjects`))
	assert.Equal(t, int64(1), count(t, conn, `SELECT COUNT(*) FROM lendees`))
}

func TestCheckoutFlow_User(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	seedUser(t, conn, "alice", "alice@example.com", "Alice", "Liddell", auth.RoleUser)
	d := mustCreate(t, svc, staff.UserID, "MacBook")

	res, err := svc.Checkout(ctx, d.DeviceID, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", res.Name)
	assert.Nil(t, res.CreatedSubject)

	require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "alice"))

	got, err := svc.GetDevice(ctx, d.DeviceID)
	require.NoError(t, err)
	require.NotNil(t, got.Lendee)
	assert.Equal(t, "user", got.Lendee.Kind)
	assert.Equal(t, "Alice Liddell", got.Lendee.Name)
}

func TestCheckout_Errors(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")

	_, err := svc.Checkout(ctx, d.DeviceID, "2364")
	api := requireCode(t, err, CodeInvalidArgument)
	assert.Equal(t, "Invalid subject ID. Please try again.", api.Message)

	_, err = svc.Checkout(ctx, d.DeviceID, "nobody@example.com")
	api = requireCode(t, err, CodeNotFound)
	assert.Equal(t, "No user found with e-mail address nobody@example.com", api.Message)

	// 空入力はユーザー検索に回さず 400
	_, err = svc.Checkout(ctx, d.DeviceID, "  ")
	api = requireCode(t, err, CodeInvalidArgument)
	assert.Equal(t, "Please enter a subject ID or e-mail address.", api.Message)

	_, err = svc.Checkout(ctx, 9999, "2363")
	requireCode(t, err, CodeNotFound)

	assert.Equal(t, int64(0), count(t, conn, `SELECT COUNT(*) FROM subjects`))
	assert.Equal(t, int64(0), count(t, conn, `SELECT COUNT(*) FROM lendees`))

	// 解決していない貸出先では確定できない
	err = svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "2363")
	requireCode(t, err, CodeNotFound)

	err = svc.ConfirmCheckout(ctx, 0, d.DeviceID, "2363")
	requireCode(t, err, CodeUnauthorized)
}

func TestCheckin_FreesDeviceForEveryCondition(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)

	for _, reported := range []string{"excellent", "scratched", "broken", "missing"} {
		for _, comment := range []string{"", "screen cracked"} {
			d := mustCreate(t, svc, staff.UserID, "Tablet "+reported)
			_, err := svc.Checkout(ctx, d.DeviceID, "1428570")
			require.NoError(t, err)
			require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "1428570"))

			got, err := svc.Checkin(ctx, staff.UserID, d.DeviceID, CheckinRequest{Condition: reported, Comment: comment})
			require.NoError(t, err)

			wantStatus, wantCond := CheckinOutcome(reported)
			assert.Equal(t, wantStatus, got.Status)
			assert.Equal(t, wantCond, got.Condition)
			assert.Nil(t, got.Lendee)
			assert.Nil(t, got.Lender)
			if reported == "broken" {
				assert.Equal(t, StatusBroken, got.Status)
			}

			comments, err := svc.ListComments(ctx, d.DeviceID)
			require.NoError(t, err)
			if comment == "" {
				assert.Empty(t, comments)
			} else {
				require.Len(t, comments, 1)
				assert.Equal(t, comment, comments[0].Text)
				require.NotNil(t, comments[0].AuthorID)
				assert.Equal(t, staff.UserID, *comments[0].AuthorID)
			}
		}
	}
}

func TestCheckin_RejectsUnknownCondition(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")

	_, err := svc.Checkin(ctx, staff.UserID, d.DeviceID, CheckinRequest{Condition: "on fire"})
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.Checkin(ctx, staff.UserID, 9999, CheckinRequest{Condition: "excellent"})
	requireCode(t, err, CodeNotFound)
}

func TestUpdateDevice(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")

	desc := "spare unit"
	got, err := svc.UpdateDevice(ctx, staff.UserID, d.DeviceID, UpdateDeviceRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Pixel", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, "spare unit", *got.Description)

	out := string(StatusCheckedOut)
	_, err = svc.UpdateDevice(ctx, staff.UserID, d.DeviceID, UpdateDeviceRequest{Status: &out})
	requireCode(t, err, CodeInvalidArgument)

	empty := " "
	_, err = svc.UpdateDevice(ctx, staff.UserID, d.DeviceID, UpdateDeviceRequest{Name: &empty})
	requireCode(t, err, CodeInvalidArgument)

	_, err = svc.UpdateDevice(ctx, staff.UserID, 9999, UpdateDeviceRequest{Description: &desc})
	requireCode(t, err, CodeNotFound)
}

func TestUpdateDevice_LeavingCheckedOutClearsLoan(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")

	_, err := svc.Checkout(ctx, d.DeviceID, "2363")
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "2363"))

	missing := string(StatusMissing)
	got, err := svc.UpdateDevice(ctx, staff.UserID, d.DeviceID, UpdateDeviceRequest{Status: &missing})
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, got.Status)
	assert.Nil(t, got.Lendee)
	assert.Nil(t, got.Lender)

	// 見つかったら手動で戻す
	in := string(StatusCheckedIn)
	exc := string(ConditionExcellent)
	got, err = svc.UpdateDevice(ctx, staff.UserID, d.DeviceID, UpdateDeviceRequest{Status: &in, Condition: &exc})
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, got.Status)
	assert.Equal(t, ConditionExcellent, got.Condition)
}

func TestDeleteDevice(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	keep := mustCreate(t, svc, staff.UserID, "Keep")
	gone := mustCreate(t, svc, staff.UserID, "Gone")

	_, err := svc.Checkin(ctx, staff.UserID, gone.DeviceID, CheckinRequest{Condition: "scratched", Comment: "dent"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDevice(ctx, staff.UserID, gone.DeviceID))
	require.NoError(t, svc.DeleteDevice(ctx, staff.UserID, gone.DeviceID))
	require.NoError(t, svc.DeleteDevice(ctx, staff.UserID, 9999))

	list, err := svc.ListDevices(ctx, DeviceFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, keep.DeviceID, list.Items[0].DeviceID)
	assert.Equal(t, int64(1), list.Total)

	_, err = svc.GetDevice(ctx, gone.DeviceID)
	requireCode(t, err, CodeNotFound)

	assert.Equal(t, int64(0), count(t, conn, `SELECT COUNT(*) FROM device_comments WHERE device_id = ?`, gone.DeviceID))

	hist, err := svc.ListRevisions(ctx, gone.DeviceID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, ActionCreated, hist[0].Action)
	assert.Equal(t, ActionCheckedIn, hist[1].Action)
	assert.Equal(t, ActionDeleted, hist[2].Action)
	assert.Equal(t, ConditionScratched, hist[2].Snapshot.Condition)
}

func TestListDevices_FiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)

	var ids []int64
	for _, name := range []string{"iPad mini", "iPad Pro", "Pixel 8", "Galaxy", "Surface"} {
		ids = append(ids, mustCreate(t, svc, staff.UserID, name).DeviceID)
	}

	_, err := svc.Checkout(ctx, ids[2], "2363")
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, ids[2], "2363"))
	_, err = svc.Checkin(ctx, staff.UserID, ids[3], CheckinRequest{Condition: "broken"})
	require.NoError(t, err)

	page, err := svc.ListDevices(ctx, DeviceFilter{}, Page{Limit: 2, Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[0], page.Items[0].DeviceID)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 2, *page.NextOffset)

	last, err := svc.ListDevices(ctx, DeviceFilter{}, Page{Limit: 2, Offset: 4, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Nil(t, last.NextOffset)

	// desc は更新が新しい順
	recent, err := svc.ListDevices(ctx, DeviceFilter{}, Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, ids[3], recent.Items[0].DeviceID)

	out := StatusCheckedOut
	byStatus, err := svc.ListDevices(ctx, DeviceFilter{Status: &out}, Page{})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, ids[2], byStatus.Items[0].DeviceID)
	lendeeID := byStatus.Items[0].Lendee.LendeeID

	byLendee, err := svc.ListDevices(ctx, DeviceFilter{LendeeID: &lendeeID}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byLendee.Total)

	broken := ConditionBroken
	byCond, err := svc.ListDevices(ctx, DeviceFilter{Condition: &broken}, Page{})
	require.NoError(t, err)
	require.Len(t, byCond.Items, 1)
	assert.Equal(t, ids[3], byCond.Items[0].DeviceID)

	byName, err := svc.ListDevices(ctx, DeviceFilter{Q: "ipad"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byName.Total)
}
