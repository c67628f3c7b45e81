package devices

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"inventory-backend/internal/platform/auth"
)

func readCSV(t *testing.T, r io.Reader) [][]string {
	t.Helper()
	records, err := csv.NewReader(r).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportCSV_UTF8(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "Sam", "Staff", auth.RoleStaff)
	d := mustCreate(t, svc, staff.UserID, "Pixel")
	_, err := svc.Checkout(ctx, d.DeviceID, "2363")
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmCheckout(ctx, staff.UserID, d.DeviceID, "2363"))

	body, err := svc.ExportCSV(ctx, DeviceFilter{}, EncodingUTF8)
	require.NoError(t, err)

	records := readCSV(t, bytes.NewReader(body))
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "Pixel", records[1][1])
	assert.Equal(t, "Checked out", records[1][4])
	assert.Equal(t, "Subject 2363", records[1][6])
	assert.Equal(t, "Sam Staff", records[1][7])
}

func TestExportCSV_CP932(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	staff := seedUser(t, conn, "staff", "", "", "", auth.RoleStaff)
	mustCreate(t, svc, staff.UserID, "実験用タブレット")

	body, err := svc.ExportCSV(ctx, DeviceFilter{}, EncodingCP932)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "実験用タブレット")

	records := readCSV(t, transform.NewReader(bytes.NewReader(body), japanese.ShiftJIS.NewDecoder()))
	require.Len(t, records, 2)
	assert.Equal(t, "実験用タブレット", records[1][1])
}

func TestExportCSV_RejectsUnknownEncoding(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ExportCSV(context.Background(), DeviceFilter{}, "latin1")
	requireCode(t, err, CodeInvalidArgument)
}
