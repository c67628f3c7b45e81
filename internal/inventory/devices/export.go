package devices

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8  = "utf8"
	EncodingCP932 = "cp932"
)

var exportHeader = []string{
	"ID", "Name", "Serial number", "Description", "Status", "Condition", "Lendee", "Lender", "Updated at",
}

// ExportCSV は一覧と同じ条件で全件を CSV にする。
// cp932 は Excel（日本語 Windows）でそのまま開ける用
func (s *Service) ExportCSV(ctx context.Context, f DeviceFilter, enc string) ([]byte, error) {
	if enc == "" {
		enc = EncodingUTF8
	}
	if enc != EncodingUTF8 && enc != EncodingCP932 {
		return nil, ErrInvalid("encoding must be utf8 or cp932")
	}

	items, err := s.store(s.db).ListDevices(ctx, f, Page{Order: "desc"})
	if err != nil {
		return nil, err
	}

	rl := newRelations(s.db, s.resolver)
	rows := make([][]string, 0, len(items))
	for i := range items {
		dr, err := rl.build(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, exportRow(dr))
	}

	var b bytes.Buffer
	if err := writeCSV(&b, enc, rows); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func exportRow(d DeviceResponse) []string {
	row := []string{
		strconv.FormatInt(d.DeviceID, 10),
		d.Name,
		deref(d.SerialNumber),
		deref(d.Description),
		d.StatusLabel,
		d.ConditionLabel,
		"",
		"",
		d.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if d.Lendee != nil {
		row[6] = d.Lendee.Name
	}
	if d.Lender != nil {
		row[7] = d.Lender.Name
	}
	return row
}

func writeCSV(w io.Writer, enc string, rows [][]string) error {
	var tw io.WriteCloser = nopCloser{w}
	if enc == EncodingCP932 {
		// Windowsの「ANSI（CP932）」相当。表せない文字は置換する
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
	}

	cw := csv.NewWriter(tw)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return tw.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
