// Package export turns stored responses into a spreadsheet.
//
// The header is the union of response keys in first-seen order.  Each key
// is shown as the current label of the field it points at; keys that no
// longer match a field (or the responder email) keep their raw name.  The
// table is written as an xlsx workbook with a single "Responses" sheet, or
// as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yanizio/formstep/internal/form"
)

// SheetName is the worksheet the responses are written to.
const SheetName = "Responses"

// Format selects the download encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Messages shown to the author.
const (
	MsgNotPublished = "Publish your form first!"
	MsgNoResponses  = "No responses yet."
)

var (
	ErrNotPublished = errors.New("form not published")
	ErrNoResponses  = errors.New("no responses")
)

// Table is a header row plus one row per response.
type Table struct {
	Keys   []string
	Header []string
	Rows   [][]string
}

// Rows builds the table for f.  It fails with ErrNoResponses when the list
// is empty.
func Rows(f form.Form, responses []form.Response) (Table, error) {
	if len(responses) == 0 {
		return Table{}, ErrNoResponses
	}

	labels := f.LabelMap()
	labels[form.ResponderEmailKey] = "Email"

	var t Table
	seen := map[string]bool{}
	for _, r := range responses {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				t.Keys = append(t.Keys, k)
			}
		}
	}
	for _, k := range t.Keys {
		if l, ok := labels[k]; ok && l != "" {
			t.Header = append(t.Header, l)
		} else {
			t.Header = append(t.Header, k)
		}
	}

	for _, r := range responses {
		row := make([]string, len(t.Keys))
		for i, k := range t.Keys {
			row[i] = cell(r[k])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the table as CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the table as a workbook whose only sheet is SheetName.
func WriteXLSX(w io.Writer, t Table) error {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := wb.SetSheetName(wb.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	rows := append([][]string{t.Header}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := wb.SetSheetRow(SheetName, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, t Table) error {
	if f == FormatCSV {
		return WriteCSV(w, t)
	}
	return WriteXLSX(w, t)
}

// FileName is the download name for form id, e.g. responses_ab12cd34.xlsx.
func FileName(id string, f Format) string { return "responses_" + id + "." + string(f) }

// sortedKeys orders a response's keys by step, then field, with anything
// else (responderEmail) first.  Go maps carry no insertion order, so this
// stands in for first-seen order within one response.
func sortedKeys(r form.Response) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, fi, okI := parseKey(keys[i])
		sj, fj, okJ := parseKey(keys[j])
		switch {
		case okI != okJ:
			return !okI
		case !okI:
			return keys[i] < keys[j]
		case si != sj:
			return si < sj
		case fi != fj:
			return fi < fj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func parseKey(k string) (step, field int, ok bool) {
	n, err := fmt.Sscanf(k, "step%d_field%d", &step, &field)
	return step, field, err == nil && n == 2 && form.ResponseKey(step, field) == k
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = cell(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
