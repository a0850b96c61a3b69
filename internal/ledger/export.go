package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportHeader is the fixed column order of a ledger export.
var ExportHeader = []string{
	"timestamp",
	"action",
	"subject_id",
	"actor",
	"previous_state",
	"new_state",
	"decision",
	"note",
}

// ExportRow is one exported entry in its flattened text form.
type ExportRow struct {
	Timestamp     string
	Action        string
	SubjectID     string
	Actor         string
	PreviousState string
	NewState      string
	Decision      string
	Note          string
}

// RowFor flattens an entry into its export columns.
func RowFor(e Entry) ExportRow {
	var decision, note string
	if e.Details != nil {
		decision, note = e.Details.Summary()
	}
	return ExportRow{
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:        string(e.Action),
		SubjectID:     e.SubjectID.String(),
		Actor:         e.Actor.String(),
		PreviousState: e.PreviousState,
		NewState:      e.NewState,
		Decision:      decision,
		Note:          note,
	}
}

func (r ExportRow) fields() []string {
	out := []string{r.Timestamp, r.Action, r.SubjectID, r.Actor, r.PreviousState, r.NewState, r.Decision, r.Note}
	for i, f := range out {
		out[i] = escapeField(f)
	}
	return out
}

// CSV readers fold a quoted CRLF into LF, so carriage returns are written as
// the two characters \r and backslashes are doubled to keep that reversible.
var fieldEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`)

func escapeField(s string) string {
	if !strings.ContainsAny(s, "\\\r") {
		return s
	}
	return fieldEscaper.Replace(s)
}

func unescapeField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ExportWriter streams entries as RFC 4180 CSV: a header row then one row per
// entry. Delimiters, quotes and line feeds are quoted; carriage returns and
// backslashes are escaped, so ParseExport restores every field exactly.
type ExportWriter struct {
	cw   *csv.Writer
	rows int
}

// NewExportWriter writes the header row.
func NewExportWriter(w io.Writer) (*ExportWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}
	return &ExportWriter{cw: cw}, nil
}

func (ew *ExportWriter) Write(entries ...Entry) error {
	for _, e := range entries {
		if err := ew.cw.Write(RowFor(e).fields()); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
		ew.rows++
	}
	return nil
}

// Rows is the number of entries written so far.
func (ew *ExportWriter) Rows() int { return ew.rows }

func (ew *ExportWriter) Flush() error {
	ew.cw.Flush()
	return ew.cw.Error()
}

// Export writes entries in one go. See ExportWriter.
func Export(w io.Writer, entries []Entry) error {
	ew, err := NewExportWriter(w)
	if err != nil {
		return err
	}
	if err := ew.Write(entries...); err != nil {
		return err
	}
	return ew.Flush()
}

// ParseExport reads an export produced by Export.
func ParseExport(r io.Reader) ([]ExportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ExportHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	for i, col := range ExportHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected export column %d: %q", i, header[i])
		}
	}

	var rows []ExportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		for i := range rec {
			rec[i] = unescapeField(rec[i])
		}
		rows = append(rows, ExportRow{
			Timestamp:     rec[0],
			Action:        rec[1],
			SubjectID:     rec[2],
			Actor:         rec[3],
			PreviousState: rec[4],
			NewState:      rec[5],
			Decision:      rec[6],
			Note:          rec[7],
		})
	}
	return rows, nil
}
