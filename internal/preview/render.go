package preview

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
)

// Section selects which part of a View is rendered as text.
type Section string

const (
	SectionRaw        Section = "raw"
	SectionNormalized Section = "normalized"
	SectionPayload    Section = "payload"
	SectionAll        Section = "all"
)

// ParseSection validates a section name.
func ParseSection(name string) (Section, error) {
	switch s := Section(strings.ToLower(name)); s {
	case SectionRaw, SectionNormalized, SectionPayload, SectionAll:
		return s, nil
	default:
		return "", fmt.Errorf("unknown view %q (want raw, normalized, payload or all)", name)
	}
}

// Render writes the requested section of v as plain text.
func Render(w io.Writer, v *View, section Section) error {
	ew := &errWriter{w: w}

	if section == SectionRaw || section == SectionAll {
		ew.heading("Raw")
		ew.check(WriteRecords(ew, v.Fields, v.Records))
		for _, pe := range v.ParseErrors {
			ew.printf("! %s\n", pe.Error())
		}
		if len(v.MissingColumns) > 0 {
			ew.printf("! missing columns: %s\n", strings.Join(v.MissingColumns, ", "))
		}
	}

	if section == SectionNormalized || section == SectionAll {
		ew.heading("Normalized")
		if v.NormalizeError != nil {
			ew.printf("! %s\n", v.NormalizeError)
		} else {
			ew.check(WriteRows(ew, v.Normalized))
		}
	}

	if section == SectionPayload || section == SectionAll {
		ew.heading("Payload")
		switch {
		case v.NormalizeError != nil:
			ew.printf("! not available: normalization failed\n")
		case v.PayloadError != nil:
			ew.printf("! %s\n", v.PayloadError)
		default:
			ew.printf("%s\n", v.Payload)
		}
		for _, c := range v.Caveats {
			ew.printf("* %s\n", c)
		}
	}

	return ew.err
}

// WriteRecords writes a table of records in field order.
func WriteRecords(w io.Writer, fields []string, records []map[string]string) error {
	rows := lo.Map(records, func(r map[string]string, _ int) []string {
		return lo.Map(fields, func(f string, _ int) string { return r[f] })
	})
	return writeTable(w, fields, rows)
}

// WriteRows writes the four known columns of each row.
func WriteRows(w io.Writer, rows []changesheet.Row) error {
	cells := lo.Map(rows, func(r changesheet.Row, _ int) []string {
		return []string{r.ID, string(r.Action), r.Attribute, r.Value}
	})
	return writeTable(w, changesheet.Columns, cells)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(lo.Map(header, cell), "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(lo.Map(row, cell), "\t"))
	}
	return tw.Flush()
}

// cell makes a value safe for a tab-separated table line.
func cell(s string, _ int) string {
	if s == "" {
		return "-"
	}
	return strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`).Replace(s)
}

type errWriter struct {
	w     io.Writer
	err   error
	wrote bool
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}

func (e *errWriter) heading(title string) {
	if e.wrote {
		e.printf("\n")
	}
	e.wrote = true
	e.printf("== %s ==\n", title)
}

func (e *errWriter) check(err error) {
	if e.err == nil {
		e.err = err
	}
}
