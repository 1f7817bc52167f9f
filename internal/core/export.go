package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// SampleHeader is the header row of the downloadable sample import file.
var SampleHeader = []string{"First Name", "Last Name", "Email", "Mobile", "Group"}

var sampleRows = [][]string{
	{"John", "Doe", "john.doe@example.com", "1234567890", "Friends"},
	{"Jane", "Smith", "jane.smith@example.com", "0987654321", "Family"},
}

// WriteSampleCSV writes the sample import file.
func WriteSampleCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SampleHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(sampleRows); err != nil {
		return fmt.Errorf("write sample csv: %w", err)
	}
	return nil
}

// WriteSkipReport writes skipped rows as "Row,Reason", the original fields
// rejoined by commas in the first column.
func WriteSkipReport(w io.Writer, skipped []SkipEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Row", "Reason"}); err != nil {
		return err
	}
	for _, s := range skipped {
		if err := cw.Write([]string{strings.Join(s.Row, ","), s.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write skip report: %w", err)
	}
	return nil
}

// ExportColumn is one column of the contact export.
type ExportColumn string

const (
	ColumnID        ExportColumn = "ID"
	ColumnFirstName ExportColumn = "First Name"
	ColumnLastName  ExportColumn = "Last Name"
	ColumnEmail     ExportColumn = "Email"
	ColumnMobile    ExportColumn = "Mobile"
	ColumnGroup     ExportColumn = "Group"
	ColumnCreated   ExportColumn = "Creation Date"
)

// AllExportColumns is the full export layout.
var AllExportColumns = []ExportColumn{
	ColumnID, ColumnFirstName, ColumnLastName, ColumnEmail, ColumnMobile, ColumnGroup, ColumnCreated,
}

// ParseExportColumns matches comma-separated names against export columns,
// ignoring case, spaces and underscores. An empty list selects all columns.
func ParseExportColumns(s string) ([]ExportColumn, error) {
	if strings.TrimSpace(s) == "" {
		return AllExportColumns, nil
	}

	byKey := make(map[string]ExportColumn, len(AllExportColumns))
	for _, c := range AllExportColumns {
		byKey[normalizeHeader(string(c))] = c
	}
	byKey["created"] = ColumnCreated
	byKey["createdat"] = ColumnCreated
	byKey["date"] = ColumnCreated

	var cols []ExportColumn
	for _, part := range strings.Split(s, ",") {
		c, ok := byKey[normalizeHeader(part)]
		if !ok {
			return nil, &ValidationError{Field: "columns", Value: part, Reason: fmt.Sprintf("unknown column %q", strings.TrimSpace(part))}
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func (c ExportColumn) value(ct Contact) string {
	switch c {
	case ColumnID:
		return ct.ID
	case ColumnFirstName:
		return ct.FirstName
	case ColumnLastName:
		return ct.LastName
	case ColumnEmail:
		return ct.Email
	case ColumnMobile:
		if ct.Mobile == "" {
			return "N/A"
		}
		return ct.Mobile
	case ColumnGroup:
		return ct.Group.Name
	case ColumnCreated:
		if ct.CreatedAt.IsZero() {
			return ""
		}
		return ct.CreatedAt.UTC().Format(time.RFC3339)
	}
	return ""
}

// WriteContactsCSV writes contacts in the given order with the given
// columns. A nil cols writes every column.
func WriteContactsCSV(w io.Writer, contacts []Contact, cols []ExportColumn) error {
	if len(cols) == 0 {
		cols = AllExportColumns
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(cols))
	for _, ct := range contacts {
		for i, c := range cols {
			record[i] = c.value(ct)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write contacts csv: %w", err)
	}
	return nil
}

// ExportFileName returns contacts_{group}.csv, or contacts_all.csv when no
// group filter is set.
func ExportFileName(group string) string {
	if group == "" {
		group = "all"
	}
	return "contacts_" + group + ".csv"
}
