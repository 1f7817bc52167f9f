package core

// import.go drives CSV rows through Validate, the duplicate index and group
// resolution, producing accepted contacts and a skip report.
//
// Rows are processed strictly in file order. Every accepted row is created in
// the store and added to the duplicate index before the next row is checked,
// so the first of two rows sharing an email or mobile wins and the second is
// skipped.
//
// The whole file is read and tokenized before any row is looked at: a read
// failure aborts the run once and leaves nothing behind.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/audience/internal/logging"
)

// ErrFileTooLarge is returned when an import file exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// IDFunc returns a fresh contact identifier.
type IDFunc func() string

// UUIDs returns an IDFunc producing random UUIDs.
func UUIDs() IDFunc {
	return uuid.NewString
}

// NewSequence returns an IDFunc producing prefix1, prefix2, ... The counter
// belongs to the returned func, so two sequences never share state.
func NewSequence(prefix string) IDFunc {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// ImportOptions controls identifier and timestamp assignment and the file
// size limit. Zero values fall back to UUIDs, time.Now and no limit.
type ImportOptions struct {
	NewID       IDFunc
	Now         func() time.Time
	MaxFileSize int64
}

func (o ImportOptions) withDefaults() ImportOptions {
	if o.NewID == nil {
		o.NewID = UUIDs()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ImportResult is the outcome of one import run.
type ImportResult struct {
	Accepted  []Contact
	Skipped   []SkipEntry
	TotalRows int  // data rows seen, excluding the header and blank lines
	HasHeader bool // first record was treated as a header and discarded
}

// ReadRecords reads an import file and splits it into one record per line.
// A UTF-8 BOM is dropped and invalid UTF-8 is replaced. Each line is
// tokenized on its own: quoted fields may contain commas, but a line whose
// quotes do not balance is split on every comma, so it can never swallow
// the lines after it.
func ReadRecords(r io.Reader, maxSize int64) ([][]string, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if maxSize > 0 && int64(len(raw)) > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxSize)
	}

	data, _, err := transform.String(unicode.BOMOverride(unicode.UTF8.NewDecoder()), string(raw))
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	lines := strings.Split(data, "\n")
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, splitLine(line))
	}
	return records, nil
}

// splitLine tokenizes a single line.
func splitLine(line string) []string {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	if rec, err := cr.Read(); err == nil {
		return rec
	}
	return strings.Split(line, ",")
}

// ImportCSV reads r and runs ImportRecords over it. Nothing is persisted.
func ImportCSV(r io.Reader, existing []Contact, groups GroupResolver, opts ImportOptions) (*ImportResult, error) {
	records, err := ReadRecords(r, opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return ImportRecords(records, existing, groups, opts)
}

// ImportRecords classifies records against existing contacts and groups.
// It returns ErrEmptyInput when there is no data row at all.
func ImportRecords(records [][]string, existing []Contact, groups GroupResolver, opts ImportOptions) (*ImportResult, error) {
	return classify(context.Background(), records, existing, groups, opts.withDefaults(), nil)
}

// commitFunc persists one accepted contact. An error demotes the row to the
// skip report and keeps it out of the duplicate index.
type commitFunc func(ctx context.Context, c Contact) (Contact, error)

// classify walks the data rows in file order. With a non-nil commit each
// accepted row is persisted before the next row is checked.
//
// If ctx is cancelled part way, the rows handled so far are returned with
// ctx.Err().
func classify(ctx context.Context, records [][]string, existing []Contact, groups GroupResolver, opts ImportOptions, commit commitFunc) (*ImportResult, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if !isEmptyRow(rec) {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	cols, header := detectColumns(rows[0])
	if header {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	result := &ImportResult{TotalRows: len(rows), HasHeader: header}
	idx := newIdentityIndex(existing)

	for _, row := range rows {
		fields, err := Validate(cols.fields(row))
		if err == nil {
			err = idx.checkDuplicate(fields)
		}
		if err != nil {
			result.skip(row, Reason(err))
			continue
		}

		g, ok := groups.ResolveGroup(fields.Group)
		if !ok {
			result.skip(row, ReasonUnknownGroup)
			continue
		}

		c := Contact{
			ID:        opts.NewID(),
			FirstName: fields.FirstName,
			LastName:  fields.LastName,
			Email:     fields.Email,
			Mobile:    fields.Mobile,
			Group:     g,
			CreatedAt: opts.Now(),
		}
		if commit != nil {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			created, err := commit(ctx, c)
			if err != nil {
				result.skip(row, err.Error())
				continue
			}
			c = created
		}

		idx.add(fields.Email, fields.Mobile)
		result.Accepted = append(result.Accepted, c)
	}

	return result, nil
}

func (r *ImportResult) skip(row []string, reason string) {
	r.Skipped = append(r.Skipped, SkipEntry{
		Row:    append([]string(nil), row...),
		Reason: reason,
	})
}

// Importer persists the contacts an import accepts.
type Importer struct {
	contacts ContactStore
	groups   GroupResolver
	opts     ImportOptions
}

// NewImporter creates an importer writing to contacts and resolving group
// references through groups.
func NewImporter(contacts ContactStore, groups GroupResolver, opts ImportOptions) *Importer {
	return &Importer{contacts: contacts, groups: groups, opts: opts.withDefaults()}
}

// Import reads r and creates each accepted contact in file order. A contact
// the store rejects is moved to the skip report with the store's message and
// the run continues; it does not count against later rows as a duplicate.
//
// If ctx is cancelled part way, the contacts created so far are returned
// with ctx.Err(). Requests already issued are not rolled back.
func (im *Importer) Import(ctx context.Context, r io.Reader, existing []Contact) (*ImportResult, error) {
	records, err := ReadRecords(r, im.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	result, err := classify(ctx, records, existing, im.groups, im.opts, im.create)
	if result != nil {
		logger.Debug("import persisted", "accepted", len(result.Accepted), "skipped", len(result.Skipped))
	}
	return result, err
}

func (im *Importer) create(ctx context.Context, c Contact) (Contact, error) {
	created, err := im.contacts.CreateContact(ctx, c)
	if err != nil {
		cerr := collaboratorErr("create contact", err)
		logging.FromContext(ctx).Warn("import row rejected by store", "email", c.Email, "error", cerr)
		return Contact{}, cerr
	}
	return created, nil
}

// columns maps contact fields to record positions. -1 means absent.
type columns struct {
	first, last, email, mobile, group int
}

// positional is the documented column order: firstName,lastName,email,mobile,group.
var positional = columns{first: 0, last: 1, email: 2, mobile: 3, group: 4}

func (c columns) fields(row []string) ContactFields {
	return ContactFields{
		FirstName: cell(row, c.first),
		LastName:  cell(row, c.last),
		Email:     cell(row, c.email),
		Mobile:    cell(row, c.mobile),
		Group:     cell(row, c.group),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// headerAliases maps normalized header names to fields.
var headerAliases = map[string]string{
	"firstname":    "first",
	"first":        "first",
	"lastname":     "last",
	"last":         "last",
	"surname":      "last",
	"email":        "email",
	"emailaddress": "email",
	"mobile":       "mobile",
	"mobilenumber": "mobile",
	"phone":        "mobile",
	"phonenumber":  "mobile",
	"group":        "group",
	"groupname":    "group",
}

// detectColumns decides whether first is a header and how to read rows.
//
// A record naming at least the email and group columns is a header mapped by
// name. Otherwise the layout is positional, and first is data only when its
// email column already holds a valid address.
func detectColumns(first []string) (columns, bool) {
	named := columns{first: -1, last: -1, email: -1, mobile: -1, group: -1}
	for i, h := range first {
		switch headerAliases[normalizeHeader(h)] {
		case "first":
			named.first = i
		case "last":
			named.last = i
		case "email":
			named.email = i
		case "mobile":
			named.mobile = i
		case "group":
			named.group = i
		}
	}
	if named.email >= 0 && named.group >= 0 {
		return named, true
	}

	if IsValidEmail(strings.TrimSpace(cell(first, positional.email))) {
		return positional, false
	}
	return positional, true
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
