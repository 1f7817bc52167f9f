package core

// view.go filters, sorts and paginates a contact snapshot.
//
// Every function here is pure: inputs are never modified and the same
// arguments always give the same page, so the view can be recomputed on
// every refresh tick.

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PageSize is the number of contacts per page.
const PageSize = 50

// SortKey selects the contact field to sort by.
type SortKey string

const (
	SortByName  SortKey = "name"
	SortByGroup SortKey = "group"
	SortByDate  SortKey = "date"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortKey parses s, defaulting to name when s is empty.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByName, nil
	case SortByName, SortByGroup, SortByDate:
		return k, nil
	default:
		return "", &ValidationError{Field: "sort", Value: s, Reason: fmt.Sprintf("invalid sort key %q", s)}
	}
}

// ParseSortOrder parses s, defaulting to asc when s is empty.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortAsc, nil
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", &ValidationError{Field: "order", Value: s, Reason: fmt.Sprintf("invalid sort order %q", s)}
	}
}

// ViewQuery describes one page of the contact list.
type ViewQuery struct {
	Group    string // exact group name; empty keeps every contact
	Sort     SortKey
	Order    SortOrder
	Page     int // 1-indexed, clamped into range
	PageSize int // 0 means PageSize
}

// ViewPage is one page of contacts.
type ViewPage struct {
	Rows       []Contact `json:"rows"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

// ApplyView filters, sorts and paginates contacts.
func ApplyView(contacts []Contact, q ViewQuery) ViewPage {
	filtered := FilterByGroup(contacts, q.Group)
	sorted := SortContacts(filtered, q.Sort, q.Order)

	size := q.PageSize
	if size <= 0 {
		size = PageSize
	}
	rows, page, total := Paginate(sorted, q.Page, size)
	return ViewPage{Rows: rows, Page: page, TotalPages: total, Total: len(sorted)}
}

// FilterByGroup returns the contacts whose group name equals group. An
// empty group returns a copy of all contacts.
func FilterByGroup(contacts []Contact, group string) []Contact {
	if group == "" {
		return slices.Clone(contacts)
	}
	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.Group.Name == group {
			out = append(out, c)
		}
	}
	return out
}

// SortContacts returns a stably sorted copy of contacts. Names and groups
// compare case-insensitively in locale order; dates compare by time. Desc
// reverses the comparison, so equal keys keep their input order either way.
func SortContacts(contacts []Contact, key SortKey, order SortOrder) []Contact {
	out := slices.Clone(contacts)

	var compare func(a, b Contact) int
	switch key {
	case SortByDate:
		compare = func(a, b Contact) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortByGroup:
		col := newCollator()
		compare = func(a, b Contact) int { return col.CompareString(a.Group.Name, b.Group.Name) }
	default:
		col := newCollator()
		compare = func(a, b Contact) int { return col.CompareString(a.FullName(), b.FullName()) }
	}

	if order == SortDesc {
		asc := compare
		compare = func(a, b Contact) int { return -asc(a, b) }
	}

	slices.SortStableFunc(out, compare)
	return out
}

// newCollator returns a case-insensitive collator. A Collator is not safe
// for concurrent use, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase)
}

// Paginate returns the page of items at the clamped 1-indexed page, the
// page actually returned and the total page count (at least 1).
func Paginate[T any](items []T, page, size int) ([]T, int, int) {
	if size <= 0 {
		size = PageSize
	}
	totalPages := max((len(items)+size-1)/size, 1)
	page = min(max(page, 1), totalPages)

	start := (page - 1) * size
	end := min(start+size, len(items))
	if start >= end {
		return []T{}, page, totalPages
	}
	return slices.Clone(items[start:end]), page, totalPages
}
