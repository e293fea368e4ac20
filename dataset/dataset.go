// Package dataset loads tabular recipient data and normalizes the
// loosely typed cell values into a closed set of scalars, so that
// canonicalization downstream is deterministic regardless of how the
// source file spelled a number or date.
package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the scalar types a cell can hold.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

// Value is one normalized cell. Exactly one representation is
// authoritative per Kind.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Date time.Time
}

// dateLayouts are the accepted input spellings for date cells. Canonical
// output is always ISO.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

const canonicalDateLayout = "2006-01-02"

// ParseValue classifies a raw cell. Numbers and dates are recognized by
// format; everything else stays a trimmed string. The literal "nan"
// (any case) is treated as empty, matching what spreadsheet exports
// produce for blank cells.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "nan") {
		s = ""
	}
	if s == "" {
		return Value{Kind: KindString}
	}

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return Value{Kind: KindDate, Date: d}
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{Kind: KindNumber, Num: n}
	}
	return Value{Kind: KindString, Str: s}
}

// Canonical renders the value in its fixed, locale-independent form:
// dates as ISO yyyy-mm-dd, numbers with the shortest exact decimal
// representation, strings as-is.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Date.Format(canonicalDateLayout)
	default:
		return v.Str
	}
}

// IsEmpty reports whether the cell held no usable content.
func (v Value) IsEmpty() bool {
	return v.Kind == KindString && v.Str == ""
}

// Row is one dataset record. Columns preserves the source column order;
// lookups are case-insensitive on the trimmed column name.
type Row struct {
	Columns []string
	cells   map[string]Value
}

// NewRow builds a row from parallel column and raw-value slices.
func NewRow(columns, raw []string) Row {
	r := Row{
		Columns: columns,
		cells:   make(map[string]Value, len(columns)),
	}
	for i, col := range columns {
		var v Value
		if i < len(raw) {
			v = ParseValue(raw[i])
		}
		r.cells[normalizeKey(col)] = v
	}
	return r
}

func normalizeKey(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// Get looks up a cell by column name, case-insensitively.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.cells[normalizeKey(column)]
	return v, ok
}

// CanonicalMap returns every cell in canonical string form, keyed by the
// normalized column name. This is the additional_data payload that gets
// hashed, so its shape must stay stable.
func (r Row) CanonicalMap() map[string]string {
	out := make(map[string]string, len(r.Columns))
	for _, col := range r.Columns {
		if v, ok := r.Get(col); ok {
			out[normalizeKey(col)] = v.Canonical()
		}
	}
	return out
}

// Aliases for the three identity fields. A column matching any alias
// (after trimming and lowercasing) supplies that field; otherwise the
// first three columns are used positionally.
var (
	nameAliases   = []string{"name", "student", "recipient", "full_name"}
	courseAliases = []string{"course", "subject", "program", "course_name"}
	dateAliases   = []string{"date", "issue_date", "completion_date", "cert_date"}
)

// Identity is the recipient/course/date triple every certificate is
// issued over.
type Identity struct {
	Recipient string
	Course    string
	IssueDate string
}

func (r Row) findAlias(aliases []string) (string, bool) {
	for _, col := range r.Columns {
		key := normalizeKey(col)
		for _, a := range aliases {
			if key == a {
				if v, ok := r.Get(col); ok && !v.IsEmpty() {
					return v.Canonical(), true
				}
			}
		}
	}
	return "", false
}

func (r Row) positional(idx int) string {
	if idx >= len(r.Columns) {
		return ""
	}
	if v, ok := r.Get(r.Columns[idx]); ok {
		return v.Canonical()
	}
	return ""
}

// ExtractIdentity resolves the identity triple from a row, preferring
// aliased columns and falling back to column position.
func (r Row) ExtractIdentity() Identity {
	var id Identity
	var ok bool
	if id.Recipient, ok = r.findAlias(nameAliases); !ok {
		id.Recipient = r.positional(0)
	}
	if id.Course, ok = r.findAlias(courseAliases); !ok {
		id.Course = r.positional(1)
	}
	if id.IssueDate, ok = r.findAlias(dateAliases); !ok {
		id.IssueDate = r.positional(2)
	}
	return id
}

// Dataset is an ordered sequence of rows sharing one column set.
type Dataset struct {
	Columns []string
	Rows    []Row
}
