package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw       string
		kind      Kind
		canonical string
	}{
		{"Sara Khan", KindString, "Sara Khan"},
		{"  Sara Khan  ", KindString, "Sara Khan"},
		{"42", KindNumber, "42"},
		{"42.50", KindNumber, "42.5"},
		{"-3.14", KindNumber, "-3.14"},
		{"2024-01-15", KindDate, "2024-01-15"},
		{"2024/01/15", KindDate, "2024-01-15"},
		{"January 15, 2024", KindDate, "2024-01-15"},
		{"nan", KindString, ""},
		{"NaN", KindString, ""},
		{"", KindString, ""},
	}
	for _, tt := range tests {
		v := ParseValue(tt.raw)
		assert.Equal(t, tt.kind, v.Kind, "kind of %q", tt.raw)
		assert.Equal(t, tt.canonical, v.Canonical(), "canonical of %q", tt.raw)
	}
}

func TestCanonicalDeterministic(t *testing.T) {
	// Different spellings of the same number or date canonicalize
	// identically, so the signed payload does not depend on the source
	// file's formatting.
	assert.Equal(t, ParseValue("42.0").Canonical(), ParseValue("42").Canonical())
	assert.Equal(t, ParseValue("2024/01/15").Canonical(), ParseValue("2024-01-15").Canonical())
}

func TestRowGetCaseInsensitive(t *testing.T) {
	row := NewRow([]string{" Name ", "Course"}, []string{"Sara Khan", "Python Basics"})

	v, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Sara Khan", v.Canonical())

	v, ok = row.Get("COURSE")
	require.True(t, ok)
	assert.Equal(t, "Python Basics", v.Canonical())

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestExtractIdentityAliases(t *testing.T) {
	row := NewRow(
		[]string{"Student", "Program", "Completion_Date", "Score"},
		[]string{"Sara Khan", "Python Basics", "2024-01-15", "95"},
	)

	id := row.ExtractIdentity()
	assert.Equal(t, "Sara Khan", id.Recipient)
	assert.Equal(t, "Python Basics", id.Course)
	assert.Equal(t, "2024-01-15", id.IssueDate)
}

func TestExtractIdentityPositionalFallback(t *testing.T) {
	row := NewRow(
		[]string{"ColA", "ColB", "ColC"},
		[]string{"Sara Khan", "Python Basics", "2024-01-15"},
	)

	id := row.ExtractIdentity()
	assert.Equal(t, "Sara Khan", id.Recipient)
	assert.Equal(t, "Python Basics", id.Course)
	assert.Equal(t, "2024-01-15", id.IssueDate)
}

func TestCanonicalMap(t *testing.T) {
	row := NewRow(
		[]string{"Name", "Score", "Date"},
		[]string{"Sara Khan", "95.0", "2024-01-15"},
	)

	got := row.CanonicalMap()
	assert.Equal(t, map[string]string{
		"name":  "Sara Khan",
		"score": "95",
		"date":  "2024-01-15",
	}, got)
}

func TestReadCSV(t *testing.T) {
	in := "Name,Course,Date\nSara Khan,Python Basics,2024-01-15\nLi Wei,Go Advanced,2024-02-20\n"

	ds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Course", "Date"}, ds.Columns)
	require.Len(t, ds.Rows, 2)

	id := ds.Rows[1].ExtractIdentity()
	assert.Equal(t, "Li Wei", id.Recipient)
	assert.Equal(t, "Go Advanced", id.Course)
}

func TestReadCSVShortRecord(t *testing.T) {
	in := "Name,Course,Date\nSara Khan,Python Basics\n"

	ds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	v, ok := ds.Rows[0].Get("Date")
	require.True(t, ok)
	assert.True(t, v.IsEmpty())
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSVSkipsBlankRows(t *testing.T) {
	in := "Name,Course,Date\nSara Khan,Python Basics,2024-01-15\n,,\nnan,NaN,\nLi Wei,Go Advanced,2024-02-20\n"

	ds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Li Wei", ds.Rows[1].ExtractIdentity().Recipient)
}
