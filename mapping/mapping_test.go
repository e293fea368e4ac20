package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "name", Normalize(" Name "))
	assert.Equal(t, "course name", Normalize("Course\t Name"))
	assert.Equal(t, "issue date", Normalize("ISSUE   DATE"))
	assert.Equal(t, "", Normalize("   "))
}

func TestBuildExactMatch(t *testing.T) {
	m, report := Build(
		[]string{"Name", "Course", "Date"},
		[]string{"Name", "Course", "Date"},
	)

	require.Len(t, m, 3)
	assert.Equal(t, "Name", m["Name"])
	assert.Empty(t, report.UnmatchedPlaceholders)
	assert.Empty(t, report.UnusedFields)
	assert.False(t, report.HasGaps())
}

func TestBuildCaseAndWhitespace(t *testing.T) {
	m, report := Build(
		[]string{"recipient_name", "Course Name"},
		[]string{" Recipient_Name ", "course   name"},
	)

	require.Len(t, m, 2)
	// Original field spelling is preserved in the binding.
	assert.Equal(t, " Recipient_Name ", m["recipient_name"])
	assert.Equal(t, "course   name", m["Course Name"])
	assert.False(t, report.HasGaps())
}

func TestBuildGapsAndUnused(t *testing.T) {
	m, report := Build(
		[]string{"Name", "Score"},
		[]string{"Name", "Email"},
	)

	require.Len(t, m, 1)
	assert.Equal(t, []string{"Score"}, report.UnmatchedPlaceholders)
	assert.Equal(t, []string{"Email"}, report.UnusedFields)
	assert.True(t, report.HasGaps())
}

func TestBuildNoFuzzyMatch(t *testing.T) {
	// A near miss must stay unmatched rather than bind loosely.
	m, report := Build([]string{"Name"}, []string{"Names"})

	assert.Empty(t, m)
	assert.Equal(t, []string{"Name"}, report.UnmatchedPlaceholders)
	assert.Equal(t, []string{"Names"}, report.UnusedFields)
}

func TestBuildDuplicateFieldFirstWins(t *testing.T) {
	m, _ := Build([]string{"name"}, []string{"Name", "NAME"})

	require.Len(t, m, 1)
	assert.Equal(t, "Name", m["name"])
}

func TestBuildDuplicatePlaceholders(t *testing.T) {
	// The same placeholder on several pages maps once.
	m, report := Build([]string{"Name", "Name"}, []string{"Name"})

	require.Len(t, m, 1)
	assert.Len(t, report.Matched, 1)
}

func TestBuildEmpty(t *testing.T) {
	m, report := Build(nil, []string{"Name"})

	assert.Empty(t, m)
	assert.Empty(t, report.UnmatchedPlaceholders)
	assert.Equal(t, []string{"Name"}, report.UnusedFields)
}
