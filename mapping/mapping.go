// Package mapping binds template placeholder names to dataset field
// names. Matching is exact after normalization; there is no fuzzy
// matching, a near miss is reported as a gap instead of silently bound
// to the wrong field.
package mapping

import (
	"sort"
	"strings"
)

// Mapping relates placeholder names to the dataset field that supplies
// their value. Placeholders without a match are absent from the map and
// listed in the Report.
type Mapping map[string]string

// Report summarizes one mapping pass over a (template, dataset) pair.
type Report struct {
	Matched               []Pair   `json:"matched"`
	UnmatchedPlaceholders []string `json:"unmatched_placeholders"`
	UnusedFields          []string `json:"unused_fields"`
}

// Pair records one placeholder bound to one field.
type Pair struct {
	Placeholder string `json:"placeholder"`
	Field       string `json:"field"`
}

// HasGaps reports whether any placeholder went unmatched.
func (r Report) HasGaps() bool { return len(r.UnmatchedPlaceholders) > 0 }

// Normalize lowercases, trims, and collapses internal whitespace runs to
// a single space. Two names are considered the same field when their
// normalized forms are equal.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Build matches placeholder names against available field names.
// Both inputs keep their original spelling in the result; only the
// comparison is normalized. When several fields normalize to the same
// key the first one in input order wins.
func Build(placeholders, fields []string) (Mapping, Report) {
	byKey := make(map[string]string, len(fields))
	for _, f := range fields {
		key := Normalize(f)
		if _, ok := byKey[key]; !ok {
			byKey[key] = f
		}
	}

	m := make(Mapping, len(placeholders))
	var report Report
	used := make(map[string]bool, len(fields))

	seen := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		if seen[p] {
			continue
		}
		seen[p] = true

		field, ok := byKey[Normalize(p)]
		if !ok {
			report.UnmatchedPlaceholders = append(report.UnmatchedPlaceholders, p)
			continue
		}
		m[p] = field
		used[field] = true
		report.Matched = append(report.Matched, Pair{Placeholder: p, Field: field})
	}

	for _, f := range fields {
		if !used[f] {
			report.UnusedFields = append(report.UnusedFields, f)
		}
	}

	sort.Slice(report.Matched, func(i, j int) bool {
		return report.Matched[i].Placeholder < report.Matched[j].Placeholder
	})
	sort.Strings(report.UnmatchedPlaceholders)
	sort.Strings(report.UnusedFields)

	return m, report
}
