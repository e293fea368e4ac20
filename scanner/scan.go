package scanner

import (
	"regexp"
	"sort"
	"strings"
)

// ExtractionStatus is the confidence level of a recovered placeholder style.
type ExtractionStatus int

const (
	// StatusExact means the active font carries a reproducible program,
	// embedded or standard, and the nominal size was taken from the
	// text state.
	StatusExact ExtractionStatus = iota
	// StatusApproximate means geometry is known at the real size but the
	// style is a guess: the named face has no embedded program, or the
	// font reference could not be resolved at all.
	StatusApproximate
	// StatusFallback means neither style nor a single-line span was
	// reliable; the documented default style is used.
	StatusFallback
)

func (s ExtractionStatus) String() string {
	switch s {
	case StatusExact:
		return "exact"
	case StatusApproximate:
		return "approximate"
	case StatusFallback:
		return "fallback"
	}
	return "unknown"
}

// FallbackFamily is the default font family used when the template's font
// cannot be recovered.
const FallbackFamily = "Helvetica"

// fallbackSize is used when no nominal size is in effect at all.
const fallbackSize = 12.0

// Style is the recovered visual style of a placeholder.
type Style struct {
	Family string
	SizePt float64
	Color  RGB
	Bold   bool
	Italic bool
}

// DefaultStyle returns the documented fallback style: a standard
// sans-serif family, black, at the given size.
func DefaultStyle(sizePt float64) Style {
	return Style{Family: FallbackFamily, SizePt: sizePt}
}

// Placeholder is a delimited token found in the template, with its page,
// bounding region and best-effort style. Identity is (Name, PageIndex,
// BBox); names are case-preserving and matched case-insensitively
// downstream. The sequence returned by a scan is immutable.
type Placeholder struct {
	Name      string
	PageIndex int
	BBox      Rect
	Style     Style
	Status    ExtractionStatus
}

// Token returns the literal placeholder token, e.g. "{{Name}}".
func (p Placeholder) Token() string {
	return "{{" + p.Name + "}}"
}

var (
	placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)
	openFragRe    = regexp.MustCompile(`\{\{(\w*)$`)
	closeFragRe   = regexp.MustCompile(`^(\w*)\}\}`)
)

// ScanTemplate parses a template document and scans every page for
// placeholders. The result is deterministic for byte-identical input:
// ordered by page, then top-to-bottom, then left-to-right.
func ScanTemplate(data []byte) ([]Placeholder, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.ScanPlaceholders()
}

// ScanPlaceholders scans all pages of an already-parsed document.
// A template with zero placeholders scans successfully and returns an
// empty slice; downstream rendering then reduces to symbol-only stamping.
func (d *Document) ScanPlaceholders() ([]Placeholder, error) {
	var out []Placeholder
	for _, page := range d.pages {
		phs, err := page.scan()
		if err != nil {
			return nil, err
		}
		out = append(out, phs...)
	}
	return out, nil
}

// Text returns the page's visible text, one string per baseline group,
// ordered top to bottom. Useful for inspecting rendered output.
func (p *Page) Text() (string, error) {
	content, err := p.ContentStream()
	if err != nil {
		return "", err
	}
	lines := groupLines(extractRuns(content))
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(ln.text)
	}
	return b.String(), nil
}

// line is a baseline group of runs, ordered left to right.
type line struct {
	runs    []textRun
	text    string // concatenated run text
	offsets []int  // byte offset of each run within text
}

// baselineTolerance is the vertical distance within which two runs are
// considered to sit on the same text line.
const baselineTolerance = 2.0

// scan finds placeholders on one page. Placeholders split across multiple
// runs (kerning, span breaks) are reassembled per line before matching.
// A token that opens on one line and closes on the next yields a Fallback
// entry anchored at the first line; multi-line placeholders are otherwise
// unsupported.
func (p *Page) scan() ([]Placeholder, error) {
	content, err := p.ContentStream()
	if err != nil {
		return nil, err
	}
	lines := groupLines(extractRuns(content))

	var out []Placeholder
	for i, ln := range lines {
		for _, m := range placeholderRe.FindAllStringSubmatchIndex(ln.text, -1) {
			out = append(out, p.placeholderAt(ln, m[0], m[1], ln.text[m[2]:m[3]], false))
		}

		// A trailing "{{frag" closed at the start of the next line.
		if open := openFragRe.FindStringSubmatchIndex(ln.text); open != nil && i+1 < len(lines) {
			if cl := closeFragRe.FindStringSubmatch(lines[i+1].text); cl != nil {
				name := ln.text[open[2]:open[3]] + cl[1]
				if name != "" {
					out = append(out, p.placeholderAt(ln, open[0], len(ln.text), name, true))
				}
			}
		}
	}
	return out, nil
}

// placeholderAt builds a Placeholder for the token occupying byte range
// [start, end) of a line.
func (p *Page) placeholderAt(ln line, start, end int, name string, multiline bool) Placeholder {
	var styleRun *textRun
	var bbox Rect
	first := true

	for idx, run := range ln.runs {
		runStart := ln.offsets[idx]
		runEnd := runStart + len(run.text)
		if runEnd <= start || runStart >= end {
			continue
		}
		if styleRun == nil {
			r := run
			styleRun = &r
		}
		box := runBox(run)
		// Clip to the token's share of the run, so surrounding literal
		// text on the same run is excluded from the bounding box.
		if n := len(run.text); n > 0 {
			charW := run.width / float64(n)
			s, e := start, end
			if s < runStart {
				s = runStart
			}
			if e > runEnd {
				e = runEnd
			}
			box.X0 = run.x + float64(s-runStart)*charW
			box.X1 = run.x + float64(e-runStart)*charW
		}
		if first {
			bbox = box
			first = false
		} else {
			bbox = bbox.union(box)
		}
	}

	ph := Placeholder{Name: name, PageIndex: p.Index, BBox: bbox}

	if multiline || styleRun == nil || !styleRun.hasFont {
		size := fallbackSize
		if styleRun != nil && styleRun.size > 0 {
			size = styleRun.size
		} else if bbox.Height() > 0 {
			size = bbox.Height()
		}
		ph.Style = DefaultStyle(size)
		ph.Status = StatusFallback
		return ph
	}

	ph.Style = Style{SizePt: styleRun.size, Color: styleRun.color}
	if fi, ok := p.resolveFont(styleRun.fontRes); ok {
		ph.Style.Family = fi.family
		ph.Style.Bold = fi.bold
		ph.Style.Italic = fi.italic
		// Exact needs a font program the output can reproduce: either
		// embedded in the document or one of the standard faces every
		// reader carries. A bare BaseFont name is a guessed style.
		if fi.embedded || standardFamily(fi.family) {
			ph.Status = StatusExact
		} else {
			ph.Status = StatusApproximate
		}
	} else {
		ph.Style.Family = FallbackFamily
		ph.Status = StatusApproximate
	}
	return ph
}

// runBox estimates a run's bounding box from its baseline origin, size and
// estimated advance. Ascent and descent are approximated as fixed
// fractions of the size.
func runBox(r textRun) Rect {
	return Rect{
		X0: r.x,
		Y0: r.y - 0.2*r.size,
		X1: r.x + r.width,
		Y1: r.y + 0.8*r.size,
	}
}

// groupLines sorts runs top-to-bottom, left-to-right and groups them by
// baseline. Runs within baselineTolerance of a line's baseline join it.
func groupLines(runs []textRun) []line {
	sorted := make([]textRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if d := sorted[i].y - sorted[j].y; d > baselineTolerance || d < -baselineTolerance {
			return sorted[i].y > sorted[j].y // higher on the page first
		}
		return sorted[i].x < sorted[j].x
	})

	var lines []line
	for _, run := range sorted {
		if n := len(lines); n > 0 {
			last := &lines[n-1]
			ref := last.runs[0].y
			if run.y >= ref-baselineTolerance && run.y <= ref+baselineTolerance {
				last.offsets = append(last.offsets, len(last.text))
				last.text += run.text
				last.runs = append(last.runs, run)
				continue
			}
		}
		lines = append(lines, line{
			runs:    []textRun{run},
			text:    run.text,
			offsets: []int{0},
		})
	}
	return lines
}
