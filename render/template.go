// Package render produces finished certificate documents from an
// analyzed template: placeholder regions are masked and redrawn with
// substituted values in the recovered style, and a verification symbol
// is stamped at a corner anchor.
package render

import (
	"github.com/lvillar/certkit/scanner"
)

// Template is an analyzed template: the original bytes plus the scanned
// placeholder list and page geometry. It is immutable and safe to share
// across concurrent renders.
type Template struct {
	data         []byte
	placeholders []scanner.Placeholder
	pages        []pageDims
}

type pageDims struct {
	w, h float64
}

// LoadTemplate parses and scans a template document once. The returned
// Template backs any number of renders.
func LoadTemplate(data []byte) (*Template, error) {
	doc, err := scanner.Parse(data)
	if err != nil {
		return nil, err
	}
	phs, err := doc.ScanPlaceholders()
	if err != nil {
		return nil, err
	}

	pages := make([]pageDims, doc.NumPages())
	for i := range pages {
		page, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		pages[i] = pageDims{w: page.MediaBox.Width(), h: page.MediaBox.Height()}
	}

	// Keep a private copy so later caller mutations cannot skew renders.
	cp := make([]byte, len(data))
	copy(cp, data)

	return &Template{data: cp, placeholders: phs, pages: pages}, nil
}

// Placeholders returns the scanned placeholder sequence.
func (t *Template) Placeholders() []scanner.Placeholder {
	return t.placeholders
}

// PlaceholderNames returns the distinct placeholder names in scan order.
func (t *Template) PlaceholderNames() []string {
	seen := make(map[string]bool, len(t.placeholders))
	var names []string
	for _, p := range t.placeholders {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	return names
}

// NumPages returns the template's page count.
func (t *Template) NumPages() int {
	return len(t.pages)
}
