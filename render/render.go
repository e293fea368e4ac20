package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/scanner"
)

// maskPadPt enlarges the opaque patch beyond the placeholder box on each
// side, so no glyph fringes survive the mask.
const maskPadPt = 1.0

// Caption style under the verification symbol.
const (
	captionSizePt = 8.0
	captionGray   = 77 // 0.3 in 8-bit
	captionGapPt  = 10.0
)

// Signature image footprint, matching the fixed slot certificates
// reserve for a handwritten signature overlay.
const (
	signatureWidthPt  = 150.0
	signatureHeightPt = 60.0
	signatureMarginPt = 30.0
)

// Overflow reports one application of the shrink/truncate policy.
type Overflow struct {
	Placeholder string
	PageIndex   int
	FromSizePt  float64
	ToSizePt    float64
	Truncated   bool
}

// Result is one finished document plus its per-render diagnostics.
type Result struct {
	PDF       []byte
	Overflows []Overflow
}

// Renderer draws substituted values over a shared immutable Template.
// Each Render call builds its own document and page importer, so a
// single Renderer may be used from many goroutines at once.
type Renderer struct {
	tmpl *Template
	opts certkit.Options
}

// NewRenderer pairs a template with rendering options.
func NewRenderer(tmpl *Template, opts certkit.Options) *Renderer {
	return &Renderer{tmpl: tmpl, opts: opts}
}

// Render produces one finished document. values maps placeholder names
// to the text to substitute; placeholders without an entry keep their
// literal token visible so mapping gaps stay detectable in the output.
// symbolPNG is stamped at the configured corner of the last page with
// an "ID: <certID>" caption beneath it.
func (r *Renderer) Render(values map[string]string, symbolPNG []byte, certID string) (res *Result, err error) {
	// The page importer reports unreadable input by panicking.
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = certkit.NewError("render.Render", fmt.Errorf("%w: importing template: %v", certkit.ErrTemplateParse, p))
		}
	}()

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	imp := gofpdi.NewImporter()
	res = &Result{}

	for pageIdx, dims := range r.tmpl.pages {
		var rs io.ReadSeeker = bytes.NewReader(r.tmpl.data)
		tplID := imp.ImportPageFromStream(pdf, &rs, pageIdx+1, "/MediaBox")

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: dims.w, Ht: dims.h})
		imp.UseImportedTemplate(pdf, tplID, 0, 0, dims.w, dims.h)

		for _, ph := range r.tmpl.placeholders {
			if ph.PageIndex != pageIdx {
				continue
			}
			value, ok := values[ph.Name]
			if !ok {
				continue // mapping gap: leave the token visible
			}
			ov := r.substitute(pdf, tr, ph, value, dims)
			if ov != nil {
				res.Overflows = append(res.Overflows, *ov)
			}
		}

		if pageIdx == len(r.tmpl.pages)-1 {
			if len(symbolPNG) > 0 {
				r.stampSymbol(pdf, symbolPNG, certID, dims)
			}
			if len(r.opts.SignatureImage) > 0 {
				r.stampSignature(pdf, dims)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, certkit.NewError("render.Render", err)
	}
	res.PDF = buf.Bytes()
	return res, nil
}

// substitute masks one placeholder region and draws the value at the
// original baseline in the recovered style. Returns a non-nil Overflow
// when the shrink/truncate policy fired.
func (r *Renderer) substitute(pdf *gofpdf.Fpdf, tr func(string) string, ph scanner.Placeholder, value string, dims pageDims) *Overflow {
	// Template coordinates have the origin at the bottom-left corner;
	// drawing coordinates run top-down.
	maskX := ph.BBox.X0 - maskPadPt
	maskY := dims.h - ph.BBox.Y1 - maskPadPt
	pdf.SetFillColor(255, 255, 255)
	pdf.Rect(maskX, maskY, ph.BBox.Width()+2*maskPadPt, ph.BBox.Height()+2*maskPadPt, "F")

	if value == "" {
		return nil
	}

	family, styleStr := coreFont(ph.Style)
	size := ph.Style.SizePt
	pdf.SetFont(family, styleStr, size)
	pdf.SetTextColor(int(ph.Style.Color.R), int(ph.Style.Color.G), int(ph.Style.Color.B))

	text := tr(value)
	var ov *Overflow

	// Shrink when the value would run far past the original region,
	// then truncate at the size floor. Zero-width boxes (degenerate
	// fallback entries) skip the policy.
	if maxW := ph.BBox.Width() * r.opts.OverflowThreshold; maxW > 0 {
		if w := pdf.GetStringWidth(text); w > maxW {
			newSize := size * maxW / w
			if newSize < r.opts.MinFontSizePt {
				newSize = r.opts.MinFontSizePt
			}
			pdf.SetFontSize(newSize)
			ov = &Overflow{
				Placeholder: ph.Name,
				PageIndex:   ph.PageIndex,
				FromSizePt:  size,
				ToSizePt:    newSize,
			}
			size = newSize

			if pdf.GetStringWidth(text) > maxW {
				text = truncateToWidth(pdf, text, maxW)
				ov.Truncated = true
			}
		}
	}

	baseline := (dims.h - ph.BBox.Y1) + size*0.78
	pdf.Text(ph.BBox.X0, baseline, text)
	return ov
}

// truncateToWidth cuts text rune by rune until it fits maxW with a
// trailing ellipsis.
func truncateToWidth(pdf *gofpdf.Fpdf, text string, maxW float64) string {
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if pdf.GetStringWidth(candidate) <= maxW {
			return candidate
		}
	}
	return string(runes[:1]) + ellipsis
}

// coreFont maps a recovered font family onto the built-in core set.
// Anything that is not recognizably a serif or monospace face renders
// as Helvetica.
func coreFont(st scanner.Style) (family, styleStr string) {
	lower := strings.ToLower(st.Family)
	switch {
	case strings.Contains(lower, "times") || strings.Contains(lower, "serif") && !strings.Contains(lower, "sans"):
		family = "Times"
	case strings.Contains(lower, "courier") || strings.Contains(lower, "mono"):
		family = "Courier"
	default:
		family = "Helvetica"
	}
	if st.Bold {
		styleStr += "B"
	}
	if st.Italic {
		styleStr += "I"
	}
	return family, styleStr
}

// stampSymbol draws the verification symbol at the configured corner and
// the certificate id caption beneath it.
func (r *Renderer) stampSymbol(pdf *gofpdf.Fpdf, symbolPNG []byte, certID string, dims pageDims) {
	size := r.opts.SymbolScale * dims.w
	margin := r.opts.SymbolMarginPt
	x, y := anchorXY(r.opts.SymbolPosition, dims, size, size, margin)

	name := "symbol-" + certID
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(symbolPNG))
	pdf.ImageOptions(name, x, y, size, size, false, opts, 0, "")

	if certID != "" {
		pdf.SetFont("Helvetica", "", captionSizePt)
		pdf.SetTextColor(captionGray, captionGray, captionGray)
		pdf.Text(x, y+size+captionGapPt, "ID: "+certID)
	}
}

// stampSignature overlays the configured signature image in its fixed
// slot near the chosen corner.
func (r *Renderer) stampSignature(pdf *gofpdf.Fpdf, dims pageDims) {
	x, y := anchorXY(r.opts.SignaturePosition, dims, signatureWidthPt, signatureHeightPt, signatureMarginPt)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(r.opts.SignatureImage))
	pdf.ImageOptions("signature", x, y, signatureWidthPt, signatureHeightPt, false, opts, 0, "")
}

// anchorXY resolves a corner anchor to top-left drawing coordinates for
// a box of the given size at the given margin.
func anchorXY(pos certkit.SymbolPosition, dims pageDims, w, h, margin float64) (x, y float64) {
	switch pos {
	case certkit.TopLeft:
		return margin, margin
	case certkit.TopRight:
		return dims.w - w - margin, margin
	case certkit.BottomLeft:
		return margin, dims.h - h - margin
	default: // bottom-right
		return dims.w - w - margin, dims.h - h - margin
	}
}
