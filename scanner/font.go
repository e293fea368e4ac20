package scanner

import (
	"regexp"
	"strings"
)

// subsetPrefixRe matches the "ABCDEF+" tag prepended to subset font names.
var subsetPrefixRe = regexp.MustCompile(`^[A-Z]{6}\+`)

// fontInfo is the visual style recovered from a page's font resource.
type fontInfo struct {
	family   string
	bold     bool
	italic   bool
	embedded bool // a font program is present in the document
}

// resolveFont resolves a Tf resource name (e.g. "F1") through the page's
// /Resources /Font dictionary to a family name and style flags.
func (p *Page) resolveFont(res Name) (fontInfo, bool) {
	if p.Resources == nil || res == "" {
		return fontInfo{}, false
	}

	fontsObj, err := p.doc.resolveIfRef(p.Resources["Font"])
	if err != nil {
		return fontInfo{}, false
	}
	fonts, ok := fontsObj.(Dict)
	if !ok {
		return fontInfo{}, false
	}

	fontObj, err := p.doc.resolveIfRef(fonts[res])
	if err != nil {
		return fontInfo{}, false
	}
	font, ok := fontObj.(Dict)
	if !ok {
		return fontInfo{}, false
	}

	base := string(font.GetName("BaseFont"))
	if base == "" {
		return fontInfo{}, false
	}
	base = subsetPrefixRe.ReplaceAllString(base, "")

	info := fontInfo{family: baseFamily(base)}
	lower := strings.ToLower(base)
	info.bold = strings.Contains(lower, "bold")
	info.italic = strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")

	if descObj, err := p.doc.resolveIfRef(font["FontDescriptor"]); err == nil {
		if desc, ok := descObj.(Dict); ok {
			for _, key := range []Name{"FontFile", "FontFile2", "FontFile3"} {
				if _, present := desc[key]; present {
					info.embedded = true
					break
				}
			}
		}
	}

	if info.family == "" {
		return fontInfo{}, false
	}
	return info, true
}

// standardFamily reports whether family is one of the base-14 faces a
// PDF reader renders without an embedded font program.
func standardFamily(family string) bool {
	switch family {
	case "Helvetica", "Courier", "Times", "Symbol", "ZapfDingbats":
		return true
	}
	return false
}

// baseFamily strips the style suffix from a BaseFont name:
// "Helvetica-BoldOblique" -> "Helvetica", "Garet-Bold" -> "Garet".
func baseFamily(base string) string {
	if idx := strings.IndexAny(base, "-,"); idx > 0 {
		return base[:idx]
	}
	return base
}
