package scanner

import (
	"math"
	"strings"
	"unicode/utf16"
)

// RGB is a fill color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// avgGlyphWidth is the assumed average glyph advance as a fraction of the
// font size. Exact advances require the font's width tables; for locating a
// placeholder's span a flat estimate is sufficient and keeps the scanner
// independent of font programs.
const avgGlyphWidth = 0.5

// textRun is one positioned text-showing operation from a content stream.
type textRun struct {
	text    string
	x, y    float64 // baseline origin, bottom-left page coordinates
	width   float64 // estimated advance in page units
	fontRes Name    // font resource name from Tf, e.g. "F1"
	size    float64 // effective size in page units
	color   RGB
	hasFont bool
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m x n (m applied first).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// apply transforms the point (x, y).
func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// vScale returns the vertical scale factor of the matrix.
func (m matrix) vScale() float64 {
	return math.Hypot(m[1], m[3])
}

// hScale returns the horizontal scale factor of the matrix.
func (m matrix) hScale() float64 {
	return math.Hypot(m[0], m[2])
}

// interpState is the graphics and text state tracked while walking a
// content stream. Only the subset that affects text geometry and fill
// color is interpreted; everything else is skipped.
type interpState struct {
	ctm      matrix
	ctmStack []matrix

	tm      matrix // text matrix
	tlm     matrix // text line matrix
	leading float64
	fontRes Name
	size    float64
	hasFont bool
	color   RGB
	inText  bool
}

// extractRuns interprets a decoded content stream and returns every
// text-showing operation with its resolved geometry.
func extractRuns(content []byte) []textRun {
	st := interpState{ctm: identity, tm: identity, tlm: identity}
	var runs []textRun

	p := newParser(content)
	var operands []Object

	for {
		p.skipWhitespace()
		b, ok := p.peek()
		if !ok {
			break
		}

		// Operands are regular PDF objects; anything else is an operator.
		if b == '(' || b == '<' || b == '[' || b == '/' ||
			(b >= '0' && b <= '9') || b == '+' || b == '-' || b == '.' {
			obj, err := p.parseObject()
			if err != nil {
				// Unparseable operand: resync on the next token.
				p.readToken()
				operands = operands[:0]
				continue
			}
			operands = append(operands, obj)
			continue
		}

		op := p.readToken()
		if op == "" {
			break
		}
		runs = st.exec(op, operands, runs)
		operands = operands[:0]
	}

	return runs
}

// exec applies a single operator to the state, appending text runs as
// they are shown.
func (st *interpState) exec(op string, args []Object, runs []textRun) []textRun {
	switch op {
	case "q":
		st.ctmStack = append(st.ctmStack, st.ctm)
	case "Q":
		if n := len(st.ctmStack); n > 0 {
			st.ctm = st.ctmStack[n-1]
			st.ctmStack = st.ctmStack[:n-1]
		}
	case "cm":
		if m, ok := argsMatrix(args); ok {
			st.ctm = m.mul(st.ctm)
		}

	case "BT":
		st.inText = true
		st.tm = identity
		st.tlm = identity
	case "ET":
		st.inText = false

	case "Tf":
		if len(args) == 2 {
			if name, ok := args[0].(Name); ok {
				st.fontRes = name
			}
			if sz, ok := numeric(args[1]); ok {
				st.size = sz
				st.hasFont = true
			}
		}
	case "TL":
		if len(args) == 1 {
			st.leading, _ = numeric(args[0])
		}
	case "Tm":
		if m, ok := argsMatrix(args); ok {
			st.tm = m
			st.tlm = m
		}
	case "Td":
		if len(args) == 2 {
			tx, _ := numeric(args[0])
			ty, _ := numeric(args[1])
			st.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(st.tlm)
			st.tm = st.tlm
		}
	case "TD":
		if len(args) == 2 {
			tx, _ := numeric(args[0])
			ty, _ := numeric(args[1])
			st.leading = -ty
			st.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(st.tlm)
			st.tm = st.tlm
		}
	case "T*":
		st.tlm = matrix{1, 0, 0, 1, 0, -st.leading}.mul(st.tlm)
		st.tm = st.tlm

	case "rg":
		if len(args) == 3 {
			st.color = rgbFromArgs(args)
		}
	case "g":
		if len(args) == 1 {
			if v, ok := numeric(args[0]); ok {
				c := clamp255(v)
				st.color = RGB{c, c, c}
			}
		}
	case "k":
		if len(args) == 4 {
			st.color = rgbFromCMYK(args)
		}
	case "sc", "scn":
		switch len(args) {
		case 1:
			if v, ok := numeric(args[0]); ok {
				c := clamp255(v)
				st.color = RGB{c, c, c}
			}
		case 3:
			st.color = rgbFromArgs(args)
		case 4:
			st.color = rgbFromCMYK(args)
		}

	case "Tj":
		if len(args) == 1 {
			if s, ok := args[0].(String); ok {
				runs = st.show(decodeText(s.Value), runs)
			}
		}
	case "'":
		st.tlm = matrix{1, 0, 0, 1, 0, -st.leading}.mul(st.tlm)
		st.tm = st.tlm
		if len(args) == 1 {
			if s, ok := args[0].(String); ok {
				runs = st.show(decodeText(s.Value), runs)
			}
		}
	case "\"":
		st.tlm = matrix{1, 0, 0, 1, 0, -st.leading}.mul(st.tlm)
		st.tm = st.tlm
		if len(args) == 3 {
			if s, ok := args[2].(String); ok {
				runs = st.show(decodeText(s.Value), runs)
			}
		}
	case "TJ":
		if len(args) == 1 {
			if arr, ok := args[0].(Array); ok {
				runs = st.showAdjusted(arr, runs)
			}
		}
	}
	return runs
}

// show emits one run at the current text position and advances the text
// matrix by the estimated width.
func (st *interpState) show(text string, runs []textRun) []textRun {
	if !st.inText || text == "" {
		return runs
	}
	trm := st.tm.mul(st.ctm)
	x, y := trm.apply(0, 0)
	size := st.size * trm.vScale()
	width := float64(len([]rune(text))) * st.size * avgGlyphWidth * trm.hScale()

	runs = append(runs, textRun{
		text:    text,
		x:       x,
		y:       y,
		width:   width,
		fontRes: st.fontRes,
		size:    size,
		color:   st.color,
		hasFont: st.hasFont,
	})

	st.tm = matrix{1, 0, 0, 1, float64(len([]rune(text))) * st.size * avgGlyphWidth, 0}.mul(st.tm)
	return runs
}

// showAdjusted handles a TJ array: strings interleaved with kerning
// adjustments in thousandths of the font size. Adjacent fragments are
// merged into a single run so a kerned placeholder survives matching.
func (st *interpState) showAdjusted(arr Array, runs []textRun) []textRun {
	if !st.inText {
		return runs
	}
	var text strings.Builder
	kerning := 0.0
	for _, item := range arr {
		switch v := item.(type) {
		case String:
			text.WriteString(decodeText(v.Value))
		case Integer, Real:
			adj, _ := numeric(v)
			kerning += -adj / 1000 * st.size
		}
	}
	runs = st.show(text.String(), runs)
	// Kerning adjustments move the pen without contributing glyphs.
	if kerning != 0 {
		st.tm = matrix{1, 0, 0, 1, kerning, 0}.mul(st.tm)
	}
	return runs
}

func argsMatrix(args []Object) (matrix, bool) {
	if len(args) != 6 {
		return identity, false
	}
	var m matrix
	for i, a := range args {
		v, ok := numeric(a)
		if !ok {
			return identity, false
		}
		m[i] = v
	}
	return m, true
}

func rgbFromArgs(args []Object) RGB {
	var c [3]uint8
	for i := 0; i < 3; i++ {
		if v, ok := numeric(args[i]); ok {
			c[i] = clamp255(v)
		}
	}
	return RGB{c[0], c[1], c[2]}
}

func rgbFromCMYK(args []Object) RGB {
	var cmyk [4]float64
	for i := 0; i < 4; i++ {
		cmyk[i], _ = numeric(args[i])
	}
	r := (1 - cmyk[0]) * (1 - cmyk[3])
	g := (1 - cmyk[1]) * (1 - cmyk[3])
	b := (1 - cmyk[2]) * (1 - cmyk[3])
	return RGB{clamp255(r), clamp255(g), clamp255(b)}
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// decodeText decodes a PDF string to UTF-8. UTF-16BE with a BOM is
// decoded properly; everything else is treated as Latin-1-compatible
// PDFDocEncoding, which covers the placeholder alphabet.
func decodeText(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return decodeUTF16BE(data[2:])
	}
	var buf strings.Builder
	for _, b := range data {
		buf.WriteRune(rune(b))
	}
	return buf.String()
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = append(data, 0)
	}
	u16s := make([]uint16, len(data)/2)
	for i := range u16s {
		u16s[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return string(utf16.Decode(u16s))
}
