package certkit

// SymbolPosition is a corner anchor for the verification symbol.
type SymbolPosition string

// Corner anchors accepted by WithSymbolPosition.
const (
	BottomRight SymbolPosition = "bottom-right"
	BottomLeft  SymbolPosition = "bottom-left"
	TopRight    SymbolPosition = "top-right"
	TopLeft     SymbolPosition = "top-left"
)

// Valid reports whether p is a known corner anchor.
func (p SymbolPosition) Valid() bool {
	switch p {
	case BottomRight, BottomLeft, TopRight, TopLeft:
		return true
	}
	return false
}

// Options configures rendering and batch issuance. The zero value is not
// usable; obtain one via DefaultOptions or NewOptions.
type Options struct {
	// SymbolPosition is the corner the verification symbol is anchored to.
	SymbolPosition SymbolPosition

	// SymbolScale is the symbol edge length as a fraction of page width.
	SymbolScale float64

	// SymbolMarginPt is the distance from the page edges, in points.
	SymbolMarginPt float64

	// OverflowThreshold is the factor of the original placeholder width a
	// substituted value may occupy before the shrink policy kicks in.
	OverflowThreshold float64

	// MinFontSizePt is the floor for the shrink policy. Below it the value
	// is truncated instead.
	MinFontSizePt float64

	// MaxIDAttempts bounds id regeneration after duplicate-key rejections.
	MaxIDAttempts int

	// Workers is the size of the per-row worker pool. Zero means GOMAXPROCS.
	Workers int

	// SignatureImage, when non-nil, is a PNG overlaid on each output page
	// at SignaturePosition.
	SignatureImage    []byte
	SignaturePosition SymbolPosition
}

// DefaultOptions returns the documented defaults: symbol at the bottom-right
// corner, 12% of page width, 20pt margin, 1.5x overflow threshold, 4pt
// shrink floor, 5 id attempts.
func DefaultOptions() Options {
	return Options{
		SymbolPosition:    BottomRight,
		SymbolScale:       0.12,
		SymbolMarginPt:    20,
		OverflowThreshold: 1.5,
		MinFontSizePt:     4,
		MaxIDAttempts:     5,
		SignaturePosition: BottomLeft,
	}
}

// Option is a functional option applied on top of DefaultOptions.
type Option func(*Options)

// NewOptions builds an Options from the defaults plus the given options.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSymbolPosition sets the corner anchor for the verification symbol.
// Unknown anchors are ignored and the default kept.
func WithSymbolPosition(p SymbolPosition) Option {
	return func(o *Options) {
		if p.Valid() {
			o.SymbolPosition = p
		}
	}
}

// WithSymbolScale sets the symbol size as a fraction of page width.
func WithSymbolScale(scale float64) Option {
	return func(o *Options) {
		if scale > 0 && scale <= 0.5 {
			o.SymbolScale = scale
		}
	}
}

// WithOverflowThreshold sets the width factor beyond which substituted text
// is shrunk to fit. The threshold is deliberately configurable; the default
// constant is not load-bearing.
func WithOverflowThreshold(factor float64) Option {
	return func(o *Options) {
		if factor >= 1 {
			o.OverflowThreshold = factor
		}
	}
}

// WithMaxIDAttempts bounds certificate id regeneration on duplicate keys.
func WithMaxIDAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxIDAttempts = n
		}
	}
}

// WithWorkers sets the per-row worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithSignatureImage overlays the given PNG on every output at the given
// anchor, e.g. a scanned handwritten signature.
func WithSignatureImage(png []byte, p SymbolPosition) Option {
	return func(o *Options) {
		o.SignatureImage = png
		if p.Valid() {
			o.SignaturePosition = p
		}
	}
}
