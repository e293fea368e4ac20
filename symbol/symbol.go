// Package symbol renders verification payloads as scannable 2D symbol
// images suitable for embedding into a finished document.
package symbol

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/ruudk/golang-pdf417"
	xdraw "golang.org/x/image/draw"

	"github.com/lvillar/certkit"
)

// Format selects the symbology.
type Format string

const (
	FormatQR     Format = "qr"
	FormatPDF417 Format = "pdf417"
)

// Valid reports whether f names a supported symbology.
func (f Format) Valid() bool {
	return f == FormatQR || f == FormatPDF417
}

// pixelSize is the edge length of the generated square image. The
// renderer scales it down to page dimensions, so it only needs enough
// resolution to stay crisp at print size.
const pixelSize = 512

const (
	pdf417Columns  = 4
	pdf417Security = 4
)

// EncodeQR renders text as a QR symbol with the highest error
// correction level, so the symbol survives print artifacts and partial
// occlusion by overlaid captions.
func EncodeQR(text string) (image.Image, error) {
	code, err := qr.Encode(text, qr.H, qr.Auto)
	if err != nil {
		return nil, certkit.NewError("symbol.EncodeQR", fmt.Errorf("%w: %v", certkit.ErrSymbolEncode, err))
	}
	scaled, err := barcode.Scale(code, pixelSize, pixelSize)
	if err != nil {
		return nil, certkit.NewError("symbol.EncodeQR", fmt.Errorf("%w: %v", certkit.ErrSymbolEncode, err))
	}
	return scaled, nil
}

// EncodePDF417 renders text as a PDF417 symbol centered on a white
// square, so both symbologies drop into the same square slot on the
// page.
func EncodePDF417(text string) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = certkit.NewError("symbol.EncodePDF417", fmt.Errorf("%w: %v", certkit.ErrSymbolEncode, r))
		}
	}()

	code := pdf417.Encode(text, pdf417Columns, pdf417Security)

	dst := image.NewRGBA(image.Rect(0, 0, pixelSize, pixelSize))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	// PDF417 is wide and short. Fit by width and center vertically.
	bounds := code.Bounds()
	ratio := float64(bounds.Dy()) / float64(bounds.Dx())
	h := int(float64(pixelSize) * ratio)
	if h < 1 {
		h = 1
	}
	if h > pixelSize {
		h = pixelSize
	}
	top := (pixelSize - h) / 2
	target := image.Rect(0, top, pixelSize, top+h)
	xdraw.NearestNeighbor.Scale(dst, target, code, bounds, xdraw.Src, nil)

	return dst, nil
}

// Encode renders text in the requested format and returns PNG bytes.
func Encode(format Format, text string) ([]byte, error) {
	if text == "" {
		return nil, certkit.NewError("symbol.Encode", fmt.Errorf("%w: empty payload", certkit.ErrSymbolEncode))
	}

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatPDF417:
		img, err = EncodePDF417(text)
	case FormatQR, "":
		img, err = EncodeQR(text)
	default:
		return nil, certkit.NewError("symbol.Encode", fmt.Errorf("%w: unknown format %q", certkit.ErrSymbolEncode, format))
	}
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// EncodePNG serializes an image to 8-bit PNG bytes. Barcode images
// report 16-bit grayscale, which PDF embedders reject, so anything that
// is not already 8-bit RGBA is redrawn first.
func EncodePNG(img image.Image) ([]byte, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		xdraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, xdraw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, certkit.NewError("symbol.EncodePNG", fmt.Errorf("%w: %v", certkit.ErrSymbolEncode, err))
	}
	return buf.Bytes(), nil
}
