package scanner

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
)

// decodeStream applies the filter chain from the stream dictionary.
func decodeStream(s Stream) ([]byte, error) {
	data := s.Data
	filter := s.Dict["Filter"]

	if filter == nil {
		return data, nil
	}

	// /Filter can be a single name or an array of names. /DecodeParms
	// follows the same shape, one entry per filter.
	var filters []Name
	var parms []Dict
	switch f := filter.(type) {
	case Name:
		filters = []Name{f}
		if d, ok := s.Dict["DecodeParms"].(Dict); ok {
			parms = []Dict{d}
		} else {
			parms = []Dict{nil}
		}
	case Array:
		parmArr, _ := s.Dict["DecodeParms"].(Array)
		for i, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("scanner: filter array contains non-name: %T", item)
			}
			filters = append(filters, n)
			var d Dict
			if i < len(parmArr) {
				d, _ = parmArr[i].(Dict)
			}
			parms = append(parms, d)
		}
	default:
		return nil, fmt.Errorf("scanner: unexpected filter type: %T", filter)
	}

	var err error
	for i, f := range filters {
		data, err = applyFilter(f, data)
		if err != nil {
			return nil, fmt.Errorf("scanner: applying filter /%s: %w", f, err)
		}
		if f == "FlateDecode" && parms[i] != nil {
			data, err = applyPredictor(parms[i], data)
			if err != nil {
				return nil, fmt.Errorf("scanner: predictor for /%s: %w", f, err)
			}
		}
	}
	return data, nil
}

// applyPredictor reverses PNG row prediction (predictors 10..15), used
// by most producers on xref streams. Predictor 1 (none) passes through;
// TIFF predictor 2 is not seen on the streams this package reads.
func applyPredictor(parms Dict, data []byte) ([]byte, error) {
	pred, ok := parms.GetInt("Predictor")
	if !ok || pred <= 1 {
		return data, nil
	}
	if pred < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", pred)
	}

	columns := int64(1)
	if v, ok := parms.GetInt("Columns"); ok {
		columns = v
	}
	colors := int64(1)
	if v, ok := parms.GetInt("Colors"); ok {
		colors = v
	}
	bpc := int64(8)
	if v, ok := parms.GetInt("BitsPerComponent"); ok {
		bpc = v
	}

	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	if rowLen <= 0 || (len(data)%(rowLen+1)) != 0 {
		return nil, fmt.Errorf("predictor row length %d does not divide %d bytes", rowLen+1, len(data))
	}

	rows := len(data) / (rowLen + 1)
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		tag := data[r*(rowLen+1)]
		row := make([]byte, rowLen)
		copy(row, data[r*(rowLen+1)+1:(r+1)*(rowLen+1)])

		for i := 0; i < rowLen; i++ {
			var left, up, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up = prev[i]

			switch tag {
			case 0: // None
			case 1: // Sub
				row[i] += left
			case 2: // Up
				row[i] += up
			case 3: // Average
				row[i] += byte((int(left) + int(up)) / 2)
			case 4: // Paeth
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter tag %d", tag)
			}
		}

		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func applyFilter(name Name, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode":
		return flateDecode(data)
	case "ASCIIHexDecode":
		return asciiHexDecode(data)
	case "ASCII85Decode":
		return ascii85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", name)
	}
}

func flateDecode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib init: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return buf.Bytes(), nil
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var clean bytes.Buffer
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isWhitespace(b) {
			clean.WriteByte(b)
		}
	}

	src := clean.Bytes()
	if len(src)%2 != 0 {
		src = append(src, '0')
	}

	dst := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(dst, src); err != nil {
		return nil, fmt.Errorf("ascii hex decode: %w", err)
	}
	return dst, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}

	decoder := ascii85.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, decoder); err != nil {
		return nil, fmt.Errorf("ascii85 decode: %w", err)
	}
	return buf.Bytes(), nil
}
