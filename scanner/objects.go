// Package scanner locates {{placeholder}} tokens inside a PDF certificate
// template and recovers their exact visual style: bounding region, font
// family, nominal size and fill color. It carries its own minimal PDF
// reader (object model, xref, filters, page tree) so no style metadata
// beyond the document itself is required.
package scanner

// Object is the interface satisfied by all PDF object types.
// The unexported method prevents external types from implementing it.
type Object interface {
	pdfObject()
}

// Null represents the PDF null object.
type Null struct{}

func (Null) pdfObject() {}

// Boolean represents a PDF boolean value.
type Boolean bool

func (Boolean) pdfObject() {}

// Integer represents a PDF integer value.
type Integer int64

func (Integer) pdfObject() {}

// Real represents a PDF real (floating-point) value.
type Real float64

func (Real) pdfObject() {}

// Name represents a PDF name object (e.g. /Type, /Font).
type Name string

func (Name) pdfObject() {}

// String represents a PDF string (literal or hexadecimal).
type String struct {
	Value []byte
	IsHex bool
}

func (String) pdfObject() {}

// Array represents a PDF array of objects.
type Array []Object

func (Array) pdfObject() {}

// Dict represents a PDF dictionary mapping names to objects.
type Dict map[Name]Object

func (Dict) pdfObject() {}

// GetName returns the value of a name entry, or empty string if not found.
func (d Dict) GetName(key Name) Name {
	if v, ok := d[key]; ok {
		if n, ok := v.(Name); ok {
			return n
		}
	}
	return ""
}

// GetInt returns the value of an integer entry.
func (d Dict) GetInt(key Name) (int64, bool) {
	if v, ok := d[key]; ok {
		switch n := v.(type) {
		case Integer:
			return int64(n), true
		case Real:
			return int64(n), true
		}
	}
	return 0, false
}

// GetDict returns a sub-dictionary, or nil if not found.
func (d Dict) GetDict(key Name) Dict {
	if v, ok := d[key]; ok {
		if sub, ok := v.(Dict); ok {
			return sub
		}
	}
	return nil
}

// GetArray returns an array entry, or nil if not found.
func (d Dict) GetArray(key Name) Array {
	if v, ok := d[key]; ok {
		if arr, ok := v.(Array); ok {
			return arr
		}
	}
	return nil
}

// numeric converts an Integer or Real object to a float64.
func numeric(o Object) (float64, bool) {
	switch n := o.(type) {
	case Integer:
		return float64(n), true
	case Real:
		return float64(n), true
	}
	return 0, false
}

// Stream represents a PDF stream object (dictionary plus encoded data).
type Stream struct {
	Dict Dict
	Data []byte // raw data, possibly compressed
}

func (Stream) pdfObject() {}

// Reference represents an indirect object reference (e.g. "10 0 R").
type Reference struct {
	Number     int
	Generation int
}

func (Reference) pdfObject() {}

// IndirectObject represents a PDF indirect object definition
// ("10 0 obj ... endobj").
type IndirectObject struct {
	Reference
	Value Object
}

func (IndirectObject) pdfObject() {}
