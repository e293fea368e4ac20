package scanner

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	certkit "github.com/lvillar/certkit"
)

// Document is a parsed PDF template.
type Document struct {
	Version string // from the file header, e.g. "1.7"
	xref    xrefTable
	trailer Dict
	data    []byte
	pages   []*Page
}

// Open parses a PDF template from disk.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("scanner: opening %s: %w", filename, err)
	}
	return Parse(data)
}

// ReadFrom parses a PDF template from a reader. The content is read
// entirely into memory for random access.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("scanner: reading input: %w", err)
	}
	return Parse(data)
}

// Parse builds a Document from raw PDF bytes. Encrypted documents are
// rejected: a certificate template has no business being encrypted, and
// the scanner does not carry decryption machinery.
func Parse(data []byte) (*Document, error) {
	doc := &Document{data: data}
	doc.Version = parseVersion(data)
	if doc.Version == "" {
		return nil, fmt.Errorf("%w: missing %%PDF header", certkit.ErrTemplateParse)
	}

	startXRef, err := findStartXRef(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", certkit.ErrTemplateParse, err)
	}

	xref, trailer, err := parseXRefTable(data, startXRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", certkit.ErrTemplateParse, err)
	}
	doc.xref = xref
	doc.trailer = trailer

	if _, encrypted := trailer["Encrypt"]; encrypted {
		return nil, certkit.ErrTemplateEncrypted
	}

	if err := doc.buildPageList(); err != nil {
		return nil, fmt.Errorf("%w: %v", certkit.ErrTemplateParse, err)
	}
	return doc, nil
}

// parseVersion extracts the PDF version from the "%PDF-1.7" header.
func parseVersion(data []byte) string {
	if len(data) < 8 {
		return ""
	}
	header := string(data[:min(20, len(data))])
	if idx := strings.Index(header, "%PDF-"); idx >= 0 {
		end := idx + 5
		for end < len(header) && header[end] != '\n' && header[end] != '\r' {
			end++
		}
		return header[idx+5 : end]
	}
	return ""
}

// NumPages returns the number of pages in the template.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page at the given 0-based index.
func (d *Document) Page(idx int) (*Page, error) {
	if idx < 0 || idx >= len(d.pages) {
		return nil, fmt.Errorf("scanner: page index %d out of range [0, %d)", idx, len(d.pages))
	}
	return d.pages[idx], nil
}

// resolve resolves an indirect reference to the actual object.
func (d *Document) resolve(ref Reference) (Object, error) {
	entry, ok := d.xref[ref.Number]
	if !ok || !entry.InUse {
		return Null{}, nil
	}

	if entry.Compressed {
		return d.resolveCompressed(ref.Number, int(entry.Offset))
	}

	if entry.Offset < 0 || int(entry.Offset) >= len(d.data) {
		return nil, fmt.Errorf("scanner: object %d offset %d out of bounds", ref.Number, entry.Offset)
	}

	p := newParser(d.data[entry.Offset:])
	obj, err := p.parseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("scanner: parsing object %d: %w", ref.Number, err)
	}
	return obj.Value, nil
}

// resolveCompressed looks up an object stored inside an object stream
// (/Type /ObjStm). The stream body starts with N pairs of
// "objnum offset" integers, offsets relative to /First.
func (d *Document) resolveCompressed(objNum, streamNum int) (Object, error) {
	container, err := d.resolve(Reference{Number: streamNum})
	if err != nil {
		return nil, fmt.Errorf("scanner: object stream %d: %w", streamNum, err)
	}
	stream, ok := container.(Stream)
	if !ok {
		return nil, fmt.Errorf("scanner: object %d is not an object stream", streamNum)
	}

	decoded, err := decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("scanner: decoding object stream %d: %w", streamNum, err)
	}

	n, _ := stream.Dict.GetInt("N")
	first, _ := stream.Dict.GetInt("First")

	p := newParser(decoded)
	for i := int64(0); i < n; i++ {
		p.skipWhitespace()
		numTok := p.readToken()
		p.skipWhitespace()
		offTok := p.readToken()

		num, err := strconv.Atoi(numTok)
		if err != nil {
			return nil, fmt.Errorf("scanner: object stream %d index: %w", streamNum, err)
		}
		if num != objNum {
			continue
		}

		off, err := strconv.ParseInt(offTok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scanner: object stream %d offset: %w", streamNum, err)
		}
		pos := first + off
		if pos < 0 || pos >= int64(len(decoded)) {
			return nil, fmt.Errorf("scanner: object %d offset %d beyond stream %d", objNum, pos, streamNum)
		}

		op := newParser(decoded[pos:])
		op.skipWhitespace()
		return op.parseObject()
	}
	return nil, fmt.Errorf("scanner: object %d not found in object stream %d", objNum, streamNum)
}

// resolveIfRef resolves obj if it is a Reference, else returns it as-is.
func (d *Document) resolveIfRef(obj Object) (Object, error) {
	if ref, ok := obj.(Reference); ok {
		return d.resolve(ref)
	}
	return obj, nil
}

// Rect is an axis-aligned rectangle in document units, bottom-left origin.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// union returns the smallest rectangle covering both r and o.
func (r Rect) union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Page is a single template page.
type Page struct {
	Index     int // 0-based
	MediaBox  Rect
	Resources Dict
	Contents  []Stream
	doc       *Document
}

// ContentStream returns the decompressed, concatenated content stream data.
func (p *Page) ContentStream() ([]byte, error) {
	var result []byte
	for _, s := range p.Contents {
		decoded, err := decodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("scanner: decoding page %d content: %w", p.Index, err)
		}
		result = append(result, decoded...)
		result = append(result, '\n')
	}
	return result, nil
}

// parseRect parses a PDF rectangle array [llx lly urx ury].
func parseRect(obj Object) (Rect, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) != 4 {
		return Rect{}, fmt.Errorf("scanner: rectangle must be a 4-element array")
	}
	vals := make([]float64, 4)
	for i, v := range arr {
		n, ok := numeric(v)
		if !ok {
			return Rect{}, fmt.Errorf("scanner: rectangle element %d is not numeric", i)
		}
		vals[i] = n
	}
	return Rect{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

// buildPageList traverses the page tree into a flat list of pages.
func (d *Document) buildPageList() error {
	catalog := d.trailer.GetDict("Root")
	if catalog == nil {
		rootRef, ok := d.trailer["Root"].(Reference)
		if !ok {
			return fmt.Errorf("scanner: missing /Root in trailer")
		}
		rootObj, err := d.resolve(rootRef)
		if err != nil {
			return fmt.Errorf("scanner: resolving root: %w", err)
		}
		catalog, ok = rootObj.(Dict)
		if !ok {
			return fmt.Errorf("scanner: /Root is not a dictionary")
		}
	}

	pagesObj, err := d.resolveIfRef(catalog["Pages"])
	if err != nil {
		return fmt.Errorf("scanner: resolving /Pages: %w", err)
	}
	pagesDict, ok := pagesObj.(Dict)
	if !ok {
		return fmt.Errorf("scanner: /Pages is not a dictionary")
	}

	d.pages = nil
	return d.traversePageTree(pagesDict, nil)
}

// traversePageTree recursively collects leaf pages, carrying inheritable
// attributes (/MediaBox, /Resources) down the tree.
func (d *Document) traversePageTree(node Dict, inherited Dict) error {
	merged := make(Dict)
	for k, v := range inherited {
		merged[k] = v
	}
	for _, key := range []Name{"MediaBox", "Resources"} {
		if v, ok := node[key]; ok {
			merged[key] = v
		}
	}

	if node.GetName("Type") == "Page" {
		page := &Page{Index: len(d.pages), doc: d}

		if mb, ok := merged["MediaBox"]; ok {
			if resolved, err := d.resolveIfRef(mb); err == nil {
				if rect, err := parseRect(resolved); err == nil {
					page.MediaBox = rect
				}
			}
		}

		if res, ok := merged["Resources"]; ok {
			if resolved, err := d.resolveIfRef(res); err == nil {
				if resDict, ok := resolved.(Dict); ok {
					page.Resources = resDict
				}
			}
		}

		if contents, ok := node["Contents"]; ok {
			resolved, err := d.resolveIfRef(contents)
			if err != nil {
				return fmt.Errorf("scanner: page %d contents: %w", page.Index, err)
			}
			switch c := resolved.(type) {
			case Stream:
				page.Contents = []Stream{c}
			case Array:
				for _, item := range c {
					streamObj, err := d.resolveIfRef(item)
					if err != nil {
						continue
					}
					if s, ok := streamObj.(Stream); ok {
						page.Contents = append(page.Contents, s)
					}
				}
			}
		}

		d.pages = append(d.pages, page)
		return nil
	}

	kids := node.GetArray("Kids")
	if kids == nil {
		if kidsObj, err := d.resolveIfRef(node["Kids"]); err == nil {
			kids, _ = kidsObj.(Array)
		}
	}

	for _, kid := range kids {
		kidObj, err := d.resolveIfRef(kid)
		if err != nil {
			return fmt.Errorf("scanner: resolving page tree kid: %w", err)
		}
		kidDict, ok := kidObj.(Dict)
		if !ok {
			continue
		}
		if err := d.traversePageTree(kidDict, merged); err != nil {
			return err
		}
	}
	return nil
}
