package scanner

import (
	"bytes"
	"fmt"
	"strconv"
)

// xrefEntry is a single cross-reference table entry. For compressed
// entries Offset holds the containing object stream's number and
// Generation its index within that stream.
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	Compressed bool
}

// xrefTable maps object numbers to their file offsets.
type xrefTable map[int]xrefEntry

// findStartXRef locates the "startxref" offset near the end of the file.
func findStartXRef(data []byte) (int64, error) {
	searchLen := 1024
	if len(data) < searchLen {
		searchLen = len(data)
	}
	tail := data[len(data)-searchLen:]

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("scanner: startxref not found")
	}

	p := newParser(tail[idx+len("startxref"):])
	p.skipWhitespace()
	tok := p.readToken()
	offset, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("scanner: invalid startxref offset %q: %w", tok, err)
	}
	return offset, nil
}

// parseXRefTable parses a classic cross-reference table at the given offset,
// following /Prev links for incremental updates. Falls through to xref
// streams (PDF 1.5+) when the "xref" keyword is absent.
func parseXRefTable(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, nil, fmt.Errorf("scanner: xref offset %d out of bounds", offset)
	}

	p := newParser(data[offset:])
	table := make(xrefTable)

	if tok := p.readToken(); tok != "xref" {
		return parseXRefStream(data, offset)
	}

	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}

		savedPos := p.pos
		if tok := p.readToken(); tok == "trailer" {
			break
		}
		p.pos = savedPos

		startTok := p.readToken()
		startObj, err := strconv.ParseInt(startTok, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("scanner: xref start obj %q: %w", startTok, err)
		}

		p.skipWhitespace()
		countTok := p.readToken()
		count, err := strconv.ParseInt(countTok, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("scanner: xref count %q: %w", countTok, err)
		}

		for i := int64(0); i < count; i++ {
			p.skipWhitespace()
			offsetTok := p.readToken()
			entryOffset, err := strconv.ParseInt(offsetTok, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("scanner: xref entry offset: %w", err)
			}

			p.skipWhitespace()
			genTok := p.readToken()
			gen, err := strconv.ParseInt(genTok, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("scanner: xref entry generation: %w", err)
			}

			p.skipWhitespace()
			typeTok := p.readToken()

			// First definition wins across incremental updates.
			objNum := int(startObj + i)
			if _, exists := table[objNum]; !exists {
				table[objNum] = xrefEntry{
					Offset:     entryOffset,
					Generation: int(gen),
					InUse:      typeTok == "n",
				}
			}
		}
	}

	p.skipWhitespace()
	obj, err := p.parseObject()
	if err != nil {
		return nil, nil, fmt.Errorf("scanner: trailer dict: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, nil, fmt.Errorf("scanner: trailer is not a dictionary")
	}

	if prevVal, ok := trailer.GetInt("Prev"); ok {
		prevTable, _, err := parseXRefTable(data, prevVal)
		if err != nil {
			return nil, nil, fmt.Errorf("scanner: previous xref: %w", err)
		}
		for num, entry := range prevTable {
			if _, exists := table[num]; !exists {
				table[num] = entry
			}
		}
	}

	return table, trailer, nil
}

// parseXRefStream parses a cross-reference stream (PDF 1.5+).
func parseXRefStream(data []byte, offset int64) (xrefTable, Dict, error) {
	p := newParser(data[offset:])
	obj, err := p.parseIndirectObject()
	if err != nil {
		return nil, nil, fmt.Errorf("scanner: xref stream object: %w", err)
	}

	stream, ok := obj.Value.(Stream)
	if !ok {
		return nil, nil, fmt.Errorf("scanner: xref stream is not a stream object")
	}

	decoded, err := decodeStream(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("scanner: decoding xref stream: %w", err)
	}

	wArr := stream.Dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, nil, fmt.Errorf("scanner: xref stream /W must have 3 elements")
	}
	widths := make([]int, 3)
	for i, w := range wArr {
		if intVal, ok := w.(Integer); ok {
			widths[i] = int(intVal)
		}
	}
	entrySize := widths[0] + widths[1] + widths[2]

	var indices []int
	if idxArr := stream.Dict.GetArray("Index"); idxArr != nil {
		for _, v := range idxArr {
			if intVal, ok := v.(Integer); ok {
				indices = append(indices, int(intVal))
			}
		}
	} else {
		size, _ := stream.Dict.GetInt("Size")
		indices = []int{0, int(size)}
	}

	table := make(xrefTable)
	dataPos := 0

	for i := 0; i+1 < len(indices); i += 2 {
		startObj := indices[i]
		count := indices[i+1]

		for j := 0; j < count; j++ {
			if dataPos+entrySize > len(decoded) {
				break
			}

			fields := make([]int64, 3)
			pos := dataPos
			for f := 0; f < 3; f++ {
				var val int64
				for k := 0; k < widths[f]; k++ {
					val = val<<8 | int64(decoded[pos])
					pos++
				}
				fields[f] = val
			}
			dataPos += entrySize

			objNum := startObj + j

			fieldType := fields[0]
			if widths[0] == 0 {
				fieldType = 1
			}

			switch fieldType {
			case 0: // free
				table[objNum] = xrefEntry{InUse: false, Generation: int(fields[2])}
			case 1: // in use
				table[objNum] = xrefEntry{
					Offset:     fields[1],
					Generation: int(fields[2]),
					InUse:      true,
				}
			case 2: // lives in an object stream
				table[objNum] = xrefEntry{
					Offset:     fields[1], // object stream number
					Generation: int(fields[2]),
					InUse:      true,
					Compressed: true,
				}
			}
		}
	}

	if prevVal, ok := stream.Dict.GetInt("Prev"); ok {
		prevTable, _, err := parseXRefTable(data, prevVal)
		if err != nil {
			return nil, nil, fmt.Errorf("scanner: previous xref: %w", err)
		}
		for num, entry := range prevTable {
			if _, exists := table[num]; !exists {
				table[num] = entry
			}
		}
	}

	return table, stream.Dict, nil
}
