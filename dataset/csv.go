package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV loads a comma-separated dataset. The first record is the
// header; each remaining record becomes one Row. Records shorter than
// the header are padded with empty cells.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: reading header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	ds := &Dataset{Columns: columns}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: reading row %d: %w", len(ds.Rows)+1, err)
		}
		if blankRecord(record) {
			continue
		}
		ds.Rows = append(ds.Rows, NewRow(columns, record))
	}
	return ds, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		c := strings.TrimSpace(cell)
		if c != "" && !strings.EqualFold(c, "nan") {
			return false
		}
	}
	return true
}

// ReadCSVFile loads a dataset from a file path.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
