package batch

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
)

// reportName is the manifest entry written alongside the PDFs.
const reportName = "batch_report.json"

type manifest struct {
	BatchID   string        `json:"batch_id"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Mapping   interface{}   `json:"mapping"`
	Rows      []manifestRow `json:"rows"`
}

type manifestRow struct {
	Index    int    `json:"index"`
	CertID   string `json:"cert_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WriteZip packages every successful row's PDF plus a JSON manifest into
// a zip archive.
func WriteZip(w io.Writer, res *Result) error {
	zw := zip.NewWriter(w)

	for _, rr := range res.Rows {
		if rr.Err != nil || len(rr.PDF) == 0 {
			continue
		}
		f, err := zw.Create(rr.Filename)
		if err != nil {
			return fmt.Errorf("batch: creating zip entry %s: %w", rr.Filename, err)
		}
		if _, err := f.Write(rr.PDF); err != nil {
			return fmt.Errorf("batch: writing zip entry %s: %w", rr.Filename, err)
		}
	}

	man := manifest{
		BatchID:   res.BatchID,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Mapping:   res.Report,
	}
	for _, rr := range res.Rows {
		mr := manifestRow{Index: rr.Index, CertID: rr.CertID, Filename: rr.Filename}
		if rr.Err != nil {
			mr.Error = rr.Err.Error()
			mr.Filename = ""
		}
		man.Rows = append(man.Rows, mr)
	}
	f, err := zw.Create(reportName)
	if err != nil {
		return fmt.Errorf("batch: creating manifest: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(man); err != nil {
		return fmt.Errorf("batch: writing manifest: %w", err)
	}

	return zw.Close()
}
