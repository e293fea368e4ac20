package scanner_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/phpdave11/gofpdf"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/scanner"
)

// buildTemplate renders a one-page A4 certificate layout with gofpdf and
// returns the raw PDF bytes.
func buildTemplate(t *testing.T) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Text(180, 150, "Certificate of Completion")
	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(220, 300, "{{recipient_name}}")
	pdf.SetFont("Times", "I", 14)
	pdf.Text(220, 360, "{{course_name}}")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(220, 420, "Issued on {{issue_date}}")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building template: %v", err)
	}
	return buf.Bytes()
}

func TestScanTemplate(t *testing.T) {
	data := buildTemplate(t)

	phs, err := scanner.ScanTemplate(data)
	if err != nil {
		t.Fatalf("ScanTemplate: %v", err)
	}
	if len(phs) != 3 {
		t.Fatalf("found %d placeholders, want 3", len(phs))
	}

	// Deterministic order: top to bottom within the page.
	wantNames := []string{"recipient_name", "course_name", "issue_date"}
	for i, want := range wantNames {
		if phs[i].Name != want {
			t.Errorf("placeholder %d = %q, want %q", i, phs[i].Name, want)
		}
		if phs[i].PageIndex != 0 {
			t.Errorf("placeholder %q on page %d, want 0", phs[i].Name, phs[i].PageIndex)
		}
	}

	recipient := phs[0]
	if recipient.Status != scanner.StatusExact {
		t.Errorf("recipient status = %v, want exact", recipient.Status)
	}
	if recipient.Style.Family != "Helvetica" {
		t.Errorf("recipient family = %q, want Helvetica", recipient.Style.Family)
	}
	if got := recipient.Style.SizePt; got < 17.9 || got > 18.1 {
		t.Errorf("recipient size = %.2f, want 18", got)
	}
	if recipient.Style.Bold || recipient.Style.Italic {
		t.Errorf("recipient style flags = bold:%v italic:%v, want neither",
			recipient.Style.Bold, recipient.Style.Italic)
	}

	course := phs[1]
	if course.Style.Family != "Times" {
		t.Errorf("course family = %q, want Times", course.Style.Family)
	}
	if !course.Style.Italic {
		t.Error("course should be italic")
	}

	// A4 in points, y measured from the bottom edge. gofpdf placed the
	// recipient baseline 300pt from the top.
	const pageH = 841.89
	wantY := pageH - 300
	if recipient.BBox.Y0 > wantY || recipient.BBox.Y1 < wantY {
		t.Errorf("recipient bbox [%.2f, %.2f] does not straddle baseline %.2f",
			recipient.BBox.Y0, recipient.BBox.Y1, wantY)
	}
	if recipient.BBox.X0 < 219 || recipient.BBox.X0 > 221 {
		t.Errorf("recipient bbox X0 = %.2f, want ~220", recipient.BBox.X0)
	}
}

func TestScanTemplateEmbeddedInLine(t *testing.T) {
	// Placeholder surrounded by literal text: the bbox must cover only
	// the token, not the whole line.
	data := buildTemplate(t)

	phs, err := scanner.ScanTemplate(data)
	if err != nil {
		t.Fatalf("ScanTemplate: %v", err)
	}

	var issue *scanner.Placeholder
	for i := range phs {
		if phs[i].Name == "issue_date" {
			issue = &phs[i]
		}
	}
	if issue == nil {
		t.Fatal("issue_date not found")
	}
	// "Issued on " precedes the token, so X0 sits right of the line start.
	if issue.BBox.X0 <= 220 {
		t.Errorf("bbox X0 = %.2f, should exclude the leading text", issue.BBox.X0)
	}
}

func TestScanTemplateMultiPage(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(72, 200, "{{first}}")
	pdf.AddPage()
	pdf.Text(72, 200, "{{second}}")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building template: %v", err)
	}

	phs, err := scanner.ScanTemplate(buf.Bytes())
	if err != nil {
		t.Fatalf("ScanTemplate: %v", err)
	}
	if len(phs) != 2 {
		t.Fatalf("found %d placeholders, want 2", len(phs))
	}
	if phs[0].Name != "first" || phs[0].PageIndex != 0 {
		t.Errorf("got %q on page %d, want first on page 0", phs[0].Name, phs[0].PageIndex)
	}
	if phs[1].Name != "second" || phs[1].PageIndex != 1 {
		t.Errorf("got %q on page %d, want second on page 1", phs[1].Name, phs[1].PageIndex)
	}
}

func TestScanTemplateNoPlaceholders(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(72, 200, "Nothing to fill in here")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building template: %v", err)
	}

	phs, err := scanner.ScanTemplate(buf.Bytes())
	if err != nil {
		t.Fatalf("ScanTemplate: %v", err)
	}
	if len(phs) != 0 {
		t.Errorf("found %d placeholders, want 0", len(phs))
	}
}

func TestScanTemplateDeterministic(t *testing.T) {
	data := buildTemplate(t)

	first, err := scanner.ScanTemplate(data)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := scanner.ScanTemplate(data)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated scans of the same template differ")
	}
}

func TestScanTemplateNonEmbeddedFont(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(220, 300, "{{recipient_name}}")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building template: %v", err)
	}

	// Swap the standard face for a custom one of the same byte length,
	// keeping xref offsets valid. The font dict then names a face with
	// no embedded program and no standard fallback.
	data := bytes.ReplaceAll(buf.Bytes(), []byte("/Helvetica"), []byte("/Garet    "))

	phs, err := scanner.ScanTemplate(data)
	if err != nil {
		t.Fatalf("ScanTemplate: %v", err)
	}
	if len(phs) != 1 {
		t.Fatalf("found %d placeholders, want 1", len(phs))
	}

	ph := phs[0]
	if ph.Status != scanner.StatusApproximate {
		t.Errorf("status = %v, want approximate", ph.Status)
	}
	if ph.Style.Family != "Garet" {
		t.Errorf("family = %q, want Garet", ph.Style.Family)
	}
	if got := ph.Style.SizePt; got < 17.9 || got > 18.1 {
		t.Errorf("size = %.2f, want 18", got)
	}
}

func TestScanTemplateCorrupt(t *testing.T) {
	_, err := scanner.ScanTemplate([]byte("this is not a pdf"))
	if !errors.Is(err, certkit.ErrTemplateParse) {
		t.Errorf("err = %v, want ErrTemplateParse", err)
	}

	_, err = scanner.ScanTemplate([]byte("%PDF-1.4\ngarbage"))
	if err == nil {
		t.Error("expected error for truncated file")
	}
}

func TestDocumentPages(t *testing.T) {
	data := buildTemplate(t)

	doc, err := scanner.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Fatalf("NumPages = %d, want 1", doc.NumPages())
	}

	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Page(0): %v", err)
	}
	if w := page.MediaBox.Width(); w < 595 || w > 596 {
		t.Errorf("page width = %.2f, want A4", w)
	}
	if h := page.MediaBox.Height(); h < 841 || h > 842 {
		t.Errorf("page height = %.2f, want A4", h)
	}

	if _, err := doc.Page(1); err == nil {
		t.Error("expected error for out-of-range page")
	}
}
