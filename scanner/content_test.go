package scanner

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestExtractRunsSimpleTj(t *testing.T) {
	content := []byte("BT /F1 12 Tf 100 700 Td ({{Name}}) Tj ET")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	run := runs[0]
	if run.text != "{{Name}}" {
		t.Errorf("text = %q", run.text)
	}
	if !almostEqual(run.x, 100) || !almostEqual(run.y, 700) {
		t.Errorf("origin = (%.2f, %.2f), want (100, 700)", run.x, run.y)
	}
	if !almostEqual(run.size, 12) {
		t.Errorf("size = %.2f, want 12", run.size)
	}
	if run.fontRes != "F1" {
		t.Errorf("fontRes = %q, want F1", run.fontRes)
	}
	if !run.hasFont {
		t.Error("expected hasFont")
	}
}

func TestExtractRunsTJKerning(t *testing.T) {
	// A placeholder split across TJ fragments must come back as one run.
	content := []byte("BT /F1 10 Tf 50 650 Td [({{Na) -20 (me}})] TJ ET")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].text != "{{Name}}" {
		t.Errorf("text = %q, want {{Name}}", runs[0].text)
	}
}

func TestExtractRunsFontPersistsAcrossET(t *testing.T) {
	// Font is text state, not reset by BT/ET. gofpdf emits the Tf in its
	// own BT/ET block.
	content := []byte("BT /F2 16 Tf ET\nBT 72 600 Td (Hello) Tj ET")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].fontRes != "F2" || !almostEqual(runs[0].size, 16) {
		t.Errorf("got font %q size %.2f, want F2 at 16", runs[0].fontRes, runs[0].size)
	}
}

func TestExtractRunsTextMatrixScale(t *testing.T) {
	content := []byte("BT /F1 10 Tf 2 0 0 2 100 100 Tm (X) Tj ET")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !almostEqual(runs[0].size, 20) {
		t.Errorf("effective size = %.2f, want 20", runs[0].size)
	}
	if !almostEqual(runs[0].x, 100) || !almostEqual(runs[0].y, 100) {
		t.Errorf("origin = (%.2f, %.2f), want (100, 100)", runs[0].x, runs[0].y)
	}
}

func TestExtractRunsFillColor(t *testing.T) {
	content := []byte("1 0 0 rg BT /F1 12 Tf 10 10 Td (Red) Tj ET")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].color != (RGB{255, 0, 0}) {
		t.Errorf("color = %v, want {255 0 0}", runs[0].color)
	}
}

func TestExtractRunsGrayAndCMYK(t *testing.T) {
	runs := extractRuns([]byte("0.5 g BT /F1 12 Tf 0 0 Td (G) Tj ET"))
	if len(runs) != 1 || runs[0].color.R != runs[0].color.G || runs[0].color.G != runs[0].color.B {
		t.Fatalf("expected neutral gray, got %+v", runs)
	}

	runs = extractRuns([]byte("0 0 0 1 k BT /F1 12 Tf 0 0 Td (K) Tj ET"))
	if len(runs) != 1 || runs[0].color != (RGB{0, 0, 0}) {
		t.Fatalf("expected black from CMYK, got %+v", runs)
	}
}

func TestExtractRunsCTM(t *testing.T) {
	// cm translation shifts the text origin.
	content := []byte("q 1 0 0 1 50 20 cm BT /F1 12 Tf 10 10 Td (T) Tj ET Q")

	runs := extractRuns(content)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !almostEqual(runs[0].x, 60) || !almostEqual(runs[0].y, 30) {
		t.Errorf("origin = (%.2f, %.2f), want (60, 30)", runs[0].x, runs[0].y)
	}
}

func TestExtractRunsConsecutiveTjAdvance(t *testing.T) {
	// Two Tj in the same BT block: the second starts after the first's
	// estimated advance, so the line groups and concatenates in order.
	content := []byte("BT /F1 10 Tf 100 500 Td ({{Na) Tj (me}}) Tj ET")

	runs := extractRuns(content)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].x <= runs[0].x {
		t.Errorf("second run x %.2f not advanced past first at %.2f", runs[1].x, runs[0].x)
	}
	if !almostEqual(runs[0].y, runs[1].y) {
		t.Errorf("runs not on the same baseline: %.2f vs %.2f", runs[0].y, runs[1].y)
	}

	lines := groupLines(runs)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].text != "{{Name}}" {
		t.Errorf("line text = %q, want {{Name}}", lines[0].text)
	}
}
