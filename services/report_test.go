package services

import (
	"bytes"
	"strings"
	"testing"

	"ev-ad-insights/models"
)

func TestReporterPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	records := sampleRecords()
	r.PrintSummary(Summarize(len(records), records, 0), MarketSummary(records), VehicleAnalysis(records))
	out := buf.String()

	for _, want := range []string{
		"EV AD INSIGHTS",
		"Ads after filters     : 5",
		"Date range            : 2025-01-10 to 2025-02-03",
		"Portugal",
		"VW ID.4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color disabled but output contains ANSI codes")
	}
	if strings.Contains(out, "Rows with issues") {
		t.Error("issue line should only appear when rows are malformed")
	}
}

func TestReporterPrintBreakdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, true).PrintBreakdown(nil)

	if !strings.Contains(buf.String(), "No feature mentions") {
		t.Errorf("got %q", buf.String())
	}
}

func TestReporterPrintDetail(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, false).PrintDetail("Design", []models.MentionGroup{{
		Vehicle:  "VW ID.4",
		Mentions: []models.FeatureMention{{Section: "Design", Snippet: strings.Repeat("sleek ", 30)}},
	}})
	out := buf.String()

	if !strings.Contains(out, "VW ID.4 (1)") {
		t.Errorf("missing group header in %q", out)
	}
	if !strings.Contains(out, "...") {
		t.Error("long snippet should be truncated")
	}
}

func TestScaleBar(t *testing.T) {
	tests := []struct {
		n, total, want int
	}{
		{0, 10, 0},
		{10, 10, 30},
		{1, 1000, 1},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := scaleBar(tt.n, tt.total); got != tt.want {
			t.Errorf("scaleBar(%d, %d): got %d, want %d", tt.n, tt.total, got, tt.want)
		}
	}
}

func TestReporterPrintLabels(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.PrintLabels("Image Themes", &models.Matrix{
		Rows:  []string{"VW ID.4", "Tesla Model Y"},
		Cols:  []string{"City", "Sport"},
		Cells: [][]int{{2, 0}, {0, 1}},
	})
	out := buf.String()

	for _, want := range []string{"Image Themes", "VW ID.4", "City", "Sport"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Count(out, "Sport") != 1 {
		t.Error("zero cells should not be printed")
	}

	buf.Reset()
	r.PrintLabels("Tone and Style", &models.Matrix{})
	if !strings.Contains(buf.String(), "No matches") {
		t.Error("empty matrix should say no matches")
	}
}
