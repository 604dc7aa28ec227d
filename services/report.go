package services

import (
	"fmt"
	"io"
	"strings"

	"ev-ad-insights/models"
)

// Reporter renders query results as a terminal report.
type Reporter struct {
	out   io.Writer
	color bool
}

// NewReporter creates a Reporter writing to out. ANSI colors are used only
// when color is true.
func NewReporter(out io.Writer, color bool) *Reporter {
	return &Reporter{out: out, color: color}
}

func (r *Reporter) style(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (r *Reporter) heading(title string) {
	sep := strings.Repeat("═", 54)
	fmt.Fprintf(r.out, "\n%s\n", r.style("1;35", sep))
	fmt.Fprintf(r.out, "%s\n", r.style("1;35", "  "+title))
	fmt.Fprintf(r.out, "%s\n\n", r.style("1;35", sep))
}

func (r *Reporter) section(title string) {
	fmt.Fprintf(r.out, "%s\n", r.style("1;33", "  "+title))
	fmt.Fprintf(r.out, "  %s\n", strings.Repeat("─", 54))
}

// PrintSummary writes the overview, market and vehicle sections.
func (r *Reporter) PrintSummary(s *models.Summary, markets []models.MarketStats, vehicles []models.VehicleStats) {
	r.heading("EV AD INSIGHTS")

	r.section("Overview")
	fmt.Fprintf(r.out, "  Total ads loaded      : %s\n", r.style("1", fmt.Sprint(s.TotalCount)))
	fmt.Fprintf(r.out, "  Ads after filters     : %s\n", r.style("1", fmt.Sprint(s.FilteredCount)))
	fmt.Fprintf(r.out, "  Unique vehicles       : %d\n", s.UniqueVehicles)
	fmt.Fprintf(r.out, "  Unique advertisers    : %d\n", s.UniqueAdvertisers)
	fmt.Fprintf(r.out, "  Date range            : %s\n", formatRange(s.DateRange))
	if s.MalformedRows > 0 {
		fmt.Fprintf(r.out, "  Rows with issues      : %s\n", r.style("1;31", fmt.Sprint(s.MalformedRows)))
	}
	fmt.Fprintln(r.out)

	r.section("Ads by Market")
	if len(markets) == 0 {
		fmt.Fprintf(r.out, "  No market data\n")
	}
	for _, m := range markets {
		bar := strings.Repeat("█", scaleBar(m.TotalAds, s.FilteredCount))
		fmt.Fprintf(r.out, "  %-20s %s (%d ads, %d vehicles)\n",
			truncate(m.Market, 18), bar, m.TotalAds, m.UniqueVehicles)
	}
	fmt.Fprintln(r.out)

	r.section("Ads by Vehicle")
	if len(vehicles) == 0 {
		fmt.Fprintf(r.out, "  No vehicle data\n")
	}
	for _, v := range vehicles {
		fmt.Fprintf(r.out, "  %-28s %d ads, %d advertisers\n",
			truncate(v.Vehicle, 26), v.TotalAds, len(v.Advertisers))
	}
	fmt.Fprintln(r.out)
}

// PrintBreakdown writes the feature category counts.
func (r *Reporter) PrintBreakdown(counts []models.Count) {
	r.section("Feature Mentions by Category")
	if len(counts) == 0 {
		fmt.Fprintf(r.out, "  No feature mentions\n\n")
		return
	}
	total := 0
	for _, c := range counts {
		total += c.Value
	}
	for _, c := range counts {
		bar := strings.Repeat("█", scaleBar(c.Value, total))
		fmt.Fprintf(r.out, "  %-20s %s (%d)\n", truncate(c.Key, 18), bar, c.Value)
	}
	fmt.Fprintln(r.out)
}

// PrintDetail writes mention snippets grouped by vehicle.
func (r *Reporter) PrintDetail(category string, groups []models.MentionGroup) {
	r.section("Mentions: " + category)
	if len(groups) == 0 {
		fmt.Fprintf(r.out, "  No mentions found\n\n")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(r.out, "  %s (%d)\n", r.style("1", g.Vehicle), len(g.Mentions))
		for _, m := range g.Mentions {
			fmt.Fprintf(r.out, "    • [%s] %s\n", m.Section, truncate(m.Snippet, 90))
		}
	}
	fmt.Fprintln(r.out)
}

// PrintLabels writes a vehicle by label matrix, listing each vehicle's
// non-zero labels.
func (r *Reporter) PrintLabels(title string, m *models.Matrix) {
	r.section(title)
	if len(m.Rows) == 0 {
		fmt.Fprintf(r.out, "  No matches\n\n")
		return
	}
	for i, vehicle := range m.Rows {
		fmt.Fprintf(r.out, "  %s\n", r.style("1", vehicle))
		for j, label := range m.Cols {
			if n := m.Cells[i][j]; n > 0 {
				fmt.Fprintf(r.out, "    %-18s %d\n", truncate(label, 16), n)
			}
		}
	}
	fmt.Fprintln(r.out)
}

func formatRange(dr models.DateRange) string {
	if !dr.Known {
		return "unknown"
	}
	return dr.Start.Format("2006-01-02") + " to " + dr.End.Format("2006-01-02")
}

// scaleBar maps n of total onto a bar of at most 30 cells.
func scaleBar(n, total int) int {
	if total <= 0 || n <= 0 {
		return 0
	}
	w := n * 30 / total
	if w == 0 {
		w = 1
	}
	return w
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
