package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	actualGlyph     = "●"
	forecastGlyph   = "○"
	transitionGlyph = "│"
)

// RenderText writes the report as plain text for terminals.
func RenderText(w io.Writer, r Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s · horizon %d\n", r.Page, r.Ticker, r.Horizon)
	fmt.Fprintf(&b, "%s\n", r.Summary)
	fmt.Fprintf(&b, "Last price: %s USD (%s)   Reliability: %s%%\n", r.LastPrice.StringFixed(2), r.LastDate, r.Reliability.StringFixed(2))
	fmt.Fprintf(&b, "Model: %d trees, %d training rows, cache hit %t\n\n", r.Model.Rounds, r.Model.TrainRows, r.Model.CacheHit)
	for _, line := range ASCIIChart(r.Chart, 12) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(Table(r.Table).Render())
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// Table renders the forecast rows with lipgloss borders.
func Table(rows []TableRow) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Date", "Predicted (USD)")
	for _, row := range rows {
		t.Row(row.Date, row.PredictedPrice.StringFixed(2))
	}
	return t
}

// ASCIIChart plots actuals then forecast, one column per day, with a marker column between them.
func ASCIIChart(c Chart, height int) []string {
	if height < 2 {
		height = 2
	}
	n := len(c.Actual) + len(c.Forecast)
	if n == 0 || c.YMax <= c.YMin {
		return []string{"(no data)"}
	}
	width := n
	split := len(c.Actual)
	if split > 0 && len(c.Forecast) > 0 {
		width++
	}

	grid := make([][]string, height)
	for i := range grid {
		grid[i] = make([]string, width)
		for j := range grid[i] {
			grid[i][j] = " "
		}
	}
	rowOf := func(v float64) int {
		frac := (v - c.YMin) / (c.YMax - c.YMin)
		r := height - 1 - int(math.Round(frac*float64(height-1)))
		if r < 0 {
			r = 0
		}
		if r >= height {
			r = height - 1
		}
		return r
	}

	col := 0
	for _, p := range c.Actual {
		grid[rowOf(p.Value)][col] = actualGlyph
		col++
	}
	if split > 0 && len(c.Forecast) > 0 {
		for i := range grid {
			grid[i][col] = transitionGlyph
		}
		col++
	}
	for _, p := range c.Forecast {
		grid[rowOf(p.Value)][col] = forecastGlyph
		col++
	}

	lines := make([]string, 0, height+1)
	for i, row := range grid {
		label := "        "
		switch i {
		case 0:
			label = fmt.Sprintf("%7.2f ", c.YMax)
		case height - 1:
			label = fmt.Sprintf("%7.2f ", c.YMin)
		}
		lines = append(lines, label+"┤"+strings.Join(row, ""))
	}
	legend := fmt.Sprintf("        %s actual  %s forecast  %s %s", actualGlyph, forecastGlyph, transitionGlyph, c.TransitionDate.Format("2006-01-02"))
	return append(lines, legend)
}
