// Package viz renders stored runs in the terminal.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	plotWidth  = 80
	plotHeight = 10
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
)

// RenderSeries plots every channel of one stored run, first column being
// time.
func RenderSeries(runID string, header []string, cols [][]float64) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("run: %s", runID)))
	b.WriteString("\n")
	if len(cols) > 0 {
		b.WriteString(captionStyle.Render(fmt.Sprintf("samples: %d", len(cols[0]))))
	}
	b.WriteString("\n\n")

	for i := 1; i < len(header); i++ {
		if len(cols[i]) == 0 {
			continue
		}
		graph := asciigraph.Plot(cols[i],
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(fmt.Sprintf("%s vs time", header[i])),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n\n")
	}

	return b.String()
}

// RenderComparison overlays output and setpoint for a quick visual check
// of tracking quality.
func RenderComparison(runID string, outputs, setpoints []float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("run: %s (output vs setpoint)", runID)))
	b.WriteString("\n\n")
	graph := asciigraph.PlotMany([][]float64{setpoints, outputs},
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Green),
	)
	b.WriteString(graphStyle.Render(graph))
	b.WriteString("\n")
	return b.String()
}
