package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/teleop/internal/analysis"
	"github.com/san-kum/teleop/internal/metrics"
)

// chatterMinHz separates ringing from hand motion.
const chatterMinHz = 30

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
)

func printSummary(w io.Writer, r *rig, wall time.Duration) {
	t := r.session.Telemetry()

	rows := [][]string{
		{"cycles", fmt.Sprintf("%d", t.Cycle)},
		{"session time", fmt.Sprintf("%.3f s", t.Elapsed)},
		{"transport failures", fmt.Sprintf("%d", t.TotalFailures)},
		{"tool kinetic energy", fmt.Sprintf("%.3e J", r.world.Body().KineticEnergy())},
	}
	if wall > 0 {
		rows = append(rows, []string{"wall time", wall.Round(time.Millisecond).String()})
	}

	values := metrics.Collect(r.metrics)
	for _, name := range metrics.Names(values) {
		rows = append(rows, []string{name, fmt.Sprintf("%.6f", values[name])})
	}

	rate := r.cfg.Device.SampleRateHz
	rep := analysis.DetectChatter(r.forceHF.Values(), rate, chatterMinHz)
	chatter := "no"
	if rep.Chatter {
		chatter = alertStyle.Render("yes")
	}
	rows = append(rows,
		[]string{"force peak", fmt.Sprintf("%.1f Hz (%.0f%% of power)", rep.Frequency, 100*rep.Share)},
		[]string{"force rms", fmt.Sprintf("%.4f N", rep.RMS)},
		[]string{"chatter", chatter},
	)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("summary", "value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	fmt.Fprintln(w, tbl.Render())

	if tilt := r.tiltPlot.Values(); len(tilt) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(tilt,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption(r.tiltPlot.Name())))
	}
}
