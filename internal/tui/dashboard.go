// Package tui is the live operator dashboard. It polls the session's
// latest telemetry at display rate and never blocks the control loop.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/teleop/internal/analysis"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/sim"
)

const (
	canvasCols = 30
	canvasRows = 12
	plotWidth  = 48
	plotHeight = 5
	gaugeWidth = 16

	DefaultRefresh = time.Second / 30
)

// Source is the running session as seen by the dashboard.
type Source interface {
	Telemetry() sim.Telemetry
	Stop()
	Done() <-chan struct{}
}

type Options struct {
	// WorkspaceRadius scales the top-down workspace view, m.
	WorkspaceRadius float64
	Refresh         time.Duration
	// Recorders that are set get plotted under the view.
	Tilt   *analysis.Recorder
	Avatar *analysis.Recorder
	Force  *analysis.Recorder
}

type tickMsg time.Time

type doneMsg struct{}

type Model struct {
	src   Source
	store *params.Store
	opts  Options

	canvas   *canvas
	last     sim.Telemetry
	status   string
	showHelp bool
	finished bool
}

func New(src Source, store *params.Store, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.WorkspaceRadius <= 0 {
		opts.WorkspaceRadius = 1
	}
	return Model{
		src:    src,
		store:  store,
		opts:   opts,
		canvas: newCanvas(canvasCols, canvasRows),
	}
}

// Run blocks until the operator quits or the session ends.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), waitDone(m.src.Done()))
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			m.src.Stop()
			return m, tea.Quit
		case "h", "?":
			m.showHelp = !m.showHelp
		default:
			if c, ok := params.CommandForKey(key); ok {
				m.status = m.apply(c)
			}
		}
	case tickMsg:
		m.last = m.src.Telemetry()
		m.draw()
		return m, m.tick()
	case doneMsg:
		m.finished = true
		m.last = m.src.Telemetry()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) apply(c params.Command) string {
	p, err := m.store.Apply(c)
	if err != nil {
		return alertStyle.Render(err.Error())
	}
	switch c {
	case params.GravityOn, params.GravityOff:
		return c.String()
	case params.LinGainDown, params.LinGainUp:
		return fmt.Sprintf("%s: %.2f", c, p.LinGain)
	case params.AngGainDown, params.AngGainUp:
		return fmt.Sprintf("%s: %.3f", c, p.AngGain)
	case params.LinStiffnessDown, params.LinStiffnessUp:
		return fmt.Sprintf("%s: %.0f N/m", c, p.LinStiffness)
	}
	return fmt.Sprintf("%s: %.1f N·m/rad", c, p.AngStiffness)
}

// draw renders a top-down view: the workspace boundary, the tool and the
// avatar positions, and the avatar pointing axis from the center.
func (m Model) draw() {
	c := m.canvas
	c.clear()
	w, h := c.dots()
	cx, cy := w/2, h/2
	r := float64(min(w, h)/2 - 1)

	scale := r / m.opts.WorkspaceRadius
	toDots := func(x, y float64) (int, int) {
		return cx + int(math.Round(x*scale)), cy - int(math.Round(y*scale))
	}

	c.circle(cx, cy, int(r))
	ax, ay := cx+int(math.Round(m.last.AvatarRotVect[0]*r*0.5)), cy-int(math.Round(m.last.AvatarRotVect[1]*r*0.5))
	c.line(cx, cy, ax, ay)

	tx, ty := toDots(m.last.ToolPos[0], m.last.ToolPos[1])
	c.mark(tx, ty)
	px, py := toDots(m.last.AvatarPos[0], m.last.AvatarPos[1])
	c.circle(px, py, 2)
}

func (m Model) View() string {
	t := m.last
	p := m.store.Load()

	var s strings.Builder
	s.WriteString(titleStyle.Render("TELEOP") + "  " + m.stateLabel() + "\n\n")
	s.WriteString(row("cycle", fmt.Sprintf("%d", t.Cycle)))
	s.WriteString(row("elapsed", fmt.Sprintf("%.2f s", t.Elapsed)))
	s.WriteString(row("rate", fmt.Sprintf("%.0f Hz", t.RateHz)))
	s.WriteString(row("tilt", fmt.Sprintf("%5.1f° / %.0f°", t.TiltDeg, p.ThetaMax)))
	s.WriteString(row("avatar", fmt.Sprintf("%5.1f° / %.0f°", t.AvatarDeg, p.ThetaE)))
	s.WriteString(row("scale", fmt.Sprintf("%.2f", t.Scale)))
	s.WriteString(row("force", fmt.Sprintf("%.3f N", t.Force.Len())))
	s.WriteString(row("torque", fmt.Sprintf("%.4f N·m", t.Torque.Len())))
	s.WriteString(row("limit torque", fmt.Sprintf("%.4f N·m", t.LimitTorque().Len())))
	s.WriteString(row("spring energy", fmt.Sprintf("%.4f J", t.SpringEnergy)))
	s.WriteString(row("failures", fmt.Sprintf("%d (total %d)", t.ConsecutiveFailures, t.TotalFailures)))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render("lin gain") + bar(ratio(t.LinGain, p.LinGain), gaugeWidth) + fmt.Sprintf(" %.2f", p.LinGain) + "\n")
	s.WriteString(labelStyle.Render("ang gain") + bar(ratio(t.AngGain, p.AngGain), gaugeWidth) + fmt.Sprintf(" %.3f", p.AngGain) + "\n")
	s.WriteString(row("stiffness", fmt.Sprintf("%.0f N/m, %.1f N·m/rad", p.LinStiffness, p.AngStiffness)))
	s.WriteString(row("flags", m.flags()))

	stats := panelStyle.Render(s.String())
	view := panelStyle.Render(m.canvas.String())
	main := lipgloss.JoinHorizontal(lipgloss.Top, view, stats)

	var out strings.Builder
	out.WriteString(main + "\n")
	for _, rec := range []*analysis.Recorder{m.opts.Tilt, m.opts.Avatar, m.opts.Force} {
		if plot := plotOf(rec); plot != "" {
			out.WriteString(graphStyle.Render(plot) + "\n")
		}
	}
	if m.status != "" {
		out.WriteString(m.status + "\n")
	}
	if m.showHelp {
		out.WriteString(hintStyle.Render(strings.Join(params.KeyHelp(), "\n")+"\n[h] toggle help  [q] quit") + "\n")
	} else {
		out.WriteString(hintStyle.Render("1-0: adjust  h: help  q: quit") + "\n")
	}
	return out.String()
}

func (m Model) stateLabel() string {
	switch {
	case m.finished:
		return warnStyle.Render("STOPPED")
	case m.last.Held:
		return alertStyle.Render("HOLDING")
	case m.last.Cycle == 0:
		return warnStyle.Render("WAITING")
	}
	return okStyle.Render("RUNNING")
}

func (m Model) flags() string {
	var f []string
	if m.last.Gravity {
		f = append(f, "gravity")
	}
	if !m.last.Engaged {
		f = append(f, warnStyle.Render("force gated"))
	}
	if m.last.LimitActive {
		f = append(f, alertStyle.Render("limit"))
	}
	if m.last.Saturated {
		f = append(f, alertStyle.Render("saturated"))
	}
	if len(f) == 0 {
		return "-"
	}
	return strings.Join(f, " ")
}

func plotOf(rec *analysis.Recorder) string {
	if rec == nil {
		return ""
	}
	v := rec.Values()
	if len(v) < 2 {
		return ""
	}
	return asciigraph.Plot(v,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(rec.Name()))
}

func ratio(cur, target float64) float64 {
	if target <= 0 {
		return 1
	}
	return cur / target
}
