package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/controlkit/ctrlsim/internal/sim"
)

const historyCapacity = 600

var (
	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type tickMsg time.Time

// LiveModel steps one plant/controller pair in real time and charts the
// output against its setpoint. It replicates the loop's per-step
// contract but owns pacing, which the offline loop deliberately lacks.
type LiveModel struct {
	plant    sim.Plant
	ctrl     sim.Controller
	schedule sim.Schedule
	dt       float64
	duration float64
	fps      int

	t         float64
	control   float64
	outputs   []float64
	setpoints []float64
	paused    bool
	done      bool
	err       error
}

func NewLiveModel(plant sim.Plant, ctrl sim.Controller, schedule sim.Schedule, dt, duration float64, fps int) LiveModel {
	if fps <= 0 {
		fps = 30
	}
	return LiveModel{
		plant:    plant,
		ctrl:     ctrl,
		schedule: schedule,
		dt:       dt,
		duration: duration,
		fps:      fps,
	}
}

func (m LiveModel) Init() tea.Cmd {
	return m.tick()
}

func (m LiveModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		}
		return m, nil

	case tickMsg:
		if m.done || m.err != nil {
			return m, nil
		}
		if !m.paused {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

// advance runs the simulated time that one frame covers.
func (m *LiveModel) advance() {
	steps := int(1.0 / (float64(m.fps) * m.dt))
	if steps < 1 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		if m.t >= m.duration {
			m.done = true
			return
		}
		if m.schedule != nil {
			m.plant.SetSetpoint(m.schedule(m.t))
		}
		setpoint := m.plant.Setpoint()
		e := setpoint - m.plant.Output()

		u, err := m.ctrl.Compute(e, m.dt)
		if err != nil {
			m.err = err
			return
		}
		output, err := m.plant.Step(u, m.dt)
		if err != nil {
			m.err = err
			return
		}

		m.control = u
		m.t += m.dt
		m.outputs = append(m.outputs, output)
		m.setpoints = append(m.setpoints, setpoint)
		if len(m.outputs) > historyCapacity {
			m.outputs = m.outputs[1:]
			m.setpoints = m.setpoints[1:]
		}
	}
}

func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("ctrlsim live"))
	b.WriteString("\n\n")

	if len(m.outputs) > 1 {
		graph := asciigraph.PlotMany([][]float64{m.setpoints, m.outputs},
			asciigraph.Height(14),
			asciigraph.Width(plotWidth),
			asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Green),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n\n")
	}

	stats := []string{
		labelStyle.Render("time") + valueStyle.Render(fmt.Sprintf("%8.2f s", m.t)),
		labelStyle.Render("output") + valueStyle.Render(fmt.Sprintf("%8.2f %%", m.plant.Output())),
		labelStyle.Render("setpoint") + valueStyle.Render(fmt.Sprintf("%8.2f %%", m.plant.Setpoint())),
		labelStyle.Render("control") + valueStyle.Render(fmt.Sprintf("%8.2f", m.control)),
	}
	b.WriteString(statsStyle.Render(strings.Join(stats, "\n")))

	switch {
	case m.err != nil:
		b.WriteString("\n\n" + headerStyle.Render(fmt.Sprintf("stopped: %v", m.err)))
	case m.done:
		b.WriteString("\n\n" + headerStyle.Render("finished"))
	case m.paused:
		b.WriteString("\n\n" + captionStyle.Render("paused"))
	}

	b.WriteString(helpStyle.Render("\nspace: pause  q: quit"))
	b.WriteString("\n")
	return b.String()
}

// RunLive blocks until the live view exits.
func RunLive(m LiveModel) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
