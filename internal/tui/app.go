// Package tui provides the live terminal dashboard.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/netgraph/internal/engine"
	"github.com/user/netgraph/internal/util"
)

// App is the main TUI application.
type App struct {
	eng    *engine.Engine
	config *util.Config
}

// NewApp creates a new TUI application around an engine.
func NewApp(eng *engine.Engine, cfg *util.Config) *App {
	return &App{
		eng:    eng,
		config: cfg,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(newModel(a.eng, a.config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// model is the main bubbletea model. All engine mutation happens here, on
// the bubbletea goroutine; the engine itself is single-threaded.
type appModel struct {
	eng       *engine.Engine
	config    *util.Config
	dashboard *Dashboard
	spinner   spinner.Model
	ready     bool
	width     int
	height    int
}

func newModel(eng *engine.Engine, cfg *util.Config) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return appModel{
		eng:     eng,
		config:  cfg,
		spinner: s,
	}
}

// tickMsg carries the wall clock of one UI tick.
type tickMsg time.Time

// tickCmd schedules the next UI tick at the engine's current interval, so
// speed adjustments take effect on the following frame.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(m.eng.UIInterval()),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.eng.Stop()
			return m, tea.Quit
		case "up", "k":
			m.eng.SelectPrev()
		case "down", "j":
			m.eng.SelectNext()
		case "p", "enter":
			m.eng.ToggleFocus(time.Now())
		case "r":
			m.eng.Rescan(time.Now())
		case "+", "=":
			m.eng.FasterUI()
		case "-", "_":
			m.eng.SlowerUI()
		case "[", "<":
			m.eng.FasterData()
		case "]", ">":
			m.eng.SlowerData()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard == nil {
			m.dashboard = NewDashboard(m.eng, msg.Width, msg.Height)
		} else {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case tickMsg:
		if m.eng.Stopped() {
			return m, nil
		}
		m.eng.Tick(time.Time(msg))
		if !m.ready && m.eng.Graph() != nil {
			m.ready = true
		}
		return m, tickCmd(m.eng.UIInterval())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if !m.ready || m.dashboard == nil {
		return LoadingStyle.Render(m.spinner.View() + " Scanning...")
	}
	return m.dashboard.View()
}
