package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vito/progrock"
)

const (
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCached    = "cached"
)

// VertexState is the current state of one unit of work in the view.
type VertexState struct {
	ID     string
	Name   string
	Status string // statusRunning, statusCompleted, statusFailed, statusCached
}

type styles struct {
	running   lipgloss.Style
	completed lipgloss.Style
	failed    lipgloss.Style
	cached    lipgloss.Style
	summary   lipgloss.Style
}

// Model is the Bubble Tea model for the progress view, managing vertices
// and tape updates.
type Model struct {
	tape     TapeSource
	vertices []VertexState
	width    int
	height   int
	spinner  spinner.Model
	styles   styles
}

// NewModel creates a new progress model with the given tape source.
func NewModel(tape TapeSource) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))

	return &Model{
		tape:    tape,
		spinner: s,
		styles: styles{
			running:   lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")),
			completed: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),  // Green
			failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")), // Red
			cached:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true),
			summary:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// Init initializes the model and starts reading from the tape.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForTape(m.tape),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	case MsgTapeUpdate:
		return m.handleTapeUpdate(msg)
	case MsgTapeEnded:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	return m, nil
}

func (m *Model) handleSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m *Model) handleTapeUpdate(msg MsgTapeUpdate) (tea.Model, tea.Cmd) {
	for _, v := range msg.Update.Vertexes {
		m.updateOrAddVertex(v)
	}
	return m, WaitForTape(m.tape)
}

// updateOrAddVertex updates an existing vertex or adds a new one.
func (m *Model) updateOrAddVertex(v *progrock.Vertex) {
	for i, existing := range m.vertices {
		if existing.ID == v.Id {
			m.vertices[i].Status = vertexStatus(v)
			return
		}
	}
	m.vertices = append(m.vertices, VertexState{
		ID:     v.Id,
		Name:   v.Name,
		Status: vertexStatus(v),
	})
}

func vertexStatus(v *progrock.Vertex) string {
	switch {
	case v.Cached:
		return statusCached
	case v.Completed == nil:
		return statusRunning
	case v.Error != nil:
		return statusFailed
	default:
		return statusCompleted
	}
}

// View renders the vertex list plus a one-line completion summary.
func (m *Model) View() string {
	var s strings.Builder

	// Reserve one line for the summary and drop the oldest lines on overflow.
	visible := m.height - 1
	start := 0
	if visible > 0 && len(m.vertices) > visible {
		start = len(m.vertices) - visible
	}

	var done, failed int
	for _, v := range m.vertices {
		if v.Status == statusCompleted || v.Status == statusCached {
			done++
		}
		if v.Status == statusFailed {
			failed++
		}
	}

	for i := start; i < len(m.vertices); i++ {
		v := m.vertices[i]
		var icon string
		var style lipgloss.Style
		switch v.Status {
		case statusRunning:
			icon = m.spinner.View()
			style = m.styles.running
		case statusCompleted:
			icon = "✓"
			style = m.styles.completed
		case statusFailed:
			icon = "✗"
			style = m.styles.failed
		default: // cached
			icon = "⚡"
			style = m.styles.cached
		}

		line := fmt.Sprintf("%s %s\n", style.Render(icon), v.Name)
		s.WriteString(line)
	}

	summary := fmt.Sprintf("%d/%d done", done, len(m.vertices))
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	s.WriteString(m.styles.summary.Render(summary) + "\n")

	return s.String()
}
