package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/revyl/liveview/internal/devserver"
)

// refreshInterval is how often the dashboard polls the server counters.
const refreshInterval = 500 * time.Millisecond

// Server is the part of the dev server the dashboard reads and drives.
type Server interface {
	Status() devserver.Status
	Clients() int
	Reloads() int
	Reload() int
}

// Field is a labelled line shown under the dashboard header.
type Field struct {
	Label string
	Value string
}

// refreshMsg asks the dashboard to re-read the server counters.
type refreshMsg struct{}

// reloadedMsg reports a manual reload.
type reloadedMsg struct {
	notified int
	at       time.Time
}

type dashboardModel struct {
	version string
	server  Server
	fields  []Field
	spinner spinner.Model

	status     devserver.Status
	clients    int
	reloads    int
	lastReload time.Time
	lastNotify int
	width      int
	quitting   bool
}

func newDashboardModel(version string, server Server, fields []Field) dashboardModel {
	m := dashboardModel{
		version: version,
		server:  server,
		fields:  fields,
		spinner: newSpinner(),
		width:   60,
	}
	m.refresh()
	return m
}

func (m *dashboardModel) refresh() {
	m.status = m.server.Status()
	m.clients = m.server.Clients()
	m.reloads = m.server.Reloads()
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(_ time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func reloadCmd(server Server) tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{notified: server.Reload(), at: time.Now()}
	}
}

// Init starts the spinner and the refresh loop.
func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshCmd())
}

// Update handles key presses, refresh ticks and reload results.
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, reloadCmd(m.server)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.refresh()
		return m, refreshCmd()

	case reloadedMsg:
		m.lastReload = msg.at
		m.lastNotify = msg.notified
		m.refresh()
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("LIVEVIEW"))
	b.WriteString(" ")
	b.WriteString(versionStyle.Render(m.version))
	b.WriteString("\n")
	b.WriteString(separator(min(m.width, 60)))
	b.WriteString("\n")

	for _, f := range m.fields {
		b.WriteString(labelStyle.Render(f.Label))
		b.WriteString(valueStyle.Render(f.Value))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.status {
	case devserver.StatusRunning:
		b.WriteString(m.spinner.View())
		b.WriteString(runningStyle.Render(" serving"))
	case devserver.StatusError:
		b.WriteString(errorStyle.Render("✗ error"))
	default:
		b.WriteString(helpStyle.Render(string(m.status)))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Apps connected"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.clients)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Reloads"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.reloads)))
	b.WriteString("\n")

	if !m.lastReload.IsZero() {
		b.WriteString(successStyle.Render(fmt.Sprintf("✓ Reload sent to %d app(s) at %s",
			m.lastNotify, m.lastReload.Format("15:04:05"))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r reload • q quit"))
	b.WriteString("\n")
	return b.String()
}

// RunDashboard shows the dashboard until the user quits or ctx is done.
//
// Parameters:
//   - ctx: Context whose cancellation closes the dashboard
//   - version: CLI version for the header
//   - server: The running dev server
//   - fields: Endpoint details to display
//
// Returns:
//   - error: any error from the Bubble Tea runtime
func RunDashboard(ctx context.Context, version string, server Server, fields []Field) error {
	p := tea.NewProgram(newDashboardModel(version, server, fields))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
