package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/revyl/liveview/internal/devserver"
)

type fakeServer struct {
	status  devserver.Status
	clients int
	reloads int
}

func (f *fakeServer) Status() devserver.Status {
	return f.status
}

func (f *fakeServer) Clients() int {
	return f.clients
}

func (f *fakeServer) Reloads() int {
	return f.reloads
}

func (f *fakeServer) Reload() int {
	f.reloads++
	return f.clients
}

func TestShouldRunTUI_Quiet(t *testing.T) {
	if ShouldRunTUI(true) {
		t.Error("ShouldRunTUI(true) = true, want false")
	}
}

func TestDashboard_ReloadKey(t *testing.T) {
	srv := &fakeServer{status: devserver.StatusRunning, clients: 2}
	m := newDashboardModel("v1", srv, nil)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("Update(r) returned nil cmd, want reload cmd")
	}
	msg := cmd()
	reloaded, ok := msg.(reloadedMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want reloadedMsg", msg)
	}
	if reloaded.notified != 2 {
		t.Errorf("notified = %d, want 2", reloaded.notified)
	}

	updated, _ = updated.Update(reloaded)
	dm := updated.(dashboardModel)
	if dm.reloads != 1 {
		t.Errorf("reloads = %d, want 1", dm.reloads)
	}
	if !strings.Contains(dm.View(), "Reload sent to 2 app(s)") {
		t.Errorf("View() missing reload confirmation:\n%s", dm.View())
	}
}

func TestDashboard_RefreshPicksUpCounters(t *testing.T) {
	srv := &fakeServer{status: devserver.StatusRunning}
	m := newDashboardModel("v1", srv, []Field{{Label: "Sources", Value: "http://127.0.0.1:8324"}})

	srv.clients = 3
	srv.reloads = 7
	updated, cmd := m.Update(refreshMsg{})
	if cmd == nil {
		t.Error("Update(refreshMsg) returned nil cmd, want next tick")
	}
	dm := updated.(dashboardModel)
	if dm.clients != 3 || dm.reloads != 7 {
		t.Errorf("counters = %d/%d, want 3/7", dm.clients, dm.reloads)
	}

	view := dm.View()
	for _, want := range []string{"Sources", "http://127.0.0.1:8324", "serving"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestDashboard_Quit(t *testing.T) {
	m := newDashboardModel("v1", &fakeServer{status: devserver.StatusRunning}, nil)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Update(q) returned nil cmd, want tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
	}
	if v := updated.(dashboardModel).View(); v != "" {
		t.Errorf("View() after quit = %q, want empty", v)
	}
}

func TestDashboard_ErrorStatus(t *testing.T) {
	m := newDashboardModel("v1", &fakeServer{status: devserver.StatusError}, nil)
	if !strings.Contains(m.View(), "error") {
		t.Errorf("View() missing error status:\n%s", m.View())
	}
}
