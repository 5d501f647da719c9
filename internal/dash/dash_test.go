package dash

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/model"
	"sovereignctl/internal/sim"
)

type fakePlatform struct {
	mu       sync.Mutex
	state    model.State
	states   chan model.State
	analyses int
	copies   int
	logs     []string
}

func newFakePlatform() *fakePlatform {
	r := sim.NewRand(1)
	return &fakePlatform{
		state: model.State{
			Nodes:     sim.InitialNodes(),
			Metrics:   sim.InitialMetrics(r, 24),
			Telemetry: sim.InitialTelemetry(),
			Models:    sim.InitialModels(),
			FedRounds: sim.InitialRounds(),
			Peers:     sim.InitialPeers(),
		},
		states: make(chan model.State, 1),
	}
}

func (f *fakePlatform) State() model.State { return f.state }

func (f *fakePlatform) RunAnalysis(context.Context) analysis.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses++
	return analysis.Result{Outcome: analysis.OutcomeSuccess, Text: "ok"}
}

func (f *fakePlatform) CopyScript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies++
	return bootstrap.Script
}

func (f *fakePlatform) Log(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, msg)
}

func (f *fakePlatform) Subscribe() (<-chan model.State, func()) {
	return f.states, func() {}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func sized(t *testing.T, p Platform) Model {
	t.Helper()
	m, _ := update(t, New(p), tea.WindowSizeMsg{Width: 160, Height: 50})
	return m
}

func TestView_InitializingBeforeSize(t *testing.T) {
	t.Parallel()

	m := New(newFakePlatform())
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("got=%q", got)
	}
}

func TestTabCycling(t *testing.T) {
	t.Parallel()

	m := sized(t, newFakePlatform())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != viewNodes {
		t.Fatalf("view=%d", m.view)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.view != viewSetup {
		t.Fatalf("view=%d, want wrap to setup", m.view)
	}
}

func TestViews_Render(t *testing.T) {
	t.Parallel()

	m := sized(t, newFakePlatform())
	want := map[view]string{
		viewDashboard:   "online",
		viewNodes:       "Sovereign-Master",
		viewInference:   "Window 24",
		viewFederated:   "Accuracy",
		viewMarketplace: "Version",
		viewP2P:         "Syncthing",
		viewTelemetry:   "1012.8 hPa",
		viewLogs:        "No events.",
		viewInsights:    "No analysis yet",
		viewSetup:       "Press c to copy",
	}
	for v, s := range want {
		m.view = v
		if out := m.View(); !strings.Contains(out, s) {
			t.Fatalf("%s view missing %q:\n%s", viewNames[v], s, out)
		}
	}
}

func TestStateMsg_ReplacesState(t *testing.T) {
	t.Parallel()

	m := sized(t, newFakePlatform())
	m, cmd := update(t, m, stateMsg(model.State{Ticks: 7, Insights: "## Healthy"}))
	if m.state.Ticks != 7 {
		t.Fatalf("ticks=%d", m.state.Ticks)
	}
	if cmd == nil {
		t.Fatalf("expected a wait command")
	}
	m.view = viewInsights
	if !strings.Contains(m.View(), "## Healthy") {
		t.Fatalf("insights not rendered")
	}
}

func TestWaitForState_ClosedChannel(t *testing.T) {
	t.Parallel()

	ch := make(chan model.State)
	close(ch)
	if msg := waitForState(ch)(); msg != nil {
		t.Fatalf("msg=%v", msg)
	}
}

func TestAnalyzeKey(t *testing.T) {
	t.Parallel()

	p := newFakePlatform()
	m := sized(t, p)

	m, cmd := update(t, m, runes("a"))
	if cmd == nil || !m.state.Analyzing {
		t.Fatalf("expected analysis command")
	}

	// Pressed again while running.
	_, again := update(t, m, runes("a"))
	if again != nil {
		t.Fatalf("analysis started twice")
	}

	msg := cmd()
	if p.analyses != 1 {
		t.Fatalf("analyses=%d", p.analyses)
	}
	m, _ = update(t, m, msg)
	if m.view != viewInsights {
		t.Fatalf("view=%d", m.view)
	}
}

func TestAnalysisDone_Busy(t *testing.T) {
	t.Parallel()

	m := sized(t, newFakePlatform())
	m, _ = update(t, m, analysisDoneMsg(analysis.Result{Outcome: analysis.OutcomeBusy}))
	if m.message != analysis.BusyText || m.view != viewDashboard {
		t.Fatalf("message=%q view=%d", m.message, m.view)
	}
}

func TestCopyKey(t *testing.T) {
	t.Parallel()

	p := newFakePlatform()
	m := sized(t, p)
	var got string
	m.copy = func(s string) error { got = s; return nil }

	m, cmd := update(t, m, runes("c"))
	if got != bootstrap.Script || p.copies != 1 {
		t.Fatalf("copies=%d got=%q", p.copies, got)
	}
	if !m.copied || cmd == nil {
		t.Fatalf("expected copied flag and reset timer")
	}
	m.view = viewSetup
	if !strings.Contains(m.View(), "Copied!") {
		t.Fatalf("copied indicator missing")
	}

	m, _ = update(t, m, copyResetMsg{})
	if m.copied {
		t.Fatalf("copied flag not reset")
	}
}

func TestCopyKey_ClipboardError(t *testing.T) {
	t.Parallel()

	p := newFakePlatform()
	m := sized(t, p)
	m.copy = func(string) error { return errors.New("no xclip") }

	m, cmd := update(t, m, runes("c"))
	if cmd != nil || m.copied {
		t.Fatalf("unexpected success")
	}
	if !strings.Contains(m.message, "no xclip") {
		t.Fatalf("message=%q", m.message)
	}
	if p.copies != 0 {
		t.Fatalf("copy logged although the clipboard failed")
	}
	if len(p.logs) != 1 || !strings.HasPrefix(p.logs[0], "Clipboard write failed") {
		t.Fatalf("logs=%v", p.logs)
	}
}

func TestQuitKey(t *testing.T) {
	t.Parallel()

	m := sized(t, newFakePlatform())
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestSparkline(t *testing.T) {
	t.Parallel()

	if got := sparkline([]float64{1, 2, 3}); got != "▁▄█" {
		t.Fatalf("got=%q", got)
	}
	if got := sparkline([]float64{5, 5}); got != "▁▁" {
		t.Fatalf("got=%q", got)
	}
	if got := sparkline(nil); got != "" {
		t.Fatalf("got=%q", got)
	}
}
