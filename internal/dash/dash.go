// Package dash is the terminal dashboard for the simulated edge cluster.
package dash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/model"
)

// Platform is the part of the controller the dashboard drives.
type Platform interface {
	State() model.State
	RunAnalysis(ctx context.Context) analysis.Result
	CopyScript() string
	Log(msg string)
	Subscribe() (<-chan model.State, func())
}

type view int

const (
	viewDashboard view = iota
	viewNodes
	viewInference
	viewFederated
	viewMarketplace
	viewP2P
	viewTelemetry
	viewLogs
	viewInsights
	viewSetup
	viewCount
)

var viewNames = [...]string{
	viewDashboard:   "Dashboard",
	viewNodes:       "Nodes",
	viewInference:   "Inference",
	viewFederated:   "Federated",
	viewMarketplace: "Marketplace",
	viewP2P:         "P2P",
	viewTelemetry:   "Telemetry",
	viewLogs:        "Logs",
	viewInsights:    "Insights",
	viewSetup:       "Setup",
}

const copiedFor = 2 * time.Second

type stateMsg model.State

type analysisDoneMsg analysis.Result

type copyResetMsg struct{}

// Model is the bubbletea model behind the dashboard.
type Model struct {
	platform Platform
	states   <-chan model.State
	cancel   func()
	copy     func(string) error

	state   model.State
	view    view
	keys    keyMap
	help    help.Model
	width   int
	height  int
	copied  bool
	message string
}

// New builds a model subscribed to p. The subscription is released by Close.
func New(p Platform) Model {
	states, cancel := p.Subscribe()
	return Model{
		platform: p,
		states:   states,
		cancel:   cancel,
		copy:     clipboard.WriteAll,
		state:    p.State(),
		keys:     keys,
		help:     help.New(),
	}
}

// Close releases the state subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run shows the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, p Platform) error {
	m := New(p)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func waitForState(ch <-chan model.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (m Model) runAnalysis() tea.Cmd {
	p := m.platform
	return func() tea.Msg {
		return analysisDoneMsg(p.RunAnalysis(context.Background()))
	}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.states)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.state = model.State(msg)
		return m, waitForState(m.states)

	case analysisDoneMsg:
		res := analysis.Result(msg)
		if res.Outcome == analysis.OutcomeBusy {
			m.message = analysis.BusyText
		} else {
			m.message = ""
			m.view = viewInsights
		}
		return m, nil

	case copyResetMsg:
		m.copied = false
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.view = (m.view + 1) % viewCount
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.view = (m.view + viewCount - 1) % viewCount
			return m, nil

		case key.Matches(msg, m.keys.Analyze):
			if m.state.Analyzing {
				return m, nil
			}
			m.state.Analyzing = true
			m.message = ""
			return m, m.runAnalysis()

		case key.Matches(msg, m.keys.Copy):
			if err := m.copy(bootstrap.Script); err != nil {
				m.message = "clipboard unavailable: " + err.Error()
				m.platform.Log("Clipboard write failed: " + err.Error())
				return m, nil
			}
			m.platform.CopyScript()
			m.copied = true
			return m, tea.Tick(copiedFor, func(time.Time) tea.Msg { return copyResetMsg{} })
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sovereign Edge Cluster"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  tick %d", m.state.Ticks)))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	var content string
	switch m.view {
	case viewDashboard:
		content = m.renderDashboard()
	case viewNodes:
		content = m.renderNodes()
	case viewInference:
		content = m.renderInference()
	case viewFederated:
		content = m.renderFederated()
	case viewMarketplace:
		content = m.renderMarketplace()
	case viewP2P:
		content = m.renderPeers()
	case viewTelemetry:
		content = m.renderTelemetry()
	case viewLogs:
		content = m.renderLogs()
	case viewInsights:
		content = m.renderInsights()
	case viewSetup:
		content = m.renderSetup()
	}
	b.WriteString(contentStyle.Render(content))

	if m.message != "" {
		b.WriteString("\n\n")
		b.WriteString(contentStyle.Render(errorStyle.Render(m.message)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for v := view(0); v < viewCount; v++ {
		if v == m.view {
			tabs = append(tabs, activeTabStyle.Render(viewNames[v]))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(viewNames[v]))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderTable(cols []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	return t.View()
}
