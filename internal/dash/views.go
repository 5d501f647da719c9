package dash

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/eventlog"
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/model"
)

const sparkChars = "▁▂▃▄▅▆▇█"

func (m Model) renderDashboard() string {
	st := m.state

	online := 0
	var cpu, temp float64
	for _, n := range st.Nodes {
		if n.Status == model.StatusOnline {
			online++
		}
		cpu += n.CPUUsage
		temp += n.Temp
	}
	if len(st.Nodes) > 0 {
		cpu /= float64(len(st.Nodes))
		temp /= float64(len(st.Nodes))
	}

	var latest model.InferenceMetric
	if len(st.Metrics) > 0 {
		latest = st.Metrics[len(st.Metrics)-1]
	}
	var accuracy float64
	if len(st.FedRounds) > 0 {
		accuracy = st.FedRounds[len(st.FedRounds)-1].Accuracy
	}

	boxes := []string{
		boxStyle.Render(fmt.Sprintf("Nodes\n%d/%d online", online, len(st.Nodes))),
		boxStyle.Render(fmt.Sprintf("Avg CPU\n%.1f%%", cpu)),
		boxStyle.Render(fmt.Sprintf("Avg Temp\n%s", tempStyle(temp).Render(fmt.Sprintf("%.1f°C", temp)))),
		boxStyle.Render(fmt.Sprintf("Latency\n%.1f ms", latest.Latency)),
		boxStyle.Render(fmt.Sprintf("Throughput\n%.1f req/s", latest.Throughput)),
		boxStyle.Render(fmt.Sprintf("FL Accuracy\n%.1f%%", accuracy*100)),
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	b.WriteString("Latency  " + sparkline(latencies(st.Metrics)))
	b.WriteString("\n\n")
	for i, e := range st.Logs {
		if i == 5 {
			break
		}
		b.WriteString(dimStyle.Render(eventlog.Format(e)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderNodes() string {
	cols := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Name", Width: 18},
		{Title: "Role", Width: 7},
		{Title: "Status", Width: 8},
		{Title: "CPU", Width: 6},
		{Title: "Mem", Width: 6},
		{Title: "Temp", Width: 7},
		{Title: "NVMe", Width: 8},
		{Title: "Uptime", Width: 8},
		{Title: "Mesh IP", Width: 12},
	}
	rows := make([]table.Row, 0, len(m.state.Nodes))
	for _, n := range m.state.Nodes {
		rows = append(rows, table.Row{
			n.ID,
			n.Name,
			n.Role,
			n.Status,
			fmt.Sprintf("%.1f%%", n.CPUUsage),
			fmt.Sprintf("%.0f%%", n.MemoryUsage),
			fmt.Sprintf("%.1f°C", n.Temp),
			n.NVMeStatus,
			n.Uptime,
			n.MeshIP,
		})
	}
	return m.renderTable(cols, rows)
}

func (m Model) renderInference() string {
	sum := metrics.Summarize(m.state.Metrics)

	var b strings.Builder
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"Window %d\nlatency avg %.1f  p95 %.1f  min %.1f  max %.1f ms\nthroughput avg %.1f  min %.1f  max %.1f req/s",
		sum.Count,
		sum.AvgLatencyMs, sum.P95LatencyMs, sum.MinLatencyMs, sum.MaxLatencyMs,
		sum.AvgThroughput, sum.MinThroughput, sum.MaxThroughput,
	)))
	b.WriteString("\n\n")
	b.WriteString("Latency     " + sparkline(latencies(m.state.Metrics)) + "\n")
	b.WriteString("Throughput  " + sparkline(throughputs(m.state.Metrics)) + "\n")
	if sum.Count > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s .. %s", sum.From, sum.To)))
	}
	return b.String()
}

func (m Model) renderFederated() string {
	cols := []table.Column{
		{Title: "Round", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Loss", Width: 7},
		{Title: "Clients", Width: 8},
		{Title: "Time", Width: 8},
	}
	rows := make([]table.Row, 0, len(m.state.FedRounds))
	for _, r := range m.state.FedRounds {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.Round),
			fmt.Sprintf("%.1f%%", r.Accuracy*100),
			fmt.Sprintf("%.2f", r.Loss),
			fmt.Sprintf("%d", r.Clients),
			r.Timestamp,
		})
	}
	return m.renderTable(cols, rows)
}

func (m Model) renderMarketplace() string {
	cols := []table.Column{
		{Title: "Model", Width: 22},
		{Title: "Version", Width: 8},
		{Title: "Size", Width: 8},
		{Title: "Hash", Width: 14},
		{Title: "Status", Width: 9},
	}
	rows := make([]table.Row, 0, len(m.state.Models))
	for _, lm := range m.state.Models {
		rows = append(rows, table.Row{lm.Name, lm.Version, lm.Size, lm.Hash, lm.Status})
	}
	return m.renderTable(cols, rows)
}

func (m Model) renderPeers() string {
	cols := []table.Column{
		{Title: "Peer", Width: 14},
		{Title: "Type", Width: 10},
		{Title: "Address", Width: 22},
		{Title: "Traffic", Width: 10},
		{Title: "Latency", Width: 8},
	}
	rows := make([]table.Row, 0, len(m.state.Peers))
	for _, p := range m.state.Peers {
		rows = append(rows, table.Row{p.ID, p.Type, p.Address, p.Traffic, p.Latency})
	}
	return m.renderTable(cols, rows)
}

func (m Model) renderTelemetry() string {
	t := m.state.Telemetry
	return lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(fmt.Sprintf("Ambient\n%.2f°C", t.Temp)),
		boxStyle.Render(fmt.Sprintf("Humidity\n%.2f%%", t.Humidity)),
		boxStyle.Render(fmt.Sprintf("Pressure\n%.1f hPa", t.Pressure)),
		boxStyle.Render(fmt.Sprintf("Accel (g)\nx %.2f  y %.2f  z %.2f", t.Accel.X, t.Accel.Y, t.Accel.Z)),
	)
}

func (m Model) renderLogs() string {
	if len(m.state.Logs) == 0 {
		return dimStyle.Render("No events.")
	}
	lines := make([]string, len(m.state.Logs))
	for i, e := range m.state.Logs {
		lines[i] = eventlog.Format(e)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderInsights() string {
	switch {
	case m.state.Analyzing:
		return warnStyle.Render("Analyzing cluster state...")
	case m.state.Insights == "":
		return dimStyle.Render("No analysis yet. Press a to run one.")
	}
	return m.state.Insights
}

func (m Model) renderSetup() string {
	var b strings.Builder
	b.WriteString(boxStyle.Render(bootstrap.Script))
	b.WriteString("\n")
	if m.copied {
		b.WriteString(successStyle.Render("Copied!"))
	} else {
		b.WriteString(dimStyle.Render("Press c to copy the bootstrap script."))
	}
	return b.String()
}

func tempStyle(c float64) lipgloss.Style {
	switch {
	case c >= 70:
		return errorStyle
	case c >= 60:
		return warnStyle
	}
	return successStyle
}

func latencies(items []model.InferenceMetric) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.Latency
	}
	return out
}

func throughputs(items []model.InferenceMetric) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.Throughput
	}
	return out
}

func sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	ticks := []rune(sparkChars)
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(ticks)-1))
		}
		b.WriteRune(ticks[idx])
	}
	return b.String()
}
