package server

import (
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/model"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// AnalysisResponse is returned by POST /v1/analysis.
type AnalysisResponse struct {
	RunID   string `json:"run_id"`
	Outcome string `json:"outcome"`
	Text    string `json:"text"`
}

// InsightsResponse is returned by GET /v1/analysis.
type InsightsResponse struct {
	Insights  string `json:"insights"`
	Analyzing bool   `json:"analyzing"`
	LastRunID string `json:"last_run_id,omitempty"`
}

// MetricsResponse carries the inference window and, on request, its summary.
type MetricsResponse struct {
	Metrics []model.InferenceMetric `json:"metrics"`
	Summary *metrics.Summary        `json:"summary,omitempty"`
}

// NodesResponse lists the simulated boards.
type NodesResponse struct {
	Nodes []model.Node `json:"nodes"`
}

// LogsResponse carries the rendered event log, newest first.
type LogsResponse struct {
	Logs []string `json:"logs"`
}
