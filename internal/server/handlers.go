package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/metrics"
)

func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func respondError(c *gin.Context, status int, message string, details map[string]string) {
	c.JSON(status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func (s *Server) health(c *gin.Context) {
	respondJSON(c, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) ready(c *gin.Context) {
	respondJSON(c, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) getState(c *gin.Context) {
	respondJSON(c, http.StatusOK, s.platform.State())
}

func (s *Server) getSnapshot(c *gin.Context) {
	respondJSON(c, http.StatusOK, s.platform.Snapshot())
}

func (s *Server) getNodes(c *gin.Context) {
	respondJSON(c, http.StatusOK, NodesResponse{Nodes: s.platform.State().Nodes})
}

func (s *Server) getMetrics(c *gin.Context) {
	window := s.platform.State().Metrics
	resp := MetricsResponse{Metrics: window}
	switch c.Query("summary") {
	case "", "0", "false":
	default:
		summary := metrics.Summarize(window)
		resp.Summary = &summary
	}
	respondJSON(c, http.StatusOK, resp)
}

func (s *Server) getTelemetry(c *gin.Context) {
	respondJSON(c, http.StatusOK, s.platform.State().Telemetry)
}

func (s *Server) getLogs(c *gin.Context) {
	respondJSON(c, http.StatusOK, LogsResponse{Logs: s.platform.Logs()})
}

func (s *Server) getAnalysis(c *gin.Context) {
	st := s.platform.State()
	respondJSON(c, http.StatusOK, InsightsResponse{
		Insights:  st.Insights,
		Analyzing: st.Analyzing,
		LastRunID: st.LastRunID,
	})
}

func (s *Server) postAnalysis(c *gin.Context) {
	res := s.platform.RunAnalysis(c.Request.Context())
	resp := AnalysisResponse{RunID: res.RunID, Outcome: string(res.Outcome), Text: res.Display()}
	if res.Outcome == analysis.OutcomeBusy {
		respondJSON(c, http.StatusConflict, resp)
		return
	}
	s.logger.Info("analysis served",
		zap.String("run_id", res.RunID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("operator", c.GetString(operatorKey)),
	)
	respondJSON(c, http.StatusOK, resp)
}

func (s *Server) getBootstrapScript(c *gin.Context) {
	script := s.platform.CopyScript()
	c.Header("X-Checksum-Sha256", bootstrap.Checksum())
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(script))
}

// stream sends the current state, then every change, as SSE "state" events.
func (s *Server) stream(c *gin.Context) {
	ch, cancel := s.platform.Subscribe()
	defer cancel()

	c.SSEvent("state", s.platform.State())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case st, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("state", st)
			return true
		}
	})
}
