package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"
)

// Status of a single check or of the whole report.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check is the outcome of one diagnostic.
type Check struct {
	Name     string            `json:"name"`
	Status   Status            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// Report aggregates checks; Status is the worst of them.
type Report struct {
	Status Status  `json:"status"`
	Checks []Check `json:"checks"`
}

// Options select what Run probes.
type Options struct {
	STUNServers []string
	STUNTimeout time.Duration
	Endpoint    string
	APIKey      string
	HTTPClient  *http.Client
	SkipNetwork bool
}

// Run executes every diagnostic in order and aggregates the result.
func Run(ctx context.Context, opts Options) Report {
	checks := []Check{CheckAPIKey(opts.APIKey)}
	if !opts.SkipNetwork {
		checks = append(checks,
			CheckGateway(ctx, opts.HTTPClient, opts.Endpoint),
			CheckSTUN(ctx, opts.STUNServers, opts.STUNTimeout),
		)
	}
	return Aggregate(checks...)
}

// Aggregate builds a report with worst-status-wins.
func Aggregate(checks ...Check) Report {
	r := Report{Status: StatusHealthy, Checks: checks}
	for _, c := range checks {
		if c.Status.rank() > r.Status.rank() {
			r.Status = c.Status
		}
	}
	return r
}

// CheckAPIKey reports degraded when no key is configured: analysis requests
// will then return the failure text.
func CheckAPIKey(key string) Check {
	c := Check{Name: "api_key", Status: StatusHealthy, Message: "API_KEY set"}
	if strings.TrimSpace(key) == "" {
		c.Status = StatusDegraded
		c.Message = "API_KEY is empty; analysis will fail"
	}
	return c
}

// CheckGateway verifies the analysis endpoint answers at all. Any HTTP
// status counts as reachable; only transport errors are unhealthy.
func CheckGateway(ctx context.Context, client *http.Client, endpoint string) Check {
	c := Check{Name: "gateway", Details: map[string]string{"endpoint": endpoint}}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.Status = StatusUnhealthy
		c.Message = err.Error()
		return c
	}
	res, err := client.Do(req)
	c.Duration = time.Since(start)
	if err != nil {
		c.Status = StatusUnhealthy
		c.Message = err.Error()
		return c
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	c.Status = StatusHealthy
	c.Message = "reachable"
	c.Details["http_status"] = res.Status
	return c
}

// WriteText renders the report as an aligned table.
func WriteText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CHECK\tSTATUS\tMESSAGE\n")
	for _, c := range r.Checks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Status, c.Message)
	}
	fmt.Fprintf(tw, "overall\t%s\t\n", r.Status)
	return tw.Flush()
}
