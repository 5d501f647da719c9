package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sovereignctl/internal/model"
)

// Display strings returned in place of errors.
const (
	EmptyText   = "Unable to generate sovereign insights at this time."
	FailureText = "Analysis failed. Ensure your platform has external gateway access for this specific request or check API configuration."
	BusyText    = "Analysis already in progress."
)

var (
	ErrEmptyResponse = errors.New("analysis: empty response")
	ErrBusy          = errors.New("analysis: request already in flight")
)

// Outcome classifies a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
	OutcomeBusy    Outcome = "busy"
)

// Result is the structured result of one Analyze call.
type Result struct {
	RunID    string
	Outcome  Outcome
	Text     string
	Err      error
	Duration time.Duration
}

// Display returns the single string shown to the user for r.
func (r Result) Display() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return r.Text
	case OutcomeEmpty:
		return EmptyText
	case OutcomeBusy:
		return BusyText
	default:
		return FailureText
	}
}

// Gateway turns a snapshot into one outbound generation call. At most one
// call is in flight at a time.
type Gateway struct {
	gen      Generator
	logger   *zap.Logger
	inFlight atomic.Bool
	now      func() time.Time
}

// NewGateway wraps gen. A nil logger discards output.
func NewGateway(gen Generator, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{gen: gen, logger: logger, now: time.Now}
}

// Busy reports whether a call is currently in flight.
func (g *Gateway) Busy() bool { return g.inFlight.Load() }

// Request is Analyze flattened to its display string. It never fails.
func (g *Gateway) Request(ctx context.Context, snap model.Snapshot) string {
	return g.Analyze(ctx, snap).Display()
}

// Analyze builds the prompt and issues the call. Failures are logged and
// classified, never returned as errors.
func (g *Gateway) Analyze(ctx context.Context, snap model.Snapshot) Result {
	if !g.inFlight.CompareAndSwap(false, true) {
		return Result{Outcome: OutcomeBusy, Err: ErrBusy}
	}
	defer g.inFlight.Store(false)

	res := Result{RunID: uuid.NewString()}
	start := g.now()
	log := g.logger.With(zap.String("run_id", res.RunID))

	text, err := g.generate(ctx, res.RunID, snap)
	res.Duration = g.now().Sub(start)
	switch {
	case err != nil:
		log.Error("analysis request failed", zap.Error(err), zap.Duration("duration", res.Duration))
		res.Outcome = OutcomeFailure
		res.Err = err
	case text == "":
		log.Warn("analysis returned no text", zap.Duration("duration", res.Duration))
		res.Outcome = OutcomeEmpty
		res.Err = ErrEmptyResponse
	default:
		log.Info("analysis complete", zap.Int("chars", len(text)), zap.Duration("duration", res.Duration))
		res.Outcome = OutcomeSuccess
		res.Text = text
	}
	return res
}

func (g *Gateway) generate(ctx context.Context, runID string, snap model.Snapshot) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("analysis backend panicked", zap.Any("panic", r))
			text, err = "", errors.New("analysis: backend panic")
		}
	}()
	prompt, err := BuildPrompt(snap)
	if err != nil {
		return "", err
	}
	return g.gen.Generate(ctx, Request{RunID: runID, Prompt: prompt})
}
