package sim

import (
	"time"

	"sovereignctl/internal/model"
)

// DefaultInterval is how often the dashboard advances the simulation.
const DefaultInterval = 3 * time.Second

const (
	CPUMin  = 0.0
	CPUMax  = 100.0
	TempMin = 30.0
	TempMax = 85.0

	cpuSpread      = 8.0
	tempSpread     = 1.5
	ambientSpread  = 0.05
	humiditySpread = 0.2
	pressureSpread = 0.1
	accelSpread    = 0.01

	// SampleLayout labels samples appended by Tick.
	SampleLayout = "15:04:05"
)

// Options tune the transition.
type Options struct {
	// DriftAll also random-walks pressure and acceleration. Off by
	// default, where those fields are carried through unchanged.
	DriftAll bool
}

// Generator applies Tick with a fixed random source, clock and options.
type Generator struct {
	Rand  Rand
	Clock Clock
	Opts  Options
}

// NewGenerator returns a generator with the given source. A nil clock
// falls back to the system clock.
func NewGenerator(r Rand, clock Clock, opts Options) *Generator {
	if clock == nil {
		clock = RealClock{}
	}
	return &Generator{Rand: r, Clock: clock, Opts: opts}
}

// Tick advances the inputs by one step. See the package-level Tick.
func (g *Generator) Tick(nodes []model.Node, metrics []model.InferenceMetric, tel model.TelemetryReading) ([]model.Node, []model.InferenceMetric, model.TelemetryReading) {
	return Tick(g.Rand, g.Clock, g.Opts, nodes, metrics, tel)
}

// Tick is the pure per-interval transition. Inputs are never modified;
// new slices are returned.
//
// Draw order per call: two draws per node (cpu, temp), two for the new
// sample (latency, throughput) when the window is non-empty, then two for
// telemetry (temp, humidity), then four more with DriftAll (pressure, x, y, z).
func Tick(r Rand, clock Clock, opts Options, nodes []model.Node, metrics []model.InferenceMetric, tel model.TelemetryReading) ([]model.Node, []model.InferenceMetric, model.TelemetryReading) {
	return TickNodes(r, nodes), TickMetrics(r, clock, metrics), TickTelemetry(r, opts, tel)
}

// TickNodes random-walks cpu and temperature with clamping.
func TickNodes(r Rand, nodes []model.Node) []model.Node {
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		n.CPUUsage = clamp(n.CPUUsage+jitter(r, cpuSpread), CPUMin, CPUMax)
		n.Temp = clamp(n.Temp+jitter(r, tempSpread), TempMin, TempMax)
		out[i] = n
	}
	return out
}

// TickMetrics slides the window by one fresh sample. The length never
// changes, so an empty window stays empty.
func TickMetrics(r Rand, clock Clock, metrics []model.InferenceMetric) []model.InferenceMetric {
	if len(metrics) == 0 {
		return []model.InferenceMetric{}
	}
	out := make([]model.InferenceMetric, 0, len(metrics))
	out = append(out, metrics[1:]...)
	out = append(out, model.InferenceMetric{
		Timestamp:  clock.Now().Format(SampleLayout),
		Latency:    uniform(r, LatencyMin, LatencyMax),
		Throughput: uniform(r, ThroughputMin, ThroughputMax),
	})
	return out
}

// TickTelemetry drifts ambient temperature and humidity without bounds.
func TickTelemetry(r Rand, opts Options, tel model.TelemetryReading) model.TelemetryReading {
	tel.Temp += jitter(r, ambientSpread)
	tel.Humidity += jitter(r, humiditySpread)
	if opts.DriftAll {
		tel.Pressure += jitter(r, pressureSpread)
		tel.Accel.X += jitter(r, accelSpread)
		tel.Accel.Y += jitter(r, accelSpread)
		tel.Accel.Z += jitter(r, accelSpread)
	}
	return tel
}
