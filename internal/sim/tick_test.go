package sim

import (
	"testing"
	"time"

	"sovereignctl/internal/model"
)

// seqRand replays a fixed sequence of draws, cycling when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestInitialNodes_Seed(t *testing.T) {
	t.Parallel()

	nodes := InitialNodes()
	if len(nodes) != 4 {
		t.Fatalf("nodes=%d", len(nodes))
	}
	masters := 0
	for i, n := range nodes {
		want := []string{"pi-01", "pi-02", "pi-03", "pi-04"}[i]
		if n.ID != want {
			t.Fatalf("node[%d].id=%q want %q", i, n.ID, want)
		}
		if n.Role == model.RoleMaster {
			masters++
		}
	}
	if masters != 1 {
		t.Fatalf("masters=%d", masters)
	}

	// Deterministic: a second call is equal and independent.
	again := InitialNodes()
	again[0].CPUUsage = 99
	if InitialNodes()[0].CPUUsage != 18 {
		t.Fatalf("seed data mutated through returned slice")
	}
}

func TestInitialMetrics_LabelsAndRanges(t *testing.T) {
	t.Parallel()

	r := &seqRand{vals: []float64{0, 0.5, 0.999999}}
	metrics := InitialMetrics(r, DefaultWindow)
	if len(metrics) != DefaultWindow {
		t.Fatalf("len=%d", len(metrics))
	}
	if metrics[0].Timestamp != "0:00" || metrics[23].Timestamp != "23:00" {
		t.Fatalf("labels=%q..%q", metrics[0].Timestamp, metrics[23].Timestamp)
	}
	for i, m := range metrics {
		if m.Latency < LatencyMin || m.Latency >= LatencyMax {
			t.Fatalf("metric[%d] latency=%v", i, m.Latency)
		}
		if m.Throughput < ThroughputMin || m.Throughput >= ThroughputMax {
			t.Fatalf("metric[%d] throughput=%v", i, m.Throughput)
		}
	}
	if got := InitialMetrics(r, 0); len(got) != 0 {
		t.Fatalf("len=%d", len(got))
	}
}

func TestTick_ExactValues(t *testing.T) {
	t.Parallel()

	r := &seqRand{vals: []float64{0.75}}
	clock := &fixedClock{t: time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)}
	nodes := InitialNodes()
	metrics := []model.InferenceMetric{
		{Timestamp: "0:00", Latency: 20, Throughput: 60},
		{Timestamp: "1:00", Latency: 21, Throughput: 61},
	}
	tel := InitialTelemetry()

	n2, m2, t2 := Tick(r, clock, Options{}, nodes, metrics, tel)

	if n2[0].CPUUsage != 20 || n2[0].Temp != 45.375 {
		t.Fatalf("node0=%+v", n2[0])
	}
	if n2[3].CPUUsage != 12 || n2[3].Temp != 41.375 {
		t.Fatalf("node3=%+v", n2[3])
	}
	if n2[0].MemoryUsage != 32 || n2[0].Name != "Sovereign-Master" || n2[0].Uptime != "14d 2h" {
		t.Fatalf("immutable fields changed: %+v", n2[0])
	}

	if len(m2) != 2 {
		t.Fatalf("len=%d", len(m2))
	}
	if m2[0].Timestamp != "1:00" {
		t.Fatalf("oldest not dropped: %+v", m2)
	}
	if m2[1].Timestamp != "13:04:05" || m2[1].Latency != 25.5 || m2[1].Throughput != 68.75 {
		t.Fatalf("new sample=%+v", m2[1])
	}

	wantTemp := tel.Temp + (0.75-0.5)*ambientSpread
	wantHum := tel.Humidity + (0.75-0.5)*humiditySpread
	if t2.Temp != wantTemp || t2.Humidity != wantHum {
		t.Fatalf("telemetry=%+v", t2)
	}
	if t2.Pressure != tel.Pressure || t2.Accel != tel.Accel {
		t.Fatalf("pressure/accel changed without DriftAll: %+v", t2)
	}

	// Inputs untouched.
	if nodes[0].CPUUsage != 18 || metrics[0].Timestamp != "0:00" {
		t.Fatalf("inputs mutated")
	}
}

func TestTick_Clamps(t *testing.T) {
	t.Parallel()

	nodes := []model.Node{
		{ID: "hot", CPUUsage: 99, Temp: 84.9},
		{ID: "cold", CPUUsage: 1, Temp: 30.1},
	}

	up := TickNodes(&seqRand{vals: []float64{0.999999}}, nodes)
	if up[0].CPUUsage != CPUMax || up[0].Temp != TempMax {
		t.Fatalf("upper clamp: %+v", up[0])
	}

	down := TickNodes(&seqRand{vals: []float64{0}}, nodes)
	if down[1].CPUUsage != CPUMin || down[1].Temp != TempMin {
		t.Fatalf("lower clamp: %+v", down[1])
	}
}

func TestTick_NewestTimestampChanges(t *testing.T) {
	t.Parallel()

	r := NewRand(7)
	clock := &fixedClock{t: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
	metrics := InitialMetrics(r, DefaultWindow)

	prev := metrics[len(metrics)-1].Timestamp
	for i := 0; i < 50; i++ {
		clock.advance(DefaultInterval)
		metrics = TickMetrics(r, clock, metrics)
		if len(metrics) != DefaultWindow {
			t.Fatalf("tick %d len=%d", i, len(metrics))
		}
		newest := metrics[len(metrics)-1].Timestamp
		if newest == prev {
			t.Fatalf("tick %d newest timestamp unchanged: %q", i, newest)
		}
		prev = newest
	}
}

func TestTickMetrics_EmptyWindow(t *testing.T) {
	t.Parallel()

	out := TickMetrics(&seqRand{vals: []float64{0.5}}, RealClock{}, nil)
	if len(out) != 0 {
		t.Fatalf("len=%d", len(out))
	}
}

func TestTickTelemetry_DriftAll(t *testing.T) {
	t.Parallel()

	tel := InitialTelemetry()
	out := TickTelemetry(&seqRand{vals: []float64{1.0 - 1e-9}}, Options{DriftAll: true}, tel)
	if out.Pressure == tel.Pressure {
		t.Fatalf("pressure did not drift")
	}
	if out.Accel.X == tel.Accel.X || out.Accel.Z == tel.Accel.Z {
		t.Fatalf("accel did not drift: %+v", out.Accel)
	}
}

func TestGenerator_DefaultsClock(t *testing.T) {
	t.Parallel()

	g := NewGenerator(NewRand(1), nil, Options{})
	if _, ok := g.Clock.(RealClock); !ok {
		t.Fatalf("clock=%T", g.Clock)
	}
	nodes, metrics, _ := g.Tick(InitialNodes(), InitialMetrics(g.Rand, 3), InitialTelemetry())
	if len(nodes) != 4 || len(metrics) != 3 {
		t.Fatalf("nodes=%d metrics=%d", len(nodes), len(metrics))
	}
}
