package metrics

import (
	"math"
	"sort"

	"sovereignctl/internal/model"
)

// Summary is a basic statistics snapshot of the inference window.
type Summary struct {
	Count         int     `json:"count"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	AvgThroughput float64 `json:"avg_throughput"`
	MinThroughput float64 `json:"min_throughput"`
	MaxThroughput float64 `json:"max_throughput"`
}

// Summarize computes summary metrics for the window, oldest sample first.
func Summarize(items []model.InferenceMetric) Summary {
	if len(items) == 0 {
		return Summary{Count: 0}
	}

	values := make([]float64, 0, len(items))
	var sumLatency, sumThroughput float64
	minLatency, minThroughput := math.MaxFloat64, math.MaxFloat64
	maxLatency, maxThroughput := 0.0, 0.0

	for _, m := range items {
		values = append(values, m.Latency)
		sumLatency += m.Latency
		sumThroughput += m.Throughput
		minLatency = math.Min(minLatency, m.Latency)
		maxLatency = math.Max(maxLatency, m.Latency)
		minThroughput = math.Min(minThroughput, m.Throughput)
		maxThroughput = math.Max(maxThroughput, m.Throughput)
	}

	sort.Float64s(values)
	count := float64(len(items))

	return Summary{
		Count:         len(items),
		From:          items[0].Timestamp,
		To:            items[len(items)-1].Timestamp,
		AvgLatencyMs:  sumLatency / count,
		P95LatencyMs:  percentile(values, 0.95),
		MinLatencyMs:  minLatency,
		MaxLatencyMs:  maxLatency,
		AvgThroughput: sumThroughput / count,
		MinThroughput: minThroughput,
		MaxThroughput: maxThroughput,
	}
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
