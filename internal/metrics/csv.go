package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"sovereignctl/internal/model"
)

var csvHeader = []string{"timestamp", "latency_ms", "throughput_rps"}

// WriteCSV writes the window to CSV with a fixed column order.
func WriteCSV(w io.Writer, items []model.InferenceMetric) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	if err := writeRecords(writer, items); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// AppendCSV appends to path, writing the header only when the file is new
// or empty.
func AppendCSV(path string, items []model.InferenceMetric) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := writeRecords(writer, items); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeRecords(writer *csv.Writer, items []model.InferenceMetric) error {
	for _, m := range items {
		record := []string{
			m.Timestamp,
			strconv.FormatFloat(m.Latency, 'f', 3, 64),
			strconv.FormatFloat(m.Throughput, 'f', 3, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// ReadCSV loads a window from a CSV file.
func ReadCSV(path string) ([]model.InferenceMetric, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readCSV(file)
}

func readCSV(r io.Reader) ([]model.InferenceMetric, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "timestamp" {
		start = 1
	}

	items := make([]model.InferenceMetric, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < len(csvHeader) {
			return nil, fmt.Errorf("invalid record at line %d", i+1)
		}
		latency, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latency at line %d: %w", i+1, err)
		}
		throughput, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid throughput at line %d: %w", i+1, err)
		}
		items = append(items, model.InferenceMetric{
			Timestamp:  rec[0],
			Latency:    latency,
			Throughput: throughput,
		})
	}

	return items, nil
}
