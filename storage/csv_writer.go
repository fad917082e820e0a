package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"nass-harvest/models"
)

// CSVWriter writes a preview of the filtered (uncleaned) records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	limit  int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
// At most limit records are written by WriteSample.
func NewCSVWriter(path string, limit int) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, len(factColumns)-1)
	for _, c := range factColumns[1:] {
		header = append(header, c.name)
	}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, limit: limit}, nil
}

// WriteSample writes the first records, up to the configured limit.
func (c *CSVWriter) WriteSample(records []models.CropRecord) error {
	if c.limit >= 0 && len(records) > c.limit {
		records = records[:c.limit]
	}

	for _, r := range records {
		row := []string{
			r.Domain,
			r.Commodity,
			r.Group,
			r.StatisticCategory,
			r.AggLevel,
			r.Country,
			r.State,
			r.County,
			r.Unit,
			r.Value,
			strconv.Itoa(r.Year),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
