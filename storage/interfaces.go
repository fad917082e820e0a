package storage

import (
	"context"

	"nass-harvest/models"
)

// Store is the interface any relational backend must satisfy. Every write
// replaces the named table entirely.
type Store interface {
	WriteRecords(ctx context.Context, table string, records []models.CropRecord) error
	WriteReport(ctx context.Context, table string, report *models.SummaryReport) error
	FetchRecords(ctx context.Context, table string) ([]models.CropRecord, error)
	FetchReport(ctx context.Context, table string) (*StatsRow, error)
	Close() error
}

// SampleWriter persists a small preview of the raw dataset.
type SampleWriter interface {
	WriteSample(records []models.CropRecord) error
	Close() error
}

var (
	_ Store        = (*SQLStore)(nil)
	_ SampleWriter = (*CSVWriter)(nil)
)
