package harvest

import (
	"context"
	"fmt"

	"nass-harvest/config"
	"nass-harvest/fetcher"
	"nass-harvest/models"
	"nass-harvest/services"
	"nass-harvest/storage"
	"nass-harvest/utils"
)

// Fetcher retrieves the crops archive to a local file.
type Fetcher interface {
	Fetch(ctx context.Context) (*fetcher.Result, error)
}

// OpenStoreFunc connects to the output database, creating it if needed.
type OpenStoreFunc func(ctx context.Context) (storage.Store, error)

// Result summarises a completed run.
type Result struct {
	RemoteName string
	Loaded     int
	Kept       int
	Report     *models.SummaryReport
}

// Pipeline runs one harvest end to end.
type Pipeline struct {
	cfg       config.Config
	logger    *utils.Logger
	fetcher   Fetcher
	openStore OpenStoreFunc

	loader   *services.Loader
	cleaner  *services.Cleaner
	analyzer *services.Analyzer
}

// New wires a Pipeline from its collaborators.
func New(cfg config.Config, logger *utils.Logger, f Fetcher, openStore OpenStoreFunc) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		fetcher:   f,
		openStore: openStore,
		loader:    services.NewLoader(logger),
		cleaner:   services.NewCleaner(logger),
		analyzer:  services.NewAnalyzer(logger),
	}
}

// DefaultStore opens the database described by cfg.
func DefaultStore(cfg config.Config, logger *utils.Logger) OpenStoreFunc {
	return func(ctx context.Context) (storage.Store, error) {
		return storage.Open(ctx, cfg, logger)
	}
}

// Run fetches, loads and filters the dataset, replaces the fact table, then
// cleans and summarises the rows and replaces the stats table.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	fetched, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("harvest: fetch: %w", err)
	}

	records, err := p.loader.Load(fetched.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("harvest: load: %w", err)
	}

	filtered, err := services.FilterByYear(p.cfg.StartDate, p.cfg.EndDate, records)
	if err != nil {
		return nil, fmt.Errorf("harvest: filter: %w", err)
	}
	p.logger.Info("[harvest] Kept %d of %d rows between %s and %s",
		len(filtered), len(records), p.cfg.StartDate, p.cfg.EndDate)

	if p.cfg.SampleCSVPath != "" {
		if err := p.writeSample(filtered); err != nil {
			p.logger.Warn("[harvest] Sample export failed: %v", err)
		}
	}

	store, err := p.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("harvest: open store: %w", err)
	}
	defer store.Close()

	if err := store.WriteRecords(ctx, p.cfg.RawTable, filtered); err != nil {
		return nil, fmt.Errorf("harvest: write %s: %w", p.cfg.RawTable, err)
	}

	cleaned, err := p.cleaner.Clean(filtered)
	if err != nil {
		return nil, fmt.Errorf("harvest: clean: %w", err)
	}

	report := p.analyzer.Analyze(cleaned)
	p.analyzer.Print(report)

	if err := store.WriteReport(ctx, p.cfg.StatsTable, report); err != nil {
		return nil, fmt.Errorf("harvest: write %s: %w", p.cfg.StatsTable, err)
	}

	return &Result{
		RemoteName: fetched.RemoteName,
		Loaded:     len(records),
		Kept:       len(filtered),
		Report:     report,
	}, nil
}

func (p *Pipeline) writeSample(records []models.CropRecord) error {
	w, err := storage.NewCSVWriter(p.cfg.SampleCSVPath, p.cfg.SampleSize)
	if err != nil {
		return err
	}
	if err := exportSample(w, records); err != nil {
		return err
	}
	p.logger.Info("[harvest] Sample saved to %s", p.cfg.SampleCSVPath)
	return nil
}

func exportSample(w storage.SampleWriter, records []models.CropRecord) error {
	if err := w.WriteSample(records); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
