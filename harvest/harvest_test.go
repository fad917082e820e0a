package harvest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"nass-harvest/config"
	"nass-harvest/fetcher"
	"nass-harvest/services"
	"nass-harvest/storage"
	"nass-harvest/utils"
)

const header = "DOMAIN_DESC\tCOMMODITY_DESC\tGROUP_DESC\tSTATISTICCAT_DESC\tAGG_LEVEL_DESC\tCOUNTRY_NAME\tSTATE_NAME\tCOUNTY_NAME\tUNIT_DESC\tVALUE\tYEAR"

var fixtureRows = []string{
	"TOTAL\tBARLEY\tFIELD CROPS\tAREA HARVESTED\tCOUNTY\tUNITED STATES\tIDAHO\tBONNEVILLE\tACRES\t12,300\t2010",
	"TOTAL\tBARLEY\tFIELD CROPS\tAREA HARVESTED\tCOUNTY\tUNITED STATES\tIDAHO\tTETON\tACRES\t45,000\t2011",
	"TOTAL\tGRAPES\tHORTICULTURE\tAREA BEARING\tNATIONAL\tUNITED STATES\tUS TOTAL\t\tACRES\t1,020,000\t2012",
	"TOTAL\tAPPLES\tHORTICULTURE\tAREA BEARING\tNATIONAL\tUNITED STATES\tUS TOTAL\t\tACRES\t(D)\t2013",
	"TOTAL\tCORN\tFIELD CROPS\tYIELD\tSTATE\tUNITED STATES\tIOWA\t\tBU / ACRE\t(Z)\t2001",
	"TOTAL\tCORN\tFIELD CROPS\tYIELD\tSTATE\tUNITED STATES\tIOWA\t\tBU / ACRE\t170\t2020",
}

// fakeFetcher writes a gzip fixture where the real fetcher would download.
type fakeFetcher struct {
	path  string
	lines []string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*fetcher.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(strings.Join(f.lines, "\n") + "\n"))
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(f.path, buf.Bytes(), 0644); err != nil {
		return nil, err
	}
	return &fetcher.Result{RemoteName: "qs.crops_20240101.txt.gz", LocalPath: f.path, Bytes: int64(buf.Len())}, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DatabaseDriver = "sqlite"
	cfg.DatabaseName = filepath.Join(dir, "gro.db")
	cfg.LocalFile = filepath.Join(dir, "nass_crops.csv.gz")
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.SampleCSVPath = filepath.Join(filepath.Dir(cfg.LocalFile), "out", "sample.csv")
	cfg.SampleSize = 2
	logger := utils.Discard()

	lines := append([]string{header}, fixtureRows...)
	p := New(cfg, logger, &fakeFetcher{path: cfg.LocalFile, lines: lines}, DefaultStore(cfg, logger))

	res, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RemoteName != "qs.crops_20240101.txt.gz" || res.Loaded != 6 || res.Kept != 4 {
		t.Errorf("unexpected result: %+v", res)
	}

	r := res.Report
	if r.Datapoints != 4 || r.Commodities.Total() != 4 || r.States.Total() != 4 {
		t.Errorf("unexpected report counts: %+v", r)
	}
	if r.HighestBarley == nil || r.HighestBarley.County != "TETON" {
		t.Errorf("highest barley: got %+v", r.HighestBarley)
	}
	if r.HighestHorticulture == nil || r.HighestHorticulture.Commodity != "GRAPES" {
		t.Errorf("highest horticulture: got %+v", r.HighestHorticulture)
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	facts, err := store.FetchRecords(ctx, cfg.RawTable)
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(facts) != 4 {
		t.Fatalf("fact_data rows: got %d, want 4", len(facts))
	}
	// fact_data holds the filtered rows before cleaning.
	if facts[0].Value != "12,300" || facts[3].Value != "(D)" {
		t.Errorf("fact_data values changed: %q, %q", facts[0].Value, facts[3].Value)
	}

	stats, err := store.FetchReport(ctx, cfg.StatsTable)
	if err != nil {
		t.Fatalf("FetchReport: %v", err)
	}
	if stats.Datapoints != "4" || !strings.HasPrefix(stats.CommodityCounts, "BARLEY") {
		t.Errorf("unexpected stats row: %+v", stats)
	}

	f, err := os.Open(cfg.SampleCSVPath)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("sample rows: got %d, want header + 2", len(rows))
	}
}

func TestRunStopsOnFetchError(t *testing.T) {
	cfg := testConfig(t)
	opened := false
	open := func(ctx context.Context) (storage.Store, error) {
		opened = true
		return nil, errors.New("unexpected")
	}

	p := New(cfg, utils.Discard(), &fakeFetcher{err: fetcher.ErrNoMatchingFile}, open)
	_, err := p.Run(context.Background())
	if !errors.Is(err, fetcher.ErrNoMatchingFile) {
		t.Fatalf("expected ErrNoMatchingFile, got %v", err)
	}
	if opened {
		t.Error("store opened after failed fetch")
	}
}

func TestRunInvalidValueLeavesStatsUnwritten(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := utils.Discard()

	lines := []string{header,
		"TOTAL\tOATS\tFIELD CROPS\tYIELD\tSTATE\tUNITED STATES\tOHIO\t\tBU / ACRE\t12abc\t2010",
	}
	p := New(cfg, logger, &fakeFetcher{path: cfg.LocalFile, lines: lines}, DefaultStore(cfg, logger))

	if _, err := p.Run(ctx); !errors.Is(err, services.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	facts, err := store.FetchRecords(ctx, cfg.RawTable)
	if err != nil || len(facts) != 1 {
		t.Errorf("fact_data should be written before cleaning: %d rows, err %v", len(facts), err)
	}
	if _, err := store.FetchReport(ctx, cfg.StatsTable); err == nil {
		t.Error("stats written despite cleaning failure")
	}
}

func TestRunBadDateRange(t *testing.T) {
	cfg := testConfig(t)
	cfg.StartDate = "yesterday"

	lines := append([]string{header}, fixtureRows...)
	p := New(cfg, utils.Discard(), &fakeFetcher{path: cfg.LocalFile, lines: lines}, DefaultStore(cfg, utils.Discard()))

	if _, err := p.Run(context.Background()); !errors.Is(err, services.ErrDateFormat) {
		t.Fatalf("expected ErrDateFormat, got %v", err)
	}
}
