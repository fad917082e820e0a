package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"nass-harvest/models"
	"nass-harvest/utils"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("loader: missing required column")
	// ErrMalformedRow is returned when a data row is too short to hold every
	// required column.
	ErrMalformedRow = errors.New("loader: malformed row")
	// ErrInvalidYear is returned when a YEAR cell is not an integer.
	ErrInvalidYear = errors.New("loader: invalid year")
)

// Source columns projected into a CropRecord, in record field order.
const (
	colDomain            = "DOMAIN_DESC"
	colCommodity         = "COMMODITY_DESC"
	colGroup             = "GROUP_DESC"
	colStatisticCategory = "STATISTICCAT_DESC"
	colAggLevel          = "AGG_LEVEL_DESC"
	colCountry           = "COUNTRY_NAME"
	colState             = "STATE_NAME"
	colCounty            = "COUNTY_NAME"
	colUnit              = "UNIT_DESC"
	colValue             = "VALUE"
	colYear              = "YEAR"
)

// RequiredColumns lists the header names the loader projects.
var RequiredColumns = []string{
	colDomain, colCommodity, colGroup, colStatisticCategory, colAggLevel,
	colCountry, colState, colCounty, colUnit, colValue, colYear,
}

// Loader parses gzip-compressed, tab-separated Quick Stats files.
type Loader struct {
	logger *utils.Logger
}

// NewLoader creates a Loader with the given logger.
func NewLoader(logger *utils.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load opens the archive at path and parses it.
func (l *Loader) Load(path string) ([]models.CropRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := l.Read(f)
	if err != nil {
		return nil, err
	}
	l.logger.Info("[loader] Loaded %d records from %s", len(records), path)
	return records, nil
}

// Read decompresses r and returns one CropRecord per data row, in file order.
func (l *Loader) Read(r io.Reader) ([]models.CropRecord, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("loader: gzip: %w", err)
	}
	defer gz.Close()

	cr := csv.NewReader(gz)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("loader: read header: %w", err)
	}
	idx, err := projectHeader(header)
	if err != nil {
		return nil, err
	}
	width := 0
	for _, i := range idx {
		width = max(width, i+1)
	}

	var records []models.CropRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("loader: line %d: %w", line, err)
		}
		if len(row) < width {
			return nil, fmt.Errorf("%w: line %d has %d fields, need %d", ErrMalformedRow, line, len(row), width)
		}

		yearCell := strings.TrimSpace(row[idx[colYear]])
		year, err := strconv.Atoi(yearCell)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidYear, line, yearCell)
		}

		records = append(records, models.CropRecord{
			Domain:            row[idx[colDomain]],
			Commodity:         row[idx[colCommodity]],
			Group:             row[idx[colGroup]],
			StatisticCategory: row[idx[colStatisticCategory]],
			AggLevel:          row[idx[colAggLevel]],
			Country:           row[idx[colCountry]],
			State:             row[idx[colState]],
			County:            row[idx[colCounty]],
			Unit:              row[idx[colUnit]],
			Value:             row[idx[colValue]],
			Year:              year,
		})
	}

	l.logger.Debug("[loader] Parsed %d data lines", line-1)
	return records, nil
}

// projectHeader maps each required column to its position in header.
func projectHeader(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make(map[string]int, len(RequiredColumns))
	var missing []string
	for _, c := range RequiredColumns {
		i, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}
