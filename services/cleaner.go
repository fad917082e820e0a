package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"nass-harvest/models"
	"nass-harvest/utils"
)

// ErrInvalidValue is returned when a VALUE cell is neither a sentinel nor a number.
var ErrInvalidValue = errors.New("cleaner: invalid value")

// Quick Stats placeholders that stand for a deliberately missing value.
const (
	SentinelWithheld     = "(D)"
	SentinelRoundsToZero = "(Z)"
	SentinelNotAvailable = "(NA)"
)

// decimalValue matches plain decimal text once thousands separators are gone.
var decimalValue = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var sentinels = map[string]struct{}{
	SentinelWithheld:     {},
	SentinelRoundsToZero: {},
	SentinelNotAvailable: {},
}

// Cleaner parses the VALUE field of crop records into numbers.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns a new slice where every value is either nil or a number.
// Sentinels and blank cells become nil; anything else that fails to parse
// aborts the whole clean.
func (c *Cleaner) Clean(records []models.CropRecord) ([]models.CleanRecord, error) {
	result := make([]models.CleanRecord, 0, len(records))
	nulls := make(map[string]int)

	for i, r := range records {
		amount, err := c.ParseValue(r.Value)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s, %d): %w", i, r.Commodity, r.Year, err)
		}
		if amount == nil {
			nulls[strings.TrimSpace(r.Value)]++
		}
		result = append(result, models.CleanRecord{CropRecord: r, Amount: amount})
	}

	for token, n := range nulls {
		if token == "" {
			token = "<blank>"
		}
		c.logger.Debug("[cleaner] %s → null: %d", token, n)
	}
	c.logger.Info("[cleaner] Cleaned %d records (%d null values)", len(result), total(nulls))
	return result, nil
}

// ParseValue converts a raw VALUE cell. It returns nil for sentinels and
// blanks, and strips thousands separators before parsing.
// Examples:
//
//	"1,234"   → 1234
//	" 12.5 "  → 12.5
//	"(D)"     → nil
func (c *Cleaner) ParseValue(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if _, ok := sentinels[s]; ok {
		return nil, nil
	}

	s = strings.ReplaceAll(s, ",", "")
	if !decimalValue.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return &v, nil
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
