package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"nass-harvest/models"
	"nass-harvest/utils"
)

const (
	aggCounty         = "COUNTY"
	aggNational       = "NATIONAL"
	commodityBarley   = "BARLEY"
	groupHorticulture = "HORTICULTURE"
)

// Analyzer computes the summary statistics of a cleaned dataset.
type Analyzer struct {
	logger *utils.Logger
}

func NewAnalyzer(logger *utils.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze builds the SummaryReport for records. An empty dataset yields a
// zero-count report.
func (a *Analyzer) Analyze(records []models.CleanRecord) *models.SummaryReport {
	report := &models.SummaryReport{
		Datapoints: len(records),
		Commodities: countBy(records, func(r models.CleanRecord) string {
			return r.Commodity
		}),
		States: countBy(records, func(r models.CleanRecord) string {
			return r.State
		}),
		HighestBarley: highest(records, func(r models.CleanRecord) bool {
			return r.AggLevel == aggCounty && r.Commodity == commodityBarley
		}),
		HighestHorticulture: highest(records, func(r models.CleanRecord) bool {
			return r.AggLevel == aggNational && r.Group == groupHorticulture
		}),
	}

	a.logger.Info("[analyzer] %d datapoints, %d commodities, %d states",
		report.Datapoints, len(report.Commodities), len(report.States))
	if report.HighestBarley == nil {
		a.logger.Debug("[analyzer] No county-level barley records")
	}
	if report.HighestHorticulture == nil {
		a.logger.Debug("[analyzer] No national horticulture records")
	}
	return report
}

// countBy tallies key(r) over records. Entries are ordered by descending
// count; equal counts keep the order in which keys were first seen.
func countBy(records []models.CleanRecord, key func(models.CleanRecord) string) models.Frequencies {
	pos := make(map[string]int)
	var freq models.Frequencies
	for _, r := range records {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			i = len(freq)
			pos[k] = i
			freq = append(freq, models.FrequencyEntry{Key: k})
		}
		freq[i].Count++
	}
	sort.SliceStable(freq, func(i, j int) bool {
		return freq[i].Count > freq[j].Count
	})
	return freq
}

// highest returns the matching record with the largest value, or nil when
// no matching record has a value. Null values never qualify, even when every
// match is null. Ties go to the earliest record.
func highest(records []models.CleanRecord, match func(models.CleanRecord) bool) *models.CleanRecord {
	var best *models.CleanRecord
	for i := range records {
		r := &records[i]
		if r.Amount == nil || !match(*r) {
			continue
		}
		if best == nil || *r.Amount > *best.Amount {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// Print renders the report to stdout.
func (a *Analyzer) Print(r *models.SummaryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🌾 NASS CROPS HARVEST SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Number of data points : \033[1m%d\033[0m\n", r.Datapoints)
	fmt.Println()

	printFrequencies("Records by Commodity", r.Commodities, thin)
	printFrequencies("Records by State", r.States, thin)

	if b := r.HighestBarley; b != nil {
		fmt.Printf("\033[1;33m  Highest Barley Production (county)\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s, %s in %d at \033[1;32m%s %s\033[0m\n",
			b.County, b.State, b.Year, formatAmount(*b.Amount), unitOrAcres(b.Unit))
		fmt.Println()
	}

	if h := r.HighestHorticulture; h != nil {
		fmt.Printf("\033[1;33m  Highest Horticulture (national)\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s in %d at \033[1;32m%s %s\033[0m\n",
			h.Commodity, h.Year, formatAmount(*h.Amount), unitOrAcres(h.Unit))
		fmt.Println()
	}

	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)
}

func printFrequencies(title string, f models.Frequencies, thin string) {
	fmt.Printf("\033[1;33m  %s\033[0m\n", title)
	fmt.Printf("  %s\n", thin)
	if len(f) == 0 {
		fmt.Printf("  No data\n")
	}
	for _, e := range f {
		fmt.Printf("  %-30s %d\n", truncate(e.Key, 28), e.Count)
	}
	fmt.Println()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func unitOrAcres(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return "ACRES"
	}
	return unit
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
