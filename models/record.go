package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RemoteListing is the set of file names present in the remote directory
// at fetch time.
type RemoteListing []string

// CropRecord is one Quick Stats observation as read from the source file.
// Value is kept as raw text until cleaned.
type CropRecord struct {
	Domain            string
	Commodity         string
	Group             string
	StatisticCategory string
	AggLevel          string
	Country           string
	State             string
	County            string
	Unit              string
	Value             string
	Year              int
}

// CleanRecord is a CropRecord whose value has been parsed.
// A nil Amount means the source value was missing or withheld.
type CleanRecord struct {
	CropRecord
	Amount *float64
}

// Raw renders the record back into its textual form. Cleaning the result
// again yields the same CleanRecord.
func (r CleanRecord) Raw() CropRecord {
	raw := r.CropRecord
	if r.Amount == nil {
		raw.Value = ""
	} else {
		raw.Value = strconv.FormatFloat(*r.Amount, 'f', -1, 64)
	}
	return raw
}

// FrequencyEntry is a single key/count pair of a frequency table.
type FrequencyEntry struct {
	Key   string
	Count int
}

// Frequencies is ordered by descending count; ties keep first-seen order.
type Frequencies []FrequencyEntry

// Total returns the sum of all counts.
func (f Frequencies) Total() int {
	n := 0
	for _, e := range f {
		n += e.Count
	}
	return n
}

// Get returns the count stored for key, or 0.
func (f Frequencies) Get(key string) int {
	for _, e := range f {
		if e.Key == key {
			return e.Count
		}
	}
	return 0
}

// String renders the table as aligned "KEY  COUNT" lines, one per entry.
// This is the form stored in the stats table.
func (f Frequencies) String() string {
	width := 0
	for _, e := range f {
		width = max(width, len(e.Key))
	}
	var sb strings.Builder
	for i, e := range f {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%-*s  %d", width, e.Key, e.Count)
	}
	return sb.String()
}

// SummaryReport holds the computed statistics over a cleaned dataset.
// Only Datapoints, Commodities and States are persisted.
type SummaryReport struct {
	Datapoints          int
	Commodities         Frequencies
	States              Frequencies
	HighestBarley       *CleanRecord
	HighestHorticulture *CleanRecord
}
