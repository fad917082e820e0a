package services

import (
	"errors"
	"fmt"
	"strconv"

	"nass-harvest/models"
)

// ErrDateFormat is returned when a date does not start with a 4-digit year.
var ErrDateFormat = errors.New("filter: date must start with a 4-digit year")

// ParseYear returns the year encoded in the first four characters of a
// YYYY-M-D date string.
func ParseYear(date string) (int, error) {
	if len(date) < 4 {
		return 0, fmt.Errorf("%w: %q", ErrDateFormat, date)
	}
	for i := 0; i < 4; i++ {
		if date[i] < '0' || date[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrDateFormat, date)
		}
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDateFormat, date)
	}
	return year, nil
}

// FilterByYear returns the records whose year lies in
// [year(startDate), year(endDate)], keeping their order.
func FilterByYear(startDate, endDate string, records []models.CropRecord) ([]models.CropRecord, error) {
	start, err := ParseYear(startDate)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	end, err := ParseYear(endDate)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}

	out := make([]models.CropRecord, 0, len(records))
	for _, r := range records {
		if r.Year >= start && r.Year <= end {
			out = append(out, r)
		}
	}
	return out, nil
}
