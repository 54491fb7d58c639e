package utils

import (
	"fmt"
	"time"
)

// GrainDateFormat is the date layout of the attribution grain (and of the
// normalized export rows).
const GrainDateFormat = "2006-01-02"

// ParseGrainDate validates a YYYY-MM-DD date string.
func ParseGrainDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(GrainDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s', expected YYYY-MM-DD: %w", dateStr, err)
	}
	return t, nil
}

// ValidateDateRange checks both bounds and that start does not follow end.
func ValidateDateRange(startStr, endStr string) error {
	start, err := ParseGrainDate(startStr)
	if err != nil {
		return err
	}
	end, err := ParseGrainDate(endStr)
	if err != nil {
		return err
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", startStr, endStr)
	}
	return nil
}
