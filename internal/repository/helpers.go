package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayout is the RFC3339 format for storing times in SQLite
const timeLayout = time.RFC3339

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatTime returns the current time formatted as RFC3339
func formatTime() string {
	return time.Now().Format(timeLayout)
}

// parseMoney parses a decimal money string stored in the database
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	return d, nil
}

// nullableID converts an optional id to a driver-friendly value
func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
