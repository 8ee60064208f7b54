package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinFoundingYear is the earliest accepted producer founding year.
	MinFoundingYear = 1900
	// DateLayout is the wire and storage layout of production dates.
	DateLayout = "2006-01-02"
)

var (
	minPrice = decimal.RequireFromString("1.00")
	maxPrice = decimal.RequireFromString("45.00")
)

// ValidateName rejects empty or whitespace-only text for the named field.
func ValidateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateFoundingYear rejects years before MinFoundingYear.
func ValidateFoundingYear(year int) error {
	if year < MinFoundingYear {
		return &ValidationError{Field: "founding_year", Message: fmt.Sprintf("founding year must be %d or later", MinFoundingYear)}
	}
	return nil
}

// ValidateOperationSize rejects sizes outside OperationSizes.
func ValidateOperationSize(size string) error {
	if !OperationSize(size).Valid() {
		return &ValidationError{Field: "operation_size", Message: "invalid operation size"}
	}
	return nil
}

// ParseProductionDate parses a YYYY-MM-DD date and requires it to fall on a
// UTC calendar day strictly before the day of now.
func ParseProductionDate(value string, now time.Time) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "production_date", Message: "production date must be formatted as YYYY-MM-DD"}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if !date.Before(today) {
		return time.Time{}, &ValidationError{Field: "production_date", Message: "production date must be in the past"}
	}
	return date, nil
}

// ValidatePrice requires 1.00 < price < 45.00.
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &ValidationError{Field: "price", Message: "price must be a finite number"}
	}
	p := decimal.NewFromFloat(price)
	if !p.GreaterThan(minPrice) || !p.LessThan(maxPrice) {
		return &ValidationError{Field: "price", Message: "price must be between $1.00 and $45.00"}
	}
	return nil
}
