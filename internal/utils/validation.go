package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taxidash.nyctlc.dev/internal/models"
)

var (
	// Detect potentially dangerous characters - more focused on injection patterns
	dangerousPattern = regexp.MustCompile(`[<>]|--|\/\*|\*\/|;.*--`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

const maxZoneNameLength = 100

// ValidateDate validates date strings in YYYY-MM-DD format
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return errors.New("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// ValidateHour checks an hour of day.
func ValidateHour(hour int) error {
	if hour < 0 || hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	return nil
}

// ValidateZoneName rejects zone names that cannot appear in the lookup table.
func ValidateZoneName(name string) error {
	if len(name) > maxZoneNameLength {
		return fmt.Errorf("zone name too long (max %d characters)", maxZoneNameLength)
	}
	if dangerousPattern.MatchString(name) {
		return errors.New("zone name contains invalid characters")
	}
	return nil
}

// ValidatePaymentLabel accepts only the labels of the payment type table.
func ValidatePaymentLabel(label string) error {
	if _, ok := models.PaymentCode(label); !ok {
		return fmt.Errorf("unknown payment type %q", label)
	}
	return nil
}

// SanitizeInput removes HTML tags and other potentially dangerous content
func SanitizeInput(input string) string {
	sanitized := htmlTagPattern.ReplaceAllString(input, "")
	return strings.TrimSpace(sanitized)
}

// ValidateFilterParams checks a parsed filter and returns the problems keyed
// by query parameter.
func ValidateFilterParams(start, end time.Time, hourMin, hourMax int, payments, zones []string) map[string][]string {
	fieldErrors := make(map[string][]string)

	if err := ValidateHour(hourMin); err != nil {
		fieldErrors["hourMin"] = append(fieldErrors["hourMin"], err.Error())
	}
	if err := ValidateHour(hourMax); err != nil {
		fieldErrors["hourMax"] = append(fieldErrors["hourMax"], err.Error())
	}
	if hourMin > hourMax {
		fieldErrors["hourMin"] = append(fieldErrors["hourMin"], "hourMin must not exceed hourMax")
	}

	if !end.After(start) {
		fieldErrors["end"] = append(fieldErrors["end"], "end date must not be before start date")
	}

	for _, p := range payments {
		if err := ValidatePaymentLabel(p); err != nil {
			fieldErrors["payment"] = append(fieldErrors["payment"], err.Error())
		}
	}
	for _, z := range zones {
		if err := ValidateZoneName(z); err != nil {
			fieldErrors["zone"] = append(fieldErrors["zone"], err.Error())
		}
	}

	return fieldErrors
}
