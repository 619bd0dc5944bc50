package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDate(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{name: "valid date", date: "2024-01-05"},
		{name: "leap day", date: "2024-02-29"},
		{name: "not a leap year", date: "2023-02-29", wantErr: true},
		{name: "compact format", date: "20240105", wantErr: true},
		{name: "timestamp", date: "2024-01-05T10:00:00Z", wantErr: true},
		{name: "empty", date: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDate(tt.date)
			if tt.wantErr {
				assert.EqualError(t, err, "invalid date format, use YYYY-MM-DD")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHour(t *testing.T) {
	assert.NoError(t, ValidateHour(0))
	assert.NoError(t, ValidateHour(23))
	assert.Error(t, ValidateHour(-1))
	assert.Error(t, ValidateHour(24))
}

func TestValidateZoneName(t *testing.T) {
	tests := []struct {
		name    string
		zone    string
		wantErr bool
		errMsg  string
	}{
		{name: "plain", zone: "JFK Airport"},
		{name: "slash and hyphen", zone: "Flushing Meadows-Corona Park"},
		{name: "with slash", zone: "Stuy Town/Peter Cooper Village"},
		{name: "too long", zone: strings.Repeat("a", 101), wantErr: true, errMsg: "zone name too long"},
		{name: "script tag", zone: "<script>alert(1)</script>", wantErr: true, errMsg: "invalid characters"},
		{name: "SQL comment", zone: "JFK'; DROP TABLE zones; --", wantErr: true, errMsg: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateZoneName(tt.zone)
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePaymentLabel(t *testing.T) {
	assert.NoError(t, ValidatePaymentLabel("Credit Card"))
	assert.NoError(t, ValidatePaymentLabel("Voided Trip"))
	assert.Error(t, ValidatePaymentLabel("credit card"))
	assert.Error(t, ValidatePaymentLabel("Bitcoin"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "JFK Airport", SanitizeInput("  JFK Airport "))
	assert.Equal(t, "alert(1)", SanitizeInput("<b>alert(1)</b>"))
	assert.Equal(t, "", SanitizeInput("   "))
}

func TestValidateFilterParams(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		errs := ValidateFilterParams(start, end, 0, 23, []string{"Cash"}, []string{"JFK Airport"})
		assert.Empty(t, errs)
	})

	t.Run("every problem is reported", func(t *testing.T) {
		errs := ValidateFilterParams(end, start, 20, 24, []string{"Bitcoin"}, []string{"<x>"})
		assert.Contains(t, errs, "hourMax")
		assert.Contains(t, errs, "end")
		assert.Contains(t, errs, "payment")
		assert.Contains(t, errs, "zone")
		assert.NotContains(t, errs, "hourMin")
	})

	t.Run("inverted hours", func(t *testing.T) {
		errs := ValidateFilterParams(start, end, 10, 5, nil, nil)
		assert.Equal(t, []string{"hourMin must not exceed hourMax"}, errs["hourMin"])
	})
}
