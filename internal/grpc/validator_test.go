package server

import (
	"strings"
	"testing"
	"time"
)

func TestRequestValidator_ValidateRange(t *testing.T) {
	validator := NewRequestValidator()
	now := time.Now()

	tests := []struct {
		name       string
		start      time.Time
		end        time.Time
		wantErr    bool
		errMessage string
	}{
		{
			name:  "valid request",
			start: now.Add(-24 * time.Hour),
			end:   now,
		},
		{
			name:       "missing timestamp",
			start:      time.Time{},
			end:        now,
			wantErr:    true,
			errMessage: "missing timestamp",
		},
		{
			name:       "invalid time range",
			start:      now,
			end:        now.Add(-24 * time.Hour),
			wantErr:    true,
			errMessage: "start time must be before end time",
		},
		{
			name:       "empty time range",
			start:      now,
			end:        now,
			wantErr:    true,
			errMessage: "start time must be before end time",
		},
		{
			name:       "exceeds max time range",
			start:      now.Add(-31 * 365 * 24 * time.Hour),
			end:        now,
			wantErr:    true,
			errMessage: "time range exceeds maximum allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRange(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRange() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMessage {
				t.Errorf("ValidateRange() error message = %v, want %v", err.Error(), tt.errMessage)
			}
		})
	}
}

func TestRequestValidator_ValidatePoint(t *testing.T) {
	validator := NewRequestValidator()

	tests := []struct {
		point   string
		wantErr bool
	}{
		{"J36/0016-M1", false},
		{"BB24/0006-M1", false},
		{"", true},
		{"J36/0016 M1", true},
		{strings.Repeat("x", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.point, func(t *testing.T) {
			err := validator.ValidatePoint(tt.point)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePoint(%q) error = %v, wantErr %v", tt.point, err, tt.wantErr)
			}
		})
	}
}
