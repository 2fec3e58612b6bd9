package server

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxTimeRange   = 30 * 365 * 24 * time.Hour
	maxPointLength = 64
)

type RequestValidator struct {
	maxRange time.Duration
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{maxRange: maxTimeRange}
}

// ValidatePoint checks a monitored point identifier such as "J36/0016-M1".
func (v *RequestValidator) ValidatePoint(point string) error {
	if point == "" {
		return errors.New("missing point")
	}
	if len(point) > maxPointLength {
		return fmt.Errorf("point exceeds %d characters", maxPointLength)
	}
	if strings.ContainsAny(point, " \t\r\n") {
		return fmt.Errorf("invalid point: %q", point)
	}
	return nil
}

// ValidateRange checks a [start, end) query range.
func (v *RequestValidator) ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("missing timestamp")
	}
	if !start.Before(end) {
		return errors.New("start time must be before end time")
	}
	if end.Sub(start) > v.maxRange {
		return errors.New("time range exceeds maximum allowed")
	}
	return nil
}
