package models

import (
	"fmt"
	"strings"
)

// MonitoredPoint identifies a water abstraction point (WAP), e.g. "J36/0016-M1".
type MonitoredPoint string

// SiteID returns the consented site the point belongs to: the token before the
// first '-'.
func (p MonitoredPoint) SiteID() string {
	s := string(p)
	if i := strings.Index(s, "-"); i >= 0 {
		return s[:i]
	}
	return s
}

func (p MonitoredPoint) String() string {
	return string(p)
}

// MeasurementType is the category of a reading series recorded for a point.
type MeasurementType string

const (
	ComplianceVolume  MeasurementType = "Compliance Volume"
	Volume            MeasurementType = "Volume"
	VolumeFlow        MeasurementType = "Volume [Flow]"
	VolumeAverageFlow MeasurementType = "Volume [Average Flow]"
	WaterMeter        MeasurementType = "Water Meter"
)

// MeasurementTypes lists the water-use measurement types in priority order. The
// order breaks ties when two series start at the same instant.
var MeasurementTypes = []MeasurementType{
	ComplianceVolume,
	Volume,
	VolumeFlow,
	VolumeAverageFlow,
	WaterMeter,
}

// ParseMeasurementType maps a telemetry measurement name onto a known type.
func ParseMeasurementType(name string) (MeasurementType, error) {
	for _, t := range MeasurementTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown measurement type: %q", name)
}

// Priority returns the type's position in MeasurementTypes, or len(MeasurementTypes)
// for unknown types.
func (t MeasurementType) Priority() int {
	for i, known := range MeasurementTypes {
		if known == t {
			return i
		}
	}
	return len(MeasurementTypes)
}

// IsCumulative reports whether readings are running meter totals that must be
// differenced to obtain a volume.
func (t MeasurementType) IsCumulative() bool {
	return t == WaterMeter
}
