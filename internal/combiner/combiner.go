// Package combiner stitches a point's measurement-type series into one
// non-overlapping combined series.
//
// Series are taken in order of their first reading. The earliest series is used
// whole; each later series only contributes the readings that fall strictly
// after everything selected so far, so a series wholly covered by earlier data
// contributes nothing.
package combiner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// ErrOverlap reports a combined series whose segments overlap or whose readings
// are out of order. It indicates a defect and is never repaired.
var ErrOverlap = errors.New("combined series segments overlap")

// Combine builds the combined series for a point. Empty series are ignored and
// no input yields an empty combined series.
func Combine(point models.MonitoredPoint, series []models.Series) (models.CombinedSeries, error) {
	combined := models.CombinedSeries{Point: point}

	ordered := make([]models.Series, 0, len(series))
	for _, s := range series {
		if !s.Empty() {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].Start(), ordered[j].Start()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return ordered[i].Type.Priority() < ordered[j].Type.Priority()
	})

	for i, s := range ordered {
		contribution := s.Readings
		if i > 0 {
			last, _ := combined.Last()
			contribution = s.After(last.Time)
		}
		if len(contribution) == 0 {
			continue
		}

		combined.Readings = append(combined.Readings, contribution...)
		combined.Segments = append(combined.Segments, models.Segment{
			Type:  s.Type,
			Start: contribution[0].Time,
			End:   contribution[len(contribution)-1].Time,
			Count: len(contribution),
		})
	}

	if err := Validate(combined); err != nil {
		return combined, err
	}
	return combined, nil
}

// Validate checks that readings are strictly chronological and that segments are
// ordered and pairwise disjoint.
func Validate(c models.CombinedSeries) error {
	for i := 1; i < len(c.Readings); i++ {
		if !c.Readings[i].Time.After(c.Readings[i-1].Time) {
			return fmt.Errorf("%w: reading %d at %s is not after %s",
				ErrOverlap, i, c.Readings[i].Time, c.Readings[i-1].Time)
		}
	}

	total := 0
	for i, seg := range c.Segments {
		if seg.End.Before(seg.Start) {
			return fmt.Errorf("%w: segment %s ends before it starts", ErrOverlap, seg.Type)
		}
		if i > 0 && !seg.Start.After(c.Segments[i-1].End) {
			return fmt.Errorf("%w: %s starts at %s before %s ends at %s",
				ErrOverlap, seg.Type, seg.Start, c.Segments[i-1].Type, c.Segments[i-1].End)
		}
		total += seg.Count
	}
	if total != len(c.Readings) {
		return fmt.Errorf("%w: segments hold %d readings, series has %d", ErrOverlap, total, len(c.Readings))
	}

	return nil
}
