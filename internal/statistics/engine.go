// Package statistics computes monthly and whole-series quality statistics over
// combined water-use series.
//
// Every function here is pure: the same combined series and consent always
// produce the same output, and the input series is never modified. Negative
// volumes are data-entry artifacts; they are counted and then left out of every
// other statistic.
package statistics

import (
	"math"
	"time"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// Spike thresholds in standard deviations above the mean.
var spikeLevels = [3]float64{5, 10, 20}

type Config struct {
	// SpikeMinStdDev suppresses spike counts when the standard deviation is
	// smaller. Zero disables the gate.
	SpikeMinStdDev float64
	// SpikeMinReadings suppresses spike counts for months with fewer valid
	// readings. Zero disables the gate.
	SpikeMinReadings int
	// Location sets month and day boundaries. Nil means UTC.
	Location *time.Location
	// WaterYearPadding starts daily series at the 1 July before the first reading.
	WaterYearPadding bool
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{cfg: cfg}
}

// eachVolume calls fn with every reading of c expressed as a volume, in time
// order. Cumulative meter readings are differenced against the previous meter
// reading; the first reading of a meter run has no volume and is skipped.
func eachVolume(c models.CombinedSeries, fn func(r models.Reading)) {
	var prev *models.Reading
	for i := range c.Readings {
		r := c.Readings[i]
		if !r.Type.IsCumulative() {
			prev = nil
			fn(r)
			continue
		}
		if prev != nil && prev.Type == r.Type {
			v := r
			v.Value = r.Value - prev.Value
			fn(v)
		}
		prev = &c.Readings[i]
	}
}

// accumulator holds running statistics over valid (non-negative) volumes.
type accumulator struct {
	n     int
	mean  float64
	m2    float64
	total float64

	negatives   int
	negativeSum float64

	extractions int
	extMin      float64
	extMax      float64
	extSum      float64

	days map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{days: make(map[string]struct{})}
}

func (a *accumulator) add(v float64, day string) {
	if v < 0 {
		a.negatives++
		a.negativeSum += v
		return
	}

	// Welford's online update
	a.n++
	delta := v - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (v - a.mean)
	a.total += v
	a.days[day] = struct{}{}

	if v > 0 {
		if a.extractions == 0 || v < a.extMin {
			a.extMin = v
		}
		if a.extractions == 0 || v > a.extMax {
			a.extMax = v
		}
		a.extractions++
		a.extSum += v
	}
}

// stdDev is the sample standard deviation, zero below two readings.
func (a *accumulator) stdDev() float64 {
	if a.n < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.n-1))
}

func (a *accumulator) extraction() *models.ExtractionStats {
	if a.extractions == 0 {
		return nil
	}
	return &models.ExtractionStats{
		Min:  a.extMin,
		Mean: a.extSum / float64(a.extractions),
		Max:  a.extMax,
	}
}

// spikeThresholds returns mean + k*sd for each spike level, or false when the
// gates suppress spike detection.
func (e *Engine) spikeThresholds(a *accumulator) ([3]float64, bool) {
	var th [3]float64
	sd := a.stdDev()
	if a.n == 0 {
		return th, false
	}
	if e.cfg.SpikeMinReadings > 0 && a.n < e.cfg.SpikeMinReadings {
		return th, false
	}
	if e.cfg.SpikeMinStdDev > 0 && sd < e.cfg.SpikeMinStdDev {
		return th, false
	}
	for i, k := range spikeLevels {
		th[i] = a.mean + k*sd
	}
	return th, true
}

// countSpikes increments counts for each threshold v exceeds. Thresholds are
// ascending, so a 20sd spike is always also a 10sd and a 5sd spike.
func countSpikes(v float64, th [3]float64, counts *[3]int) {
	for i := range th {
		if v > th[i] {
			counts[i]++
		}
	}
}

func (e *Engine) dayKey(t time.Time) string {
	return t.In(e.cfg.Location).Format("2006-01-02")
}

func (e *Engine) monthKey(t time.Time) string {
	return t.In(e.cfg.Location).Format("2006-01")
}

// Monthly returns one entry per calendar month with readings, in month order.
func (e *Engine) Monthly(c models.CombinedSeries) []models.MonthlyStatistics {
	type month struct {
		key   string
		acc   *accumulator
		types []models.MeasurementType
	}

	var months []*month
	index := make(map[string]*month)

	eachVolume(c, func(r models.Reading) {
		key := e.monthKey(r.Time)
		m, ok := index[key]
		if !ok {
			m = &month{key: key, acc: newAccumulator()}
			index[key] = m
			months = append(months, m)
		}
		if len(m.types) == 0 || m.types[len(m.types)-1] != r.Type {
			m.types = append(m.types, r.Type)
		}
		m.acc.add(r.Value, e.dayKey(r.Time))
	})

	spikes := make(map[string]*[3]int, len(months))
	thresholds := make(map[string][3]float64, len(months))
	for _, m := range months {
		spikes[m.key] = &[3]int{}
		if th, ok := e.spikeThresholds(m.acc); ok {
			thresholds[m.key] = th
		}
	}

	eachVolume(c, func(r models.Reading) {
		if r.Value < 0 {
			return
		}
		key := e.monthKey(r.Time)
		if th, ok := thresholds[key]; ok {
			countSpikes(r.Value, th, spikes[key])
		}
	})

	out := make([]models.MonthlyStatistics, 0, len(months))
	for _, m := range months {
		s := spikes[m.key]
		out = append(out, models.MonthlyStatistics{
			Point:            c.Point,
			Month:            m.key,
			MeasurementTypes: m.types,
			Readings:         m.acc.n,
			DaysWithData:     len(m.acc.days),
			TotalVolume:      m.acc.total,
			NegativeCount:    m.acc.negatives,
			NegativeSum:      m.acc.negativeSum,
			Extraction:       m.acc.extraction(),
			Mean:             m.acc.mean,
			StdDev:           m.acc.stdDev(),
			Spikes5SD:        s[0],
			Spikes10SD:       s[1],
			Spikes20SD:       s[2],
		})
	}
	return out
}
