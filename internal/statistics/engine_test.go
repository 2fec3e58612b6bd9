package statistics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

func at(m time.Month, d, h int) time.Time {
	return time.Date(2021, m, d, h, 0, 0, 0, time.UTC)
}

func combined(mtype models.MeasurementType, readings ...models.Reading) models.CombinedSeries {
	s := models.NewSeries("P1", mtype, readings)
	c := models.CombinedSeries{Point: "P1", Readings: s.Readings}
	if !s.Empty() {
		c.Segments = []models.Segment{{Type: mtype, Start: s.Start(), End: s.End(), Count: s.Len()}}
	}
	return c
}

func TestMonthlyBasic(t *testing.T) {
	c := combined(models.Volume,
		models.Reading{Time: at(3, 1, 0), Value: 10},
		models.Reading{Time: at(3, 1, 12), Value: 0},
		models.Reading{Time: at(3, 2, 0), Value: -4},
		models.Reading{Time: at(3, 3, 0), Value: 20},
		models.Reading{Time: at(4, 1, 0), Value: -1},
	)

	months := NewEngine(Config{}).Monthly(c)
	require.Len(t, months, 2)

	march := months[0]
	assert.Equal(t, "2021-03", march.Month)
	assert.Equal(t, []models.MeasurementType{models.Volume}, march.MeasurementTypes)
	assert.Equal(t, 3, march.Readings)
	assert.Equal(t, 2, march.DaysWithData)
	assert.Equal(t, 1, march.NegativeCount)
	assert.Equal(t, -4.0, march.NegativeSum)
	assert.Equal(t, 30.0, march.TotalVolume)
	require.NotNil(t, march.Extraction)
	assert.Equal(t, 10.0, march.Extraction.Min)
	assert.Equal(t, 15.0, march.Extraction.Mean)
	assert.Equal(t, 20.0, march.Extraction.Max)
	assert.InDelta(t, 10.0, march.Mean, 1e-9)
	assert.InDelta(t, 10.0, march.StdDev, 1e-9)

	april := months[1]
	assert.Equal(t, "2021-04", april.Month)
	assert.Equal(t, 0, april.Readings)
	assert.Equal(t, 1, april.NegativeCount)
	assert.Nil(t, april.Extraction, "no extraction, no extraction stats")
}

func TestMonthlyDoesNotModifyInput(t *testing.T) {
	c := combined(models.Volume,
		models.Reading{Time: at(3, 1, 0), Value: -4},
		models.Reading{Time: at(3, 2, 0), Value: 5},
	)
	before := append([]models.Reading(nil), c.Readings...)

	NewEngine(Config{}).Monthly(c)
	assert.Equal(t, before, c.Readings)
}

func TestMonthlyWaterMeterIsDifferenced(t *testing.T) {
	c := combined(models.WaterMeter,
		models.Reading{Time: at(1, 31, 0), Value: 100},
		models.Reading{Time: at(2, 1, 0), Value: 110},
		models.Reading{Time: at(2, 2, 0), Value: 125},
		// meter replaced, the drop shows up as a negative volume
		models.Reading{Time: at(2, 3, 0), Value: 5},
	)

	months := NewEngine(Config{}).Monthly(c)
	require.Len(t, months, 1, "the first meter reading has no volume")
	feb := months[0]
	assert.Equal(t, "2021-02", feb.Month)
	assert.Equal(t, 2, feb.Readings)
	assert.Equal(t, 25.0, feb.TotalVolume)
	assert.Equal(t, 1, feb.NegativeCount)
	assert.Equal(t, -120.0, feb.NegativeSum)
}

func TestMonthlyMixedSegments(t *testing.T) {
	cv := models.NewSeries("P1", models.ComplianceVolume, []models.Reading{
		{Time: at(5, 1, 0), Value: 3},
		{Time: at(5, 2, 0), Value: 3},
	})
	meter := models.NewSeries("P1", models.WaterMeter, []models.Reading{
		{Time: at(5, 3, 0), Value: 1000},
		{Time: at(5, 4, 0), Value: 1004},
	})
	c := models.CombinedSeries{
		Point:    "P1",
		Readings: append(append([]models.Reading(nil), cv.Readings...), meter.Readings...),
		Segments: []models.Segment{
			{Type: models.ComplianceVolume, Start: cv.Start(), End: cv.End(), Count: 2},
			{Type: models.WaterMeter, Start: meter.Start(), End: meter.End(), Count: 2},
		},
	}

	months := NewEngine(Config{}).Monthly(c)
	require.Len(t, months, 1)
	assert.Equal(t, []models.MeasurementType{models.ComplianceVolume, models.WaterMeter}, months[0].MeasurementTypes)
	assert.Equal(t, 3, months[0].Readings)
	assert.Equal(t, 10.0, months[0].TotalVolume)
}

// spikySeries is a month of 15-minute readings alternating 0 and 2, with one
// reading past each of the 5, 10 and 20 sd thresholds.
func spikySeries() models.CombinedSeries {
	var rs []models.Reading
	start := at(6, 1, 0)
	for i := 0; i < 30*96; i++ {
		rs = append(rs, models.Reading{Time: start.Add(time.Duration(i) * 15 * time.Minute), Value: float64(2 * (i % 2))})
	}
	rs[101].Value = 8
	rs[1001].Value = 15
	rs[2001].Value = 30
	return combined(models.Volume, rs...)
}

func TestMonthlySpikes(t *testing.T) {
	months := NewEngine(Config{}).Monthly(spikySeries())
	require.Len(t, months, 1)

	m := months[0]
	assert.Equal(t, "2021-06", m.Month)
	assert.Equal(t, 3, m.Spikes5SD)
	assert.Equal(t, 2, m.Spikes10SD)
	assert.Equal(t, 1, m.Spikes20SD)
}

func TestMonthlySpikeGating(t *testing.T) {
	months := NewEngine(Config{SpikeMinReadings: 5000}).Monthly(spikySeries())
	require.Len(t, months, 1)
	assert.Zero(t, months[0].Spikes5SD)

	months = NewEngine(Config{SpikeMinStdDev: 1e6}).Monthly(spikySeries())
	assert.Zero(t, months[0].Spikes5SD)
}

func TestMonthlySpikeOrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	engine := NewEngine(Config{})

	for run := 0; run < 100; run++ {
		var rs []models.Reading
		start := at(1, 1, 0)
		for i := 0; i < 500+rng.Intn(2000); i++ {
			v := rng.ExpFloat64() * 10
			if rng.Intn(50) == 0 {
				v *= 100 * rng.Float64()
			}
			if rng.Intn(40) == 0 {
				v = -v
			}
			rs = append(rs, models.Reading{Time: start.Add(time.Duration(i) * 3 * time.Hour), Value: v})
		}

		for _, m := range engine.Monthly(combined(models.Volume, rs...)) {
			require.LessOrEqual(t, m.Spikes20SD, m.Spikes10SD)
			require.LessOrEqual(t, m.Spikes10SD, m.Spikes5SD)
		}
	}
}

func TestMonthlyIdempotent(t *testing.T) {
	engine := NewEngine(Config{})
	c := spikySeries()
	assert.Equal(t, engine.Monthly(c), engine.Monthly(c))
}

func TestMonthlyEmpty(t *testing.T) {
	assert.Empty(t, NewEngine(Config{}).Monthly(models.CombinedSeries{Point: "P1"}))
}

func TestMonthlyLocation(t *testing.T) {
	nz, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 2021-03-31 12:00 UTC is already April in New Zealand
	c := combined(models.Volume, models.Reading{Time: time.Date(2021, 3, 31, 12, 0, 0, 0, time.UTC), Value: 1})

	months := NewEngine(Config{Location: nz}).Monthly(c)
	require.Len(t, months, 1)
	assert.Equal(t, "2021-04", months[0].Month)
}

func TestReferences(t *testing.T) {
	rate, volume, period := 12.5, 7000.0, 7

	refs := References(&models.ResolvedConsent{Rate: &rate, MultiDayVolume: &volume, MultiDayPeriod: &period})
	require.NotNil(t, refs.DailyVolume)
	assert.Equal(t, 1080.0, *refs.DailyVolume)
	assert.Equal(t, 12.5, *refs.MaxRate)
	require.NotNil(t, refs.MovingAverage)
	assert.Equal(t, 1000.0, *refs.MovingAverage)
	assert.Equal(t, 7, refs.MovingAveragePeriod)

	zero := 0
	refs = References(&models.ResolvedConsent{MultiDayVolume: &volume, MultiDayPeriod: &zero})
	assert.Nil(t, refs.DailyVolume)
	assert.Nil(t, refs.MovingAverage)

	assert.Equal(t, models.ConsentReferences{}, References(nil))
}

func TestSummary(t *testing.T) {
	c := combined(models.Volume,
		models.Reading{Time: at(3, 1, 0), Value: 10},
		models.Reading{Time: at(3, 1, 12), Value: -2},
		models.Reading{Time: at(3, 10, 0), Value: 30},
	)
	ranges := []models.MeasurementRange{{Type: models.Volume}, {Type: models.WaterMeter}}

	s := NewEngine(Config{}).Summary(c, ranges)
	assert.True(t, s.InTelemetry)
	assert.Equal(t, 2, s.MeasurementTypes)
	assert.Equal(t, 1, s.TypesUsed)
	assert.Equal(t, 10, s.TotalDays)
	assert.Equal(t, 2, s.DaysWithData)
	assert.Equal(t, 3, s.TotalReports)
	assert.Equal(t, 1, s.NegativeCount)
	require.NotNil(t, s.Extraction)
	assert.Equal(t, 20.0, s.Extraction.Mean)

	empty := NewEngine(Config{}).Summary(models.CombinedSeries{Point: "P2"}, nil)
	assert.False(t, empty.InTelemetry)
	assert.Zero(t, empty.TotalDays)
}

func TestDaily(t *testing.T) {
	c := combined(models.Volume,
		models.Reading{Time: at(7, 1, 6), Value: 43.2},
		models.Reading{Time: at(7, 1, 18), Value: 43.2},
		models.Reading{Time: at(7, 3, 0), Value: 86.4},
		models.Reading{Time: at(7, 4, 0), Value: -5},
	)

	days := NewEngine(Config{}).Daily(c, models.ConsentReferences{MovingAveragePeriod: 2})
	require.Len(t, days, 4)

	assert.Equal(t, at(7, 1, 0), days[0].Date)
	assert.Equal(t, 2, days[0].Readings)
	assert.InDelta(t, 86.4, *days[0].Volume, 1e-9)
	assert.InDelta(t, 1.0, *days[0].Rate, 1e-9)
	assert.Nil(t, days[0].MovingAverage, "window not yet full")

	assert.Nil(t, days[1].Volume)
	require.NotNil(t, days[1].MovingAverage)
	assert.Equal(t, 43.2, *days[1].MovingAverage)
	assert.Equal(t, 43.2, *days[2].MovingAverage)

	assert.Equal(t, 1, days[3].Readings)
	assert.Nil(t, days[3].Volume, "negative volumes are not plotted")
}

func TestDailyWaterYearPadding(t *testing.T) {
	c := combined(models.Volume, models.Reading{Time: at(3, 15, 0), Value: 1})

	days := NewEngine(Config{WaterYearPadding: true}).Daily(c, models.ConsentReferences{})
	require.NotEmpty(t, days)
	assert.Equal(t, time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, at(3, 15, 0), days[len(days)-1].Date)
	assert.False(t, math.IsNaN(*days[len(days)-1].Volume))
}

func TestReport(t *testing.T) {
	rate := 2.0
	report := NewEngine(Config{}).Report(spikySeries(), nil, &models.ResolvedConsent{Rate: &rate}, false)
	assert.Equal(t, models.MonitoredPoint("P1"), report.Point)
	assert.Len(t, report.Monthly, 1)
	assert.Equal(t, 172.8, *report.References.DailyVolume)
	assert.Nil(t, report.Daily)
}
