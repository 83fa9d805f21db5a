package deriver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidprj/internal/model"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		num, den float64
		want     float64
	}{
		{"regular", 2, 100, 2},
		{"zero_denominator", 50, 0, 0},
		{"zero_over_zero", 0, 0, 0},
		{"negative_denominator", 5, -10, 0},
		{"numerator_above_denominator", 150, 100, 150},
		{"nan_numerator", math.NaN(), 10, 0},
		{"infinite_numerator", math.Inf(1), 10, 0},
		{"infinite_denominator", 10, math.Inf(1), 0},
		{"negative_numerator", -3, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.num, tt.den), 1e-9)
		})
	}
}

func TestRatio_AlwaysFiniteNonNegative(t *testing.T) {
	values := []float64{0, 1, -1, 1e-300, 1e300, math.MaxFloat64, math.SmallestNonzeroFloat64, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, n := range values {
		for _, d := range values {
			r := Ratio(n, d)
			assert.False(t, math.IsNaN(r) || math.IsInf(r, 0), "Ratio(%v, %v) = %v", n, d, r)
			assert.GreaterOrEqual(t, r, 0.0)
			if d == 0 {
				assert.Zero(t, r)
			}
		}
	}
}

func TestDerive(t *testing.T) {
	in := model.Table{Records: []model.Record{
		{
			Location:              "A",
			TotalCases:            model.Some(200),
			TotalDeaths:           model.Some(4),
			PeopleVaccinated:      model.Some(500),
			PeopleFullyVaccinated: model.Some(250),
			Population:            model.Some(1000),
		},
		{
			Location:         "B",
			PeopleVaccinated: model.Some(50),
			Population:       model.Some(0),
		},
		{
			Location:         "C",
			TotalCases:       model.Some(10),
			TotalDeaths:      model.Some(12),
			PeopleVaccinated: model.Some(10),
		},
	}}

	out := Derive(in)

	require.Len(t, out.Records, 3)
	a := out.Records[0]
	assert.InDelta(t, 2.0, a.CaseFatalityRate, 1e-9)
	assert.InDelta(t, 50.0, a.VaccinationRatePerHundred, 1e-9)
	assert.InDelta(t, 25.0, a.FullyVaccinatedPerHundred, 1e-9)

	b := out.Records[1]
	assert.Zero(t, b.VaccinationRatePerHundred)
	assert.Zero(t, b.CaseFatalityRate)

	c := out.Records[2]
	assert.InDelta(t, 120.0, c.CaseFatalityRate, 1e-9)
	assert.Zero(t, c.VaccinationRatePerHundred, "null population")

	assert.Zero(t, in.Records[0].CaseFatalityRate, "input must not be modified")
}

func TestDerive_MetricAccessor(t *testing.T) {
	out := Derive(model.Table{Records: []model.Record{{
		TotalCases:  model.Some(100),
		TotalDeaths: model.Some(1),
	}}})

	assert.InDelta(t, 1.0, out.Records[0].Metric(model.ColCaseFatalityRate), 1e-9)
}
