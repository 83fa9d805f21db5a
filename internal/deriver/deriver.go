package deriver

import (
	"math"

	"covidprj/internal/model"
)

// Ratio devolve num/den*100. Denominador não positivo ou resultado não finito vira 0.
func Ratio(num, den float64) float64 {
	if !(den > 0) || math.IsInf(den, 0) {
		return 0
	}
	r := num / den * 100
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0
	}
	return r
}

// Derive devolve uma cópia de table com as três colunas de taxa preenchidas.
func Derive(table model.Table) model.Table {
	out := table.Clone()
	for i := range out.Records {
		r := &out.Records[i]
		r.CaseFatalityRate = Ratio(r.TotalDeaths.Or(0), r.TotalCases.Or(0))
		r.VaccinationRatePerHundred = Ratio(r.PeopleVaccinated.Or(0), r.Population.Or(0))
		r.FullyVaccinatedPerHundred = Ratio(r.PeopleFullyVaccinated.Or(0), r.Population.Or(0))
	}
	return out
}
