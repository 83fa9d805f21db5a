package model

import "time"

// WorldPoint é uma linha da série global.
type WorldPoint struct {
	Date                  time.Time
	TotalCases            float64
	TotalDeaths           float64
	NewCases              float64
	NewDeaths             float64
	TotalVaccinations     float64
	NewCasesSmoothed7Day  float64
	NewDeathsSmoothed7Day float64
}

// WorldSeries tem um ponto por data. Synthesized é true quando os pontos vieram
// da soma dos países e não da linha agregada "World".
type WorldSeries struct {
	Synthesized bool
	Points      []WorldPoint
}

func (w WorldSeries) Empty() bool {
	return len(w.Points) == 0
}

// Latest devolve o último ponto da série.
func (w WorldSeries) Latest() (WorldPoint, bool) {
	if len(w.Points) == 0 {
		return WorldPoint{}, false
	}
	return w.Points[len(w.Points)-1], true
}
