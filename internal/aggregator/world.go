package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"covidprj/internal/cleaner"
	"covidprj/internal/model"
)

// WorldLocation é o nome da linha agregada global no dataset da OWID.
const WorldLocation = "World"

// SmoothingWindow é a janela da média móvel das séries diárias.
const SmoothingWindow = 7

// RollingMean é a média móvel simples das últimas window posições. Posições com
// menos de minPeriods valores na janela ficam NaN.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	if window < 1 {
		window = 1
	}
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := min(i+1, window)
		if n < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// BuildWorldSeries monta a série global. Usa a linha "World" quando ela existe
// nos agregados; senão soma os países por data.
func BuildWorldSeries(countries, aggregates model.Table) (model.WorldSeries, error) {
	if countries.Len() == 0 {
		return model.WorldSeries{}, fmt.Errorf("%w: nenhum registro de país após a limpeza", model.ErrInsufficientData)
	}

	if world := worldRecords(aggregates); len(world) > 0 {
		return fromAggregate(world, aggregates.Schema), nil
	}
	return synthesize(countries), nil
}

func worldRecords(aggregates model.Table) []model.Record {
	var out []model.Record
	for i := range aggregates.Records {
		r := aggregates.Records[i]
		if r.Location == WorldLocation && !r.IsCountry() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func fromAggregate(world []model.Record, schema model.Schema) model.WorldSeries {
	// a validade das colunas suavizadas precisa ser lida antes do preenchimento
	casesSmoothed := make([]model.Float, len(world))
	deathsSmoothed := make([]model.Float, len(world))
	for i := range world {
		casesSmoothed[i] = world[i].NewCasesSmoothed
		deathsSmoothed[i] = world[i].NewDeathsSmoothed
	}

	cleaner.FillMissing(world)

	points := make([]model.WorldPoint, len(world))
	newCases := make([]float64, len(world))
	newDeaths := make([]float64, len(world))
	for i := range world {
		r := &world[i]
		points[i] = model.WorldPoint{
			Date:              r.Date,
			TotalCases:        r.TotalCases.Or(0),
			TotalDeaths:       r.TotalDeaths.Or(0),
			NewCases:          r.NewCases.Or(0),
			NewDeaths:         r.NewDeaths.Or(0),
			TotalVaccinations: r.TotalVaccinations.Or(0),
		}
		newCases[i] = points[i].NewCases
		newDeaths[i] = points[i].NewDeaths
	}

	rollingCases := RollingMean(newCases, SmoothingWindow, 1)
	rollingDeaths := RollingMean(newDeaths, SmoothingWindow, 1)
	useCases := schema.Has(model.ColNewCasesSmoothed)
	useDeaths := schema.Has(model.ColNewDeathsSmoothed)
	for i := range points {
		points[i].NewCasesSmoothed7Day = pick(useCases, casesSmoothed[i], rollingCases[i])
		points[i].NewDeathsSmoothed7Day = pick(useDeaths, deathsSmoothed[i], rollingDeaths[i])
	}
	return model.WorldSeries{Points: points}
}

func pick(useSource bool, source model.Float, rolling float64) float64 {
	if useSource && source.Valid {
		return source.Value
	}
	return rolling
}

func synthesize(countries model.Table) model.WorldSeries {
	byDate := make(map[time.Time]*model.WorldPoint)
	var dates []time.Time
	for i := range countries.Records {
		r := &countries.Records[i]
		p, ok := byDate[r.Date]
		if !ok {
			p = &model.WorldPoint{Date: r.Date}
			byDate[r.Date] = p
			dates = append(dates, r.Date)
		}
		p.TotalCases += r.TotalCases.Or(0)
		p.TotalDeaths += r.TotalDeaths.Or(0)
		p.NewCases += r.NewCases.Or(0)
		p.NewDeaths += r.NewDeaths.Or(0)
		p.TotalVaccinations += r.TotalVaccinations.Or(0)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]model.WorldPoint, len(dates))
	newCases := make([]float64, len(dates))
	newDeaths := make([]float64, len(dates))
	for i, d := range dates {
		points[i] = *byDate[d]
		newCases[i] = points[i].NewCases
		newDeaths[i] = points[i].NewDeaths
	}

	rollingCases := RollingMean(newCases, SmoothingWindow, 1)
	rollingDeaths := RollingMean(newDeaths, SmoothingWindow, 1)
	for i := range points {
		points[i].NewCasesSmoothed7Day = rollingCases[i]
		points[i].NewDeathsSmoothed7Day = rollingDeaths[i]
	}
	return model.WorldSeries{Synthesized: true, Points: points}
}
