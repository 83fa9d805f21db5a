package cleaner

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"covidprj/internal/loader"
	"covidprj/internal/model"
)

// DailyFlowColumns: nulo vira 0.
var DailyFlowColumns = []model.Column{
	model.ColNewCases,
	model.ColNewDeaths,
	model.ColNewCasesSmoothed,
	model.ColNewDeathsSmoothed,
}

// CumulativeColumns: nulo herda o último valor conhecido da mesma location.
var CumulativeColumns = []model.Column{
	model.ColTotalCases,
	model.ColTotalDeaths,
	model.ColTotalVaccinations,
	model.ColPeopleVaccinated,
	model.ColPeopleFullyVaccinated,
}

// quantas linhas descartadas são detalhadas no log de debug
const maxLoggedDrops = 5

// Result separa os países das linhas agregadas (World, continentes, faixas de renda).
type Result struct {
	Countries  model.Table
	Aggregates model.Table
	Dropped    int
}

// Clean converte as linhas brutas em Records, ordena por (location, date),
// separa países de agregados e aplica a política de preenchimento nos países.
// Linhas malformadas são descartadas e contadas.
func Clean(raw *loader.RawTable, log *zap.SugaredLogger) (*Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: tabela bruta ausente", model.ErrDataUnavailable)
	}

	records := make([]model.Record, 0, len(raw.Rows))
	dropped := 0
	for i, row := range raw.Rows {
		rec, err := ParseRow(raw, row)
		if err != nil {
			dropped++
			if dropped <= maxLoggedDrops {
				log.Debugf("[Cleaner] Linha %d descartada: %v", i+2, err)
			}
			continue
		}
		records = append(records, rec)
	}

	SortRecords(records)

	var countries, aggregates []model.Record
	for i := range records {
		if records[i].IsCountry() {
			countries = append(countries, records[i])
		} else {
			aggregates = append(aggregates, records[i])
		}
	}

	FillMissing(countries)

	if dropped > 0 {
		log.Warnf("[Cleaner] %d linhas malformadas descartadas", dropped)
	}
	log.Infof("[Cleaner] %d registros de países, %d registros agregados", len(countries), len(aggregates))

	return &Result{
		Countries:  model.Table{Schema: raw.Schema, Records: countries},
		Aggregates: model.Table{Schema: raw.Schema, Records: aggregates},
		Dropped:    dropped,
	}, nil
}

// ParseRow monta um Record a partir de uma linha projetada do CSV. Células vazias
// ficam nulas; data ilegível ou métrica não numérica é model.ErrMalformedRecord.
func ParseRow(raw *loader.RawTable, row []string) (model.Record, error) {
	rec := model.Record{
		Location:  strings.TrimSpace(raw.Get(row, model.ColLocation)),
		ISOCode:   strings.TrimSpace(raw.Get(row, model.ColISOCode)),
		Continent: strings.TrimSpace(raw.Get(row, model.ColContinent)),
	}
	if rec.Location == "" {
		return rec, fmt.Errorf("%w: location vazia", model.ErrMalformedRecord)
	}

	dateStr := strings.TrimSpace(raw.Get(row, model.ColDate))
	date, err := time.Parse(model.DateLayout, dateStr)
	if err != nil {
		return rec, fmt.Errorf("%w: data inválida %q", model.ErrMalformedRecord, dateStr)
	}
	rec.Date = date

	for _, c := range model.MetricColumns {
		s := strings.TrimSpace(raw.Get(row, c))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, fmt.Errorf("%w: %s=%q não é numérico", model.ErrMalformedRecord, c, s)
		}
		*rec.Field(c) = model.Some(v)
	}
	return rec, nil
}

// SortRecords ordena por (location, date) de forma estável.
func SortRecords(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Location != records[j].Location {
			return records[i].Location < records[j].Location
		}
		return records[i].Date.Before(records[j].Date)
	})
}

// FillMissing aplica a política de preenchimento por coluna no próprio slice.
// records precisa estar ordenado por (location, date). Rodar duas vezes não muda nada.
func FillMissing(records []model.Record) {
	last := make(map[model.Column]float64, len(CumulativeColumns))
	location := ""
	for i := range records {
		r := &records[i]
		if i == 0 || r.Location != location {
			location = r.Location
			clear(last)
		}

		for _, c := range DailyFlowColumns {
			if f := r.Field(c); !f.Valid {
				*f = model.Some(0)
			}
		}

		for _, c := range CumulativeColumns {
			f := r.Field(c)
			if f.Valid {
				last[c] = f.Value
				continue
			}
			*f = model.Some(last[c])
		}
	}
}
