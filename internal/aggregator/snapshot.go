package aggregator

import (
	"fmt"
	"sort"
	"time"

	"covidprj/internal/model"
)

// LatestSnapshot escolhe, por location, o registro de maior data.
// Em empate vence o primeiro na ordem de entrada. A saída vem ordenada por location.
func LatestSnapshot(countries model.Table) []model.Record {
	index := make(map[string]int)
	var out []model.Record
	for i := range countries.Records {
		r := countries.Records[i]
		j, ok := index[r.Location]
		if !ok {
			index[r.Location] = len(out)
			out = append(out, r)
			continue
		}
		if r.Date.After(out[j].Date) {
			out[j] = r
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// CorrelationSnapshot devolve os países na data máxima global que têm
// stringency_index, median_age e population preenchidos.
func CorrelationSnapshot(countries model.Table) (time.Time, []model.Record, error) {
	_, last, ok := countries.DateRange()
	if !ok {
		return time.Time{}, nil, fmt.Errorf("%w: nenhum registro de país", model.ErrInsufficientData)
	}

	var out []model.Record
	for i := range countries.Records {
		r := countries.Records[i]
		if !r.Date.Equal(last) {
			continue
		}
		if !r.StringencyIndex.Valid || !r.MedianAge.Valid || !r.Population.Valid {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return last, nil, fmt.Errorf("%w: nenhum país com stringency_index, median_age e population em %s",
			model.ErrInsufficientData, last.Format(model.DateLayout))
	}
	return last, out, nil
}
