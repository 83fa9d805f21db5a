package report

import (
	"fmt"
	"sort"
	"strings"

	"covidprj/internal/model"
)

// RankMetrics são as métricas aceitas por TopN e pelo comando snapshot.
var RankMetrics = []model.Column{
	model.ColTotalCases,
	model.ColTotalDeaths,
	model.ColFullyVaccinatedPerHundred,
	model.ColVaccinationRatePerHundred,
	model.ColCaseFatalityRate,
}

// ParseMetric valida o nome de métrica vindo da linha de comando.
func ParseMetric(name string) (model.Column, error) {
	c := model.Column(strings.ToLower(strings.TrimSpace(name)))
	for _, m := range RankMetrics {
		if m == c {
			return c, nil
		}
	}
	names := make([]string, len(RankMetrics))
	for i, m := range RankMetrics {
		names[i] = string(m)
	}
	return "", fmt.Errorf("métrica desconhecida %q (use uma de: %s)", name, strings.Join(names, ", "))
}

// TopN devolve os n registros com maior valor da métrica. Empates mantêm a ordem do snapshot.
func TopN(snapshot []model.Record, metric model.Column, n int) []model.Record {
	if n <= 0 {
		return nil
	}
	out := make([]model.Record, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metric(metric) > out[j].Metric(metric)
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// SelectLocations mantém as linhas das locations pedidas, na ordem da tabela.
func SelectLocations(countries model.Table, names []string) model.Table {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := model.Table{Schema: countries.Schema}
	for i := range countries.Records {
		if want[countries.Records[i].Location] {
			out.Records = append(out.Records, countries.Records[i])
		}
	}
	return out
}
