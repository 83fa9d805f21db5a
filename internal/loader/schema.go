package loader

import (
	"fmt"
	"strings"

	"covidprj/internal/model"
)

// RequiredColumns precisam existir no cabeçalho; sem elas o run é abortado.
var RequiredColumns = []model.Column{
	model.ColLocation,
	model.ColContinent,
	model.ColDate,
	model.ColISOCode,
	model.ColNewCases,
	model.ColNewDeaths,
	model.ColTotalCases,
	model.ColTotalDeaths,
	model.ColPopulation,
}

// OptionalColumns podem faltar; a ausência fica registrada no Schema.
var OptionalColumns = []model.Column{
	model.ColNewCasesSmoothed,
	model.ColNewDeathsSmoothed,
	model.ColTotalVaccinations,
	model.ColPeopleVaccinated,
	model.ColPeopleFullyVaccinated,
	model.ColStringencyIndex,
	model.ColMedianAge,
}

// ConsumedColumns é a ordem de projeção de cada linha da RawTable.
var ConsumedColumns = append(append([]model.Column{}, RequiredColumns...), OptionalColumns...)

var consumedIndex = func() map[model.Column]int {
	idx := make(map[model.Column]int, len(ConsumedColumns))
	for i, c := range ConsumedColumns {
		idx[c] = i
	}
	return idx
}()

// ValidateHeader confere o cabeçalho uma única vez. Devolve o schema da fonte e,
// para cada coluna consumida, sua posição no registro do CSV (-1 se ausente).
func ValidateHeader(header []string) (model.Schema, []int, error) {
	pos := make(map[model.Column]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		pos[model.Column(strings.ToLower(name))] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return model.Schema{}, nil, fmt.Errorf("%w: colunas obrigatórias ausentes: %s", model.ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	var present []model.Column
	positions := make([]int, len(ConsumedColumns))
	for i, c := range ConsumedColumns {
		p, ok := pos[c]
		if !ok {
			positions[i] = -1
			continue
		}
		positions[i] = p
		present = append(present, c)
	}
	return model.NewSchema(present...), positions, nil
}
