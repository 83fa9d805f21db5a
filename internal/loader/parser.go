package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"covidprj/internal/model"
)

// RawTable é o CSV projetado nas ConsumedColumns, ainda como texto.
// Cada linha tem len(ConsumedColumns) campos; coluna ausente na fonte vira "".
type RawTable struct {
	Schema model.Schema
	Rows   [][]string
}

// Get devolve o campo da coluna c em row.
func (t *RawTable) Get(row []string, c model.Column) string {
	i, ok := consumedIndex[c]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Decode lê um CSV com cabeçalho e valida o schema antes de ler as linhas.
func Decode(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: CSV vazio", model.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("%w: cabeçalho ilegível: %v", model.ErrDataUnavailable, err)
	}

	schema, positions, err := ValidateHeader(header)
	if err != nil {
		return nil, err
	}

	table := &RawTable{Schema: schema}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: linha %d: %v", model.ErrDataUnavailable, len(table.Rows)+2, err)
		}

		row := make([]string, len(positions))
		for i, p := range positions {
			if p >= 0 && p < len(rec) {
				row[i] = rec[p]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// MissingCounts conta células vazias por coluna presente na fonte.
func (t *RawTable) MissingCounts() map[model.Column]int {
	counts := make(map[model.Column]int)
	for _, c := range ConsumedColumns {
		if !t.Schema.Has(c) {
			continue
		}
		i := consumedIndex[c]
		n := 0
		for _, row := range t.Rows {
			if strings.TrimSpace(row[i]) == "" {
				n++
			}
		}
		counts[c] = n
	}
	return counts
}
