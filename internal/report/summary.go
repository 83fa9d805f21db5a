package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"covidprj/internal/model"
	"covidprj/internal/pipeline"
)

var (
	printer = message.NewPrinter(language.BrazilianPortuguese)

	headingStyle = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// PrintOverview escreve o resumo do dataset: contagens de linhas e países,
// o período, os valores ausentes por coluna e as estatísticas por métrica.
func PrintOverview(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w, headingStyle.Render("--- Visão geral do dataset ---"))
	fmt.Fprintln(w, printer.Sprintf("Fonte: %s", res.Source))
	fmt.Fprintln(w, printer.Sprintf("Linhas lidas: %d", res.RawRows))
	fmt.Fprintln(w, printer.Sprintf("Linhas descartadas (malformadas): %d", res.Dropped))
	fmt.Fprintln(w, printer.Sprintf("Registros de países: %d (%d países)", res.Countries.Len(), len(res.Snapshot)))
	fmt.Fprintln(w, printer.Sprintf("Registros agregados: %d", res.Aggregates.Len()))
	if first, last, ok := res.Countries.DateRange(); ok {
		fmt.Fprintf(w, "Período: %s a %s\n", first.Format(model.DateLayout), last.Format(model.DateLayout))
	}

	missing := missingRows(res.Missing)
	if len(missing) == 0 {
		fmt.Fprintln(w, "Nenhum valor ausente nas colunas consumidas.")
	} else {
		t := newTable("Coluna", "Ausentes")
		for _, m := range missing {
			t.Row(string(m.column), printer.Sprintf("%d", m.count))
		}
		fmt.Fprintln(w, "Valores ausentes por coluna:")
		fmt.Fprintln(w, t.String())
	}

	fmt.Fprintln(w, "Estatísticas dos registros de países:")
	fmt.Fprintln(w, describeTable(res).String())
}

type columnStats struct {
	count          int
	mean, min, max float64
}

// describe resume os valores não nulos de uma coluna numérica.
func describe(t model.Table, c model.Column) columnStats {
	var s columnStats
	sum := 0.0
	for i := range t.Records {
		f := t.Records[i].Field(c)
		if f == nil || !f.Valid {
			continue
		}
		if s.count == 0 || f.Value < s.min {
			s.min = f.Value
		}
		if s.count == 0 || f.Value > s.max {
			s.max = f.Value
		}
		sum += f.Value
		s.count++
	}
	if s.count > 0 {
		s.mean = sum / float64(s.count)
	}
	return s
}

func describeTable(res *pipeline.Result) *table.Table {
	t := newTable("Coluna", "Contagem", "Média", "Mín", "Máx")
	for _, c := range model.MetricColumns {
		s := describe(res.Countries, c)
		switch {
		case s.count > 0:
			t.Row(string(c), printer.Sprintf("%d", s.count),
				printer.Sprintf("%.2f", s.mean), printer.Sprintf("%.2f", s.min), printer.Sprintf("%.2f", s.max))
		case res.Schema.Has(c):
			t.Row(string(c), "0", "-", "-", "-")
		}
	}
	return t
}

type missingRow struct {
	column model.Column
	count  int
}

// missingRows mantém as colunas com ao menos uma célula vazia, as mais incompletas primeiro.
func missingRows(counts map[model.Column]int) []missingRow {
	var out []missingRow
	for c, n := range counts {
		if n > 0 {
			out = append(out, missingRow{c, n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].column < out[j].column
	})
	return out
}

// PrintRanking escreve a tabela do comando snapshot.
func PrintRanking(w io.Writer, rows []model.Record, metric model.Column) {
	t := newTable("#", "País", "Continente", "Data", string(metric))
	for i := range rows {
		r := &rows[i]
		t.Row(
			fmt.Sprintf("%d", i+1),
			r.Location,
			r.Continent,
			r.Date.Format(model.DateLayout),
			printer.Sprintf("%.2f", r.Metric(metric)),
		)
	}
	fmt.Fprintln(w, t.String())
}
