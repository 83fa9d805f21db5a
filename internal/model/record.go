package model

import (
	"sort"
	"time"
)

// Column é o nome de uma coluna do CSV (ou de uma métrica derivada).
type Column string

const (
	ColLocation  Column = "location"
	ColContinent Column = "continent"
	ColDate      Column = "date"
	ColISOCode   Column = "iso_code"

	ColNewCases              Column = "new_cases"
	ColNewDeaths             Column = "new_deaths"
	ColNewCasesSmoothed      Column = "new_cases_smoothed"
	ColNewDeathsSmoothed     Column = "new_deaths_smoothed"
	ColTotalCases            Column = "total_cases"
	ColTotalDeaths           Column = "total_deaths"
	ColTotalVaccinations     Column = "total_vaccinations"
	ColPeopleVaccinated      Column = "people_vaccinated"
	ColPeopleFullyVaccinated Column = "people_fully_vaccinated"
	ColPopulation            Column = "population"
	ColStringencyIndex       Column = "stringency_index"
	ColMedianAge             Column = "median_age"

	// Métricas derivadas, nunca lidas do CSV
	ColCaseFatalityRate          Column = "case_fatality_rate"
	ColVaccinationRatePerHundred Column = "vaccination_rate_per_hundred"
	ColFullyVaccinatedPerHundred Column = "fully_vaccinated_per_hundred"
)

// DateLayout é o formato da coluna date no dataset da OWID.
const DateLayout = "2006-01-02"

// MetricColumns são as colunas numéricas de origem, na ordem usada nos relatórios.
var MetricColumns = []Column{
	ColNewCases,
	ColNewDeaths,
	ColNewCasesSmoothed,
	ColNewDeathsSmoothed,
	ColTotalCases,
	ColTotalDeaths,
	ColTotalVaccinations,
	ColPeopleVaccinated,
	ColPeopleFullyVaccinated,
	ColPopulation,
	ColStringencyIndex,
	ColMedianAge,
}

// Float é um float64 anulável, como vem do CSV (célula vazia = nulo).
type Float struct {
	Value float64
	Valid bool
}

func Some(v float64) Float {
	return Float{Value: v, Valid: true}
}

// Or devolve o valor ou d quando nulo.
func (f Float) Or(d float64) float64 {
	if !f.Valid {
		return d
	}
	return f.Value
}

// Record é uma observação de (location, date).
type Record struct {
	Location  string
	ISOCode   string
	Continent string // vazio = linha agregada (World, continentes, faixas de renda)
	Date      time.Time

	NewCases              Float
	NewDeaths             Float
	NewCasesSmoothed      Float
	NewDeathsSmoothed     Float
	TotalCases            Float
	TotalDeaths           Float
	TotalVaccinations     Float
	PeopleVaccinated      Float
	PeopleFullyVaccinated Float
	Population            Float
	StringencyIndex       Float
	MedianAge             Float

	CaseFatalityRate          float64
	VaccinationRatePerHundred float64
	FullyVaccinatedPerHundred float64
}

// IsCountry indica se o registro é de um país (e não de um agregado).
func (r *Record) IsCountry() bool {
	return r.Continent != ""
}

// Field devolve um ponteiro para a métrica de origem, ou nil se a coluna não for numérica.
func (r *Record) Field(c Column) *Float {
	switch c {
	case ColNewCases:
		return &r.NewCases
	case ColNewDeaths:
		return &r.NewDeaths
	case ColNewCasesSmoothed:
		return &r.NewCasesSmoothed
	case ColNewDeathsSmoothed:
		return &r.NewDeathsSmoothed
	case ColTotalCases:
		return &r.TotalCases
	case ColTotalDeaths:
		return &r.TotalDeaths
	case ColTotalVaccinations:
		return &r.TotalVaccinations
	case ColPeopleVaccinated:
		return &r.PeopleVaccinated
	case ColPeopleFullyVaccinated:
		return &r.PeopleFullyVaccinated
	case ColPopulation:
		return &r.Population
	case ColStringencyIndex:
		return &r.StringencyIndex
	case ColMedianAge:
		return &r.MedianAge
	}
	return nil
}

// Metric devolve o valor de uma coluna de origem ou derivada; 0 quando nulo ou desconhecido.
func (r *Record) Metric(c Column) float64 {
	switch c {
	case ColCaseFatalityRate:
		return r.CaseFatalityRate
	case ColVaccinationRatePerHundred:
		return r.VaccinationRatePerHundred
	case ColFullyVaccinatedPerHundred:
		return r.FullyVaccinatedPerHundred
	}
	if f := r.Field(c); f != nil {
		return f.Or(0)
	}
	return 0
}

// Schema registra quais colunas a fonte trouxe. Decidido uma única vez no load.
type Schema struct {
	columns map[Column]bool
}

func NewSchema(cols ...Column) Schema {
	s := Schema{columns: make(map[Column]bool, len(cols))}
	for _, c := range cols {
		s.columns[c] = true
	}
	return s
}

func (s Schema) Has(c Column) bool {
	return s.columns[c]
}

// Columns devolve as colunas presentes ordenadas por nome.
func (s Schema) Columns() []Column {
	cols := make([]Column, 0, len(s.columns))
	for c := range s.columns {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

// Table é uma coleção de Records. Depois do Cleaner, vem ordenada por (location, date).
type Table struct {
	Schema  Schema
	Records []Record
}

func (t Table) Len() int {
	return len(t.Records)
}

// Clone copia os registros para que o estágio seguinte não altere a tabela de entrada.
func (t Table) Clone() Table {
	records := make([]Record, len(t.Records))
	copy(records, t.Records)
	return Table{Schema: t.Schema, Records: records}
}

// Locations devolve as locations distintas na ordem da tabela.
func (t Table) Locations() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range t.Records {
		loc := t.Records[i].Location
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	return out
}

// DateRange devolve a menor e a maior data da tabela. ok=false se vazia.
func (t Table) DateRange() (first, last time.Time, ok bool) {
	for i := range t.Records {
		d := t.Records[i].Date
		if !ok || d.Before(first) {
			first = d
		}
		if !ok || d.After(last) {
			last = d
		}
		ok = true
	}
	return first, last, ok
}
