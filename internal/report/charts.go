package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"covidprj/internal/model"
	"covidprj/internal/pipeline"
)

const pageTitle = "Análise COVID-19"

var (
	warmScale = []string{"#0d0887", "#7e03a8", "#cc4778", "#f89540", "#f0f921"}
	coolScale = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}
)

// Options controla quais países e quantas posições entram no relatório.
type Options struct {
	TopN      int
	Countries []string
}

// as opções do echarts recebem *bool
func boolPtr(b bool) *bool { return &b }

// BuildPage monta todos os gráficos possíveis com os dados de res.
// Os que ficaram sem dados voltam em skipped com o motivo.
func BuildPage(res *pipeline.Result, o Options) (*components.Page, []string) {
	var list []components.Charter
	var skipped []string

	if res.WorldErr != nil || res.World.Empty() {
		skipped = append(skipped, fmt.Sprintf("tendências globais: %v", res.WorldErr))
	} else {
		pts := res.World.Points
		subtitle := "agregado World"
		if res.World.Synthesized {
			subtitle = "soma dos países"
		}
		list = append(list,
			globalLine("Novos casos diários no mundo (média móvel 7 dias)", subtitle, "Casos", pts,
				func(p model.WorldPoint) float64 { return p.NewCasesSmoothed7Day }),
			globalLine("Novas mortes diárias no mundo (média móvel 7 dias)", subtitle, "Mortes", pts,
				func(p model.WorldPoint) float64 { return p.NewDeathsSmoothed7Day }),
			globalLine("Total de vacinas aplicadas no mundo", subtitle, "Doses", pts,
				func(p model.WorldPoint) float64 { return p.TotalVaccinations }),
		)
	}

	if len(res.Snapshot) == 0 {
		skipped = append(skipped, "rankings e mapas: nenhum país no snapshot")
	} else {
		list = append(list,
			topBar(fmt.Sprintf("Top %d países por casos confirmados", o.TopN), "Casos",
				TopN(res.Snapshot, model.ColTotalCases, o.TopN), model.ColTotalCases),
			topBar(fmt.Sprintf("Top %d países por mortes", o.TopN), "Mortes",
				TopN(res.Snapshot, model.ColTotalDeaths, o.TopN), model.ColTotalDeaths),
			topBar(fmt.Sprintf("Top %d países por população totalmente vacinada (%%)", o.TopN), "% vacinados",
				TopN(res.Snapshot, model.ColFullyVaccinatedPerHundred, o.TopN), model.ColFullyVaccinatedPerHundred),
		)
	}

	selected := SelectLocations(res.Countries, o.Countries)
	if selected.Len() == 0 {
		skipped = append(skipped, "comparação de países: nenhum dado para os países selecionados")
	} else {
		list = append(list,
			countryLines("Novos casos diários (7 dias) nos países selecionados", "Casos", selected, model.ColNewCasesSmoothed),
			countryLines("Novas mortes diárias (7 dias) nos países selecionados", "Mortes", selected, model.ColNewDeathsSmoothed),
		)
	}

	if len(res.Snapshot) > 0 {
		list = append(list,
			worldMap("Mapa mundial de casos confirmados", "Casos", res.Snapshot, model.ColTotalCases, warmScale),
			worldMap("Mapa mundial de mortes", "Mortes", res.Snapshot, model.ColTotalDeaths, warmScale),
			worldMap("Mapa mundial de vacinados com ao menos uma dose (%)", "% vacinados", res.Snapshot, model.ColVaccinationRatePerHundred, coolScale),
		)
	}

	if res.CorrelationErr != nil || len(res.Correlation) == 0 {
		skipped = append(skipped, fmt.Sprintf("correlações: %v", res.CorrelationErr))
	} else {
		day := res.CorrelationDate.Format(model.DateLayout)
		list = append(list,
			scatter(fmt.Sprintf("Índice de rigor vs. novos casos (snapshot %s)", day),
				"Índice de rigor", "Novos casos", res.Correlation, model.ColStringencyIndex, model.ColNewCases, true),
			scatter(fmt.Sprintf("Idade mediana vs. letalidade (snapshot %s)", day),
				"Idade mediana", "Letalidade (%)", res.Correlation, model.ColMedianAge, model.ColCaseFatalityRate, false),
		)
	}

	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(list...)
	return page, skipped
}

// Render escreve a página HTML em w.
func Render(w io.Writer, res *pipeline.Result, o Options) ([]string, error) {
	page, skipped := BuildPage(res, o)
	if err := page.Render(w); err != nil {
		return skipped, fmt.Errorf("failed to render report: %w", err)
	}
	return skipped, nil
}

// WriteFile renderiza o relatório no caminho informado.
func WriteFile(path string, res *pipeline.Result, o Options) ([]string, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	skipped, err := Render(f, res, o)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return skipped, err
}

func baseOptions(title, subtitle, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: boolPtr(true)}),
		charts.WithLegendOpts(opts.Legend{Show: boolPtr(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		charts.WithGridOpts(opts.Grid{
			ContainLabel: boolPtr(true),
			Left:         "3%",
			Right:        "4%",
			Bottom:       "12%",
		}),
	}
}

func globalLine(title, subtitle, yName string, pts []model.WorldPoint, value func(model.WorldPoint) float64) *charts.Line {
	dates := make([]string, len(pts))
	data := make([]opts.LineData, len(pts))
	for i, p := range pts {
		dates[i] = p.Date.Format(model.DateLayout)
		data[i] = opts.LineData{Value: round(value(p))}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions(title, subtitle, yName)...)
	line.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Name: "Data"}))
	line.SetXAxis(dates).AddSeries(yName, data)
	return line
}

func topBar(title, yName string, rows []model.Record, metric model.Column) *charts.Bar {
	names := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i := range rows {
		names[i] = rows[i].Location
		data[i] = opts.BarData{Value: round(rows[i].Metric(metric))}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions(title, "", yName)...)
	bar.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{
		Name:      "País",
		AxisLabel: &opts.AxisLabel{Rotate: 45},
	}))
	bar.SetXAxis(names).AddSeries(yName, data)
	return bar
}

func countryLines(title, yName string, selected model.Table, metric model.Column) *charts.Line {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	byLocation := make(map[string]map[time.Time]float64)
	for i := range selected.Records {
		r := &selected.Records[i]
		if !seen[r.Date] {
			seen[r.Date] = true
			dates = append(dates, r.Date)
		}
		if byLocation[r.Location] == nil {
			byLocation[r.Location] = make(map[time.Time]float64)
		}
		byLocation[r.Location][r.Date] = r.Metric(metric)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	axis := make([]string, len(dates))
	for i, d := range dates {
		axis[i] = d.Format(model.DateLayout)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions(title, "", yName)...)
	line.SetGlobalOptions(charts.WithTooltipOpts(opts.Tooltip{Show: boolPtr(true), Trigger: "axis"}))
	line.SetXAxis(axis)
	for _, loc := range selected.Locations() {
		values := byLocation[loc]
		data := make([]opts.LineData, len(dates))
		for i, d := range dates {
			v, ok := values[d]
			if !ok {
				data[i] = opts.LineData{Value: "-"}
				continue
			}
			data[i] = opts.LineData{Value: round(v)}
		}
		line.AddSeries(loc, data)
	}
	return line
}

func worldMap(title, seriesName string, snapshot []model.Record, metric model.Column, scale []string) *charts.Map {
	data := make([]opts.MapData, 0, len(snapshot))
	maxValue := 0.0
	for i := range snapshot {
		v := snapshot[i].Metric(metric)
		maxValue = math.Max(maxValue, v)
		data = append(data, opts.MapData{Name: mapRegion(&snapshot[i]), Value: round(v)})
	}

	m := charts.NewMap()
	m.RegisterMapType("world")
	m.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "dados mais recentes de cada país"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: boolPtr(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: boolPtr(true),
			Min:        0,
			Max:        float32(maxValue),
			InRange:    &opts.VisualMapInRange{Color: scale},
		}),
	)
	m.AddSeries(seriesName, data)
	return m
}

func scatter(title, xName, yName string, rows []model.Record, x, y model.Column, logY bool) *charts.Scatter {
	maxPop := 0.0
	for i := range rows {
		maxPop = math.Max(maxPop, rows[i].Population.Or(0))
	}

	// uma série por continente, na ordem de primeira aparição
	byContinent := make(map[string][]opts.ScatterData)
	var continents []string
	for i := range rows {
		r := &rows[i]
		yv := r.Metric(y)
		if logY && yv <= 0 {
			continue
		}
		if _, ok := byContinent[r.Continent]; !ok {
			continents = append(continents, r.Continent)
		}
		byContinent[r.Continent] = append(byContinent[r.Continent], opts.ScatterData{
			Name:       r.Location,
			Value:      []float64{round(r.Metric(x)), round(yv)},
			SymbolSize: bubbleSize(r.Population.Or(0), maxPop),
		})
	}

	yAxis := opts.YAxis{Name: yName, Type: "value"}
	if logY {
		yAxis.Type = "log"
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(baseOptions(title, "tamanho do ponto proporcional à população", yName)...)
	sc.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: xName, Type: "value"}),
		charts.WithYAxisOpts(yAxis),
	)
	for _, c := range continents {
		sc.AddSeries(c, byContinent[c])
	}
	return sc
}

// bubbleSize escala a população para um raio entre 6 e 40 px.
func bubbleSize(pop, maxPop float64) int {
	if maxPop <= 0 || pop <= 0 {
		return 6
	}
	return 6 + int(math.Round(34*math.Sqrt(pop/maxPop)))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
