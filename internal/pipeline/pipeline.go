package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"covidprj/internal/aggregator"
	"covidprj/internal/cleaner"
	"covidprj/internal/deriver"
	"covidprj/internal/loader"
	"covidprj/internal/model"
	"covidprj/internal/observability"
)

// Nomes dos estágios usados no label "stage" das métricas.
const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageDerive    = "derive"
	StageAggregate = "aggregate"
)

// Result é tudo o que o Reporter consome. Nenhum campo é compartilhado com
// os estágios depois que Run retorna.
type Result struct {
	Source  string
	Schema  model.Schema
	RawRows int
	Missing map[model.Column]int
	Dropped int

	Countries  model.Table // já com as colunas derivadas
	Aggregates model.Table

	World    model.WorldSeries
	WorldErr error

	Snapshot []model.Record

	CorrelationDate time.Time
	Correlation     []model.Record
	CorrelationErr  error
}

type Pipeline struct {
	Loader  *loader.Loader
	Metrics *observability.Metrics // opcional
	Log     *zap.SugaredLogger
}

func New(l *loader.Loader, m *observability.Metrics, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{Loader: l, Metrics: m, Log: log}
}

// Run executa load, clean, derive e aggregate uma vez sobre source.
// Só falhas do Loader voltam como erro; InsufficientData fica registrado no Result.
func (p *Pipeline) Run(ctx context.Context, source string) (*Result, error) {
	start := time.Now()
	raw, err := p.Loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar dataset: %w", err)
	}
	p.observe(StageLoad, start)

	start = time.Now()
	cleaned, err := cleaner.Clean(raw, p.Log)
	if err != nil {
		return nil, fmt.Errorf("falha na limpeza: %w", err)
	}
	p.observe(StageClean, start)

	start = time.Now()
	countries := deriver.Derive(cleaned.Countries)
	p.observe(StageDerive, start)

	res := &Result{
		Source:     source,
		Schema:     raw.Schema,
		RawRows:    len(raw.Rows),
		Missing:    raw.MissingCounts(),
		Dropped:    cleaned.Dropped,
		Countries:  countries,
		Aggregates: cleaned.Aggregates,
	}

	start = time.Now()
	res.World, res.WorldErr = aggregator.BuildWorldSeries(countries, cleaned.Aggregates)
	res.Snapshot = aggregator.LatestSnapshot(countries)
	res.CorrelationDate, res.Correlation, res.CorrelationErr = aggregator.CorrelationSnapshot(countries)
	p.observe(StageAggregate, start)

	if res.WorldErr != nil {
		p.Log.Warnf("[Pipeline] Série global indisponível: %v", res.WorldErr)
	} else if res.World.Synthesized {
		p.Log.Warnf("[Pipeline] Agregado 'World' não encontrado, série global somada a partir dos países")
	}
	if res.CorrelationErr != nil {
		p.Log.Warnf("[Pipeline] Snapshot de correlação indisponível: %v", res.CorrelationErr)
	}

	if p.Metrics != nil {
		p.Metrics.RowsDropped.Add(float64(res.Dropped))
		p.Metrics.Countries.Set(float64(len(res.Snapshot)))
	}
	p.Log.Infof("[Pipeline] Concluído: %d países, %d pontos na série global, %d descartadas",
		len(res.Snapshot), len(res.World.Points), res.Dropped)
	return res, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	if p.Metrics != nil {
		p.Metrics.ObserveStage(stage, start)
	}
	p.Log.Debugf("[Pipeline] Estágio %s levou %v", stage, time.Since(start))
}
