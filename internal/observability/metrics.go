package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Resultados de consulta ao cache, label "result" de DatasetCache.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type Metrics struct {
	Registry      *prometheus.Registry
	RowsLoaded    prometheus.Counter
	RowsDropped   prometheus.Counter
	Countries     prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	DatasetCache  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "covid_rows_loaded_total",
				Help: "Linhas lidas do CSV de origem",
			},
		),
		RowsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "covid_rows_dropped_total",
				Help: "Linhas descartadas por data ou métrica ilegível",
			},
		),
		Countries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "covid_countries",
				Help: "Países distintos após a limpeza",
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "covid_stage_duration_seconds",
				Help:    "Duração de cada estágio do pipeline",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		DatasetCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "covid_dataset_cache_total",
				Help: "Consultas ao cache do dataset por resultado",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(m.RowsLoaded, m.RowsDropped, m.Countries, m.StageDuration, m.DatasetCache)
	return m
}

// ObserveStage registra a duração de um estágio iniciado em start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) CacheResult(result string) {
	m.DatasetCache.WithLabelValues(result).Inc()
}

// Start expõe /metrics na porta informada enquanto o processo roda.
// Falhas do listener (porta ocupada, por exemplo) são logadas; o run segue sem /metrics.
func (m *Metrics) Start(port string, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("[Metrics] Falha ao expor /metrics na porta %s: %v", port, err)
		}
	}()
	return srv
}

// Push envia o estado final do registry para um Pushgateway.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.Registry).PushContext(ctx)
}
