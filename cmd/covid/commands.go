package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"covidprj/internal/config"
	"covidprj/internal/loader"
	"covidprj/internal/logging"
	"covidprj/internal/observability"
	"covidprj/internal/pipeline"
	"covidprj/internal/report"
)

const pushJob = "covid"

// flag -> chave de configuração; ligadas no viper do comando em execução
var flagKeys = map[string]string{
	"url":       config.KeyDataURL,
	"log-level": config.KeyLogLevel,
	"report":    config.KeyReportPath,
	"countries": config.KeyCountries,
	"top":       config.KeyTopN,
}

type app struct {
	v     *viper.Viper
	cfg   *config.Config
	log   *zap.SugaredLogger
	runID string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "covid",
		Short: "Pipeline de análise do dataset COVID-19 da Our World in Data",
		Long: `Baixa o CSV da OWID, limpa, deriva taxas, monta a série global e
gera um relatório HTML com os gráficos e um resumo no console.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("url", config.DefaultDataURL, "URL (ou caminho local) do CSV")
	pf.String("log-level", "info", "Nível de log: debug, info, warn, error")

	root.AddCommand(a.runCmd(), a.snapshotCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	a.cfg = config.LoadWith(a.v)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}

	a.runID = uuid.New().String()
	log, err := logging.New(a.cfg.LogLevel, a.runID)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) runCmd() *cobra.Command {
	var narrate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Executa o pipeline completo e gera o relatório",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, narrate)
		},
	}
	f := cmd.Flags()
	f.String("report", "covid_report.html", "Arquivo HTML de saída")
	f.String("countries", "", "Países comparados, separados por vírgula")
	f.Int("top", 10, "Quantidade de países nos rankings")
	f.BoolVar(&narrate, "narrate", false, "Gera o comentário final com a OpenAI (requer OPENAI_API_KEY)")
	return cmd
}

func (a *app) snapshotCmd() *cobra.Command {
	var metricName string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Imprime o ranking dos países pelo dado mais recente de uma métrica",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.snapshot(cmd, metricName)
		},
	}
	f := cmd.Flags()
	f.StringVar(&metricName, "metric", string(report.RankMetrics[0]), "Métrica do ranking")
	f.Int("top", 10, "Quantidade de países")
	return cmd
}

func (a *app) run(cmd *cobra.Command, narrate bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	metrics := observability.NewMetrics()
	if a.cfg.MetricsPort != "" {
		srv := metrics.Start(a.cfg.MetricsPort, a.log)
		a.log.Infof("[Metrics] Expondo /metrics na porta %s", a.cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	res, err := a.pipeline(ctx, metrics)
	if err != nil {
		return err
	}

	report.PrintOverview(out, res)

	skipped, err := report.WriteFile(a.cfg.ReportPath, res, report.Options{
		TopN:      a.cfg.TopN,
		Countries: a.cfg.Countries,
	})
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(out, "Gráficos ignorados (%s)\n", s)
	}
	fmt.Fprintf(out, "Relatório salvo em %s\n\n", a.cfg.ReportPath)

	var narrator *report.Narrator
	if narrate {
		if a.cfg.OpenAIKey == "" {
			a.log.Warnf("[LLM] --narrate ignorado: %s não configurada", config.KeyOpenAIKey)
		} else {
			narrator = report.NewNarrator(a.cfg.OpenAIKey, a.cfg.OpenAIModel, a.log)
		}
	}
	fmt.Fprintln(out, report.Commentary(ctx, narrator, res, a.cfg.TopN))

	a.push(ctx, metrics)
	return nil
}

func (a *app) snapshot(cmd *cobra.Command, metricName string) error {
	metric, err := report.ParseMetric(metricName)
	if err != nil {
		return err
	}

	res, err := a.pipeline(cmd.Context(), nil)
	if err != nil {
		return err
	}
	if len(res.Snapshot) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nenhum país no dataset.")
		return nil
	}
	report.PrintRanking(cmd.OutOrStdout(), report.TopN(res.Snapshot, metric, a.cfg.TopN), metric)
	return nil
}

// pipeline monta o loader (com cache Redis quando configurado) e executa os estágios.
func (a *app) pipeline(ctx context.Context, metrics *observability.Metrics) (*pipeline.Result, error) {
	l := loader.New(a.cfg.HTTPTimeout, a.log)
	l.Metrics = metrics
	l.CacheTTL = a.cfg.CacheTTL

	if a.cfg.RedisURL != "" {
		cache, err := loader.NewRedisCache(a.cfg.RedisURL)
		if err != nil {
			a.log.Warnf("[Loader] Cache desativado: %v", err)
		} else {
			defer cache.Close()
			l.Cache = cache
		}
	}

	a.log.Infof("[Pipeline] Iniciando run %s", a.runID)
	return pipeline.New(l, metrics, a.log).Run(ctx, a.cfg.DataURL)
}

func (a *app) push(ctx context.Context, metrics *observability.Metrics) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, a.cfg.PushgatewayURL, pushJob); err != nil {
		a.log.Warnf("[Metrics] Falha ao enviar métricas ao Pushgateway: %v", err)
		return
	}
	a.log.Infof("[Metrics] Métricas enviadas para %s", a.cfg.PushgatewayURL)
}
