package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultDataURL é o CSV público da Our World in Data.
const DefaultDataURL = "https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/owid-covid-data.csv"

// Chaves de configuração (também são os nomes das variáveis de ambiente).
const (
	KeyDataURL        = "DATA_URL"
	KeyHTTPTimeout    = "HTTP_TIMEOUT"
	KeyRedisURL       = "REDIS_URL"
	KeyCacheTTL       = "CACHE_TTL"
	KeyMetricsPort    = "METRICS_PORT"
	KeyPushgatewayURL = "PUSHGATEWAY_URL"
	KeyOpenAIKey      = "OPENAI_API_KEY"
	KeyOpenAIModel    = "OPENAI_MODEL"
	KeyReportPath     = "REPORT_PATH"
	KeyLogLevel       = "LOG_LEVEL"
	KeyTopN           = "TOP_N"
	KeyCountries      = "COUNTRIES"
)

var defaultCountries = []string{"United States", "India", "Brazil", "United Kingdom", "France", "Germany"}

type Config struct {
	DataURL        string
	HTTPTimeout    time.Duration
	RedisURL       string
	CacheTTL       time.Duration
	MetricsPort    string
	PushgatewayURL string
	OpenAIKey      string
	OpenAIModel    string
	ReportPath     string
	LogLevel       string
	TopN           int
	Countries      []string
}

func Load() *Config {
	return LoadWith(viper.New())
}

// LoadWith lê .env e variáveis de ambiente para dentro de v. Flags já ligadas a v
// (BindPFlag) têm precedência sobre o ambiente.
func LoadWith(v *viper.Viper) *Config {
	// Carrega .env da raiz do projeto
	_ = godotenv.Load("../../.env")
	// Se não encontrar, tenta no diretório atual
	_ = godotenv.Load()

	v.SetDefault(KeyDataURL, DefaultDataURL)
	v.SetDefault(KeyHTTPTimeout, 60*time.Second)
	v.SetDefault(KeyCacheTTL, 6*time.Hour)
	v.SetDefault(KeyOpenAIModel, "gpt-4o-mini")
	v.SetDefault(KeyReportPath, "covid_report.html")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyTopN, 10)
	v.SetDefault(KeyCountries, strings.Join(defaultCountries, ","))
	v.AutomaticEnv()

	return &Config{
		DataURL:        strings.TrimSpace(v.GetString(KeyDataURL)),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		RedisURL:       v.GetString(KeyRedisURL),
		CacheTTL:       v.GetDuration(KeyCacheTTL),
		MetricsPort:    v.GetString(KeyMetricsPort),
		PushgatewayURL: v.GetString(KeyPushgatewayURL),
		OpenAIKey:      v.GetString(KeyOpenAIKey),
		OpenAIModel:    v.GetString(KeyOpenAIModel),
		ReportPath:     v.GetString(KeyReportPath),
		LogLevel:       v.GetString(KeyLogLevel),
		TopN:           v.GetInt(KeyTopN),
		Countries:      splitList(v.GetString(KeyCountries)),
	}
}

// Validate rejeita configurações que impediriam a execução.
func (c *Config) Validate() error {
	if c.DataURL == "" {
		return fmt.Errorf("%s não pode ser vazio", KeyDataURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s deve ser positivo, recebido %s", KeyHTTPTimeout, c.HTTPTimeout)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("%s deve ser positivo, recebido %d", KeyTopN, c.TopN)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
