package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"covidprj/internal/model"
	"covidprj/internal/observability"
)

const userAgent = "covidprj/1.0"

// Loader baixa o dataset e devolve a tabela bruta. Qualquer falha aqui aborta o run.
type Loader struct {
	Client   *http.Client
	Cache    Cache // opcional
	CacheTTL time.Duration
	Metrics  *observability.Metrics // opcional
	Log      *zap.SugaredLogger
}

func New(timeout time.Duration, log *zap.SugaredLogger) *Loader {
	return &Loader{
		Client: &http.Client{Timeout: timeout},
		Log:    log,
	}
}

// Load lê a origem (URL http(s), URL file:// ou caminho local) e decodifica o CSV.
// Falhas embrulham model.ErrDataUnavailable ou model.ErrSchemaMismatch.
// Só corpos que decodificam sem erro vão para o cache.
func (l *Loader) Load(ctx context.Context, source string) (*RawTable, error) {
	if path, ok := localPath(source); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
		}
		return l.decode(body)
	}

	key := CacheKey(source)
	if body, ok := l.cached(ctx, key); ok {
		table, err := l.decode(body)
		if err == nil {
			return table, nil
		}
		l.Log.Warnf("[Loader] Dataset em cache inválido, descartando e baixando de novo: %v", err)
		if err := l.Cache.Delete(ctx, key); err != nil {
			l.Log.Warnf("[Loader] Não foi possível remover o dataset do cache: %v", err)
		}
	}

	body, err := l.download(ctx, source)
	if err != nil {
		return nil, err
	}
	table, err := l.decode(body)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		if err := l.Cache.Set(ctx, key, body, l.CacheTTL); err != nil {
			l.Log.Warnf("[Loader] Não foi possível salvar o dataset no cache: %v", err)
		}
	}
	return table, nil
}

func (l *Loader) decode(body []byte) (*RawTable, error) {
	table, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if l.Metrics != nil {
		l.Metrics.RowsLoaded.Add(float64(len(table.Rows)))
	}
	l.Log.Infof("[Loader] %d linhas lidas (%d bytes)", len(table.Rows), len(body))
	return table, nil
}

// cached consulta o cache; erros do cache viram miss e o download segue.
func (l *Loader) cached(ctx context.Context, key string) ([]byte, bool) {
	if l.Cache == nil {
		return nil, false
	}
	body, err := l.Cache.Get(ctx, key)
	switch {
	case err == nil:
		l.cacheResult(observability.CacheHit)
		l.Log.Infof("[Loader] Dataset servido do cache (%s)", key)
		return body, true
	case errors.Is(err, ErrCacheMiss):
		l.cacheResult(observability.CacheMiss)
	default:
		l.cacheResult(observability.CacheError)
		l.Log.Warnf("[Loader] Erro ao consultar cache, seguindo com download: %v", err)
	}
	return nil, false
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request for %s: %w", model.ErrDataUnavailable, url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv")

	l.Log.Infof("[Loader] Baixando dataset de %s", url)
	start := time.Now()

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %w", model.ErrDataUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", model.ErrDataUnavailable, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", model.ErrDataUnavailable, err)
	}

	l.Log.Debugf("[Loader] Download concluído em %v", time.Since(start))
	return body, nil
}

func (l *Loader) cacheResult(result string) {
	if l.Metrics != nil {
		l.Metrics.CacheResult(result)
	}
}

func localPath(source string) (string, bool) {
	if strings.HasPrefix(source, "file://") {
		return strings.TrimPrefix(source, "file://"), true
	}
	if !strings.Contains(source, "://") {
		return source, true
	}
	return "", false
}
