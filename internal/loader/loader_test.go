package loader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"covidprj/internal/logging"
	"covidprj/internal/model"
	"covidprj/internal/observability"
)

const testURL = "https://example.org/owid-covid-data.csv"

const sampleCSV = `iso_code,continent,location,date,total_cases,new_cases,new_cases_smoothed,total_deaths,new_deaths,new_deaths_smoothed,total_vaccinations,people_vaccinated,people_fully_vaccinated,stringency_index,population,median_age
CHL,South America,Chile,2021-01-01,100,10,9.5,2,1,0.5,,,,70.5,19116209,35.4
CHL,South America,Chile,2021-01-02,,,,,,,,,,70.5,19116209,35.4
OWID_WRL,,World,2021-01-01,1000,50,48,20,2,1.5,5000,4000,3000,,7800000000,
`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newTestLoader() *Loader {
	return New(5*time.Second, logging.Nop())
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	err     error
	deleted []string
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func TestLoad_Success(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, sampleCSV))

	l := newTestLoader()
	l.Metrics = observability.NewMetrics()

	table, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Chile", table.Get(table.Rows[0], model.ColLocation))
	assert.Equal(t, "2021-01-01", table.Get(table.Rows[0], model.ColDate))
	assert.Equal(t, "100", table.Get(table.Rows[0], model.ColTotalCases))
	assert.Empty(t, table.Get(table.Rows[1], model.ColTotalCases))
	assert.Empty(t, table.Get(table.Rows[2], model.ColContinent))
	assert.True(t, table.Schema.Has(model.ColNewCasesSmoothed))
	assert.True(t, table.Schema.Has(model.ColMedianAge))
	assert.InDelta(t, 3, testutil.ToFloat64(l.Metrics.RowsLoaded), 0)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLoad_HTTPError(t *testing.T) {
	setupHTTPMock(t)

	tests := []struct {
		name       string
		statusCode int
	}{
		{"not_found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
		{"internal_server_error", http.StatusInternalServerError},
		{"service_unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(tt.statusCode, "nope"))

			table, err := newTestLoader().Load(context.Background(), testURL)

			require.Error(t, err)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, model.ErrDataUnavailable)
		})
	}
}

func TestLoad_TransportError(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := newTestLoader().Load(context.Background(), testURL)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLoad_MalformedCSV(t *testing.T) {
	setupHTTPMock(t)
	body := "iso_code,continent,location,date,total_cases,new_cases,total_deaths,new_deaths,population\n" +
		"CHL,South America,Chile,2021-01-01,\"100,10,2,1,19116209\n"
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, body))

	_, err := newTestLoader().Load(context.Background(), testURL)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestLoad_EmptyBody(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, ""))

	_, err := newTestLoader().Load(context.Background(), testURL)

	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestLoad_SchemaMismatch(t *testing.T) {
	setupHTTPMock(t)
	body := "iso_code,location,date,new_cases\nCHL,Chile,2021-01-01,10\n"
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, body))

	_, err := newTestLoader().Load(context.Background(), testURL)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSchemaMismatch)
	assert.NotErrorIs(t, err, model.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "continent")
	assert.Contains(t, err.Error(), "population")
}

func TestLoad_CacheHitSkipsDownload(t *testing.T) {
	setupHTTPMock(t)

	cache := &memCache{data: map[string][]byte{CacheKey(testURL): []byte(sampleCSV)}}
	l := newTestLoader()
	l.Cache = cache
	l.Metrics = observability.NewMetrics()

	table, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
	assert.InDelta(t, 1, testutil.ToFloat64(l.Metrics.DatasetCache.WithLabelValues(observability.CacheHit)), 0)
}

func TestLoad_CacheMissStoresBody(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, sampleCSV))

	cache := &memCache{}
	l := newTestLoader()
	l.Cache = cache

	_, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(cache.data[CacheKey(testURL)]))
}

func TestLoad_InvalidBodyIsNotCached(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, "<html>rate limited</html>"))

	cache := &memCache{}
	l := newTestLoader()
	l.Cache = cache

	_, err := l.Load(context.Background(), testURL)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSchemaMismatch)
	assert.NotContains(t, cache.data, CacheKey(testURL))

	// a origem volta ao normal: o próximo run baixa de novo e então guarda
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, sampleCSV))

	table, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
	assert.Equal(t, sampleCSV, string(cache.data[CacheKey(testURL)]))
}

func TestLoad_InvalidCachedBodyIsEvicted(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, sampleCSV))

	key := CacheKey(testURL)
	cache := &memCache{data: map[string][]byte{key: []byte("<html>rate limited</html>")}}
	l := newTestLoader()
	l.Cache = cache
	l.Metrics = observability.NewMetrics()

	table, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, []string{key}, cache.deleted)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, sampleCSV, string(cache.data[key]))
	assert.InDelta(t, 3, testutil.ToFloat64(l.Metrics.RowsLoaded), 0)
}

func TestLoad_CacheErrorFallsBackToDownload(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", testURL, httpmock.NewStringResponder(http.StatusOK, sampleCSV))

	l := newTestLoader()
	l.Cache = &memCache{err: errors.New("redis down")}

	table, err := l.Load(context.Background(), testURL)

	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLoad_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owid.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	for _, source := range []string{path, "file://" + path} {
		table, err := newTestLoader().Load(context.Background(), source)
		require.NoError(t, err, source)
		assert.Len(t, table.Rows, 3)
	}
}

func TestLoad_MissingLocalFile(t *testing.T) {
	_, err := newTestLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestValidateHeader_OptionalColumnsAbsent(t *testing.T) {
	header := []string{"\ufeffiso_code", "continent", "location", "date", "total_cases", "new_cases", "total_deaths", "new_deaths", "population"}

	schema, positions, err := ValidateHeader(header)

	require.NoError(t, err)
	assert.True(t, schema.Has(model.ColISOCode))
	assert.False(t, schema.Has(model.ColNewCasesSmoothed))
	assert.False(t, schema.Has(model.ColStringencyIndex))
	require.Len(t, positions, len(ConsumedColumns))
	assert.Equal(t, 0, positions[consumedIndex[model.ColISOCode]])
	assert.Equal(t, -1, positions[consumedIndex[model.ColMedianAge]])
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey(testURL), CacheKey(testURL))
	assert.NotEqual(t, CacheKey(testURL), CacheKey(testURL+"?v=2"))
	assert.Contains(t, CacheKey(testURL), "covid:dataset:")
}

func TestRawTable_MissingCounts(t *testing.T) {
	raw, err := Decode(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	counts := raw.MissingCounts()

	assert.Equal(t, 1, counts[model.ColTotalCases])
	assert.Equal(t, 1, counts[model.ColContinent])
	assert.Equal(t, 2, counts[model.ColTotalVaccinations])
	assert.Equal(t, 0, counts[model.ColLocation])
	assert.Equal(t, 1, counts[model.ColMedianAge])
}

func TestNewRedisCache(t *testing.T) {
	cache, err := NewRedisCache("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	opts := cache.Client.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	require.NoError(t, cache.Close())

	cache, err = NewRedisCache("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cache.Client.Options().Addr)
	require.NoError(t, cache.Close())

	_, err = NewRedisCache("ftp://localhost")
	assert.Error(t, err)
}
