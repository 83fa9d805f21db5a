package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `iso_code,continent,location,date,total_cases,new_cases,new_cases_smoothed,total_deaths,new_deaths,new_deaths_smoothed,people_vaccinated,people_fully_vaccinated,stringency_index,population,median_age
BRA,South America,Brazil,2022-01-01,1000,10,9,50,1,1,500,400,40,2000,33
BRA,South America,Brazil,2022-01-02,1010,10,10,51,1,1,510,410,40,2000,33
FRA,Europe,France,2022-01-02,800,8,8,90,2,2,700,650,60,1000,42
CHL,South America,Chile,2022-01-02,300,3,3,9,0,0,250,240,,500,35
OWID_WRL,,World,2022-01-02,2110,21,20,150,3,3,,,,3500,
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "owid.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REDIS_URL", "")
	t.Setenv("METRICS_PORT", "")
	t.Setenv("PUSHGATEWAY_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSnapshotCommand(t *testing.T) {
	out, err := execute(t, "snapshot", "--url", writeFixture(t), "--metric", "total_deaths", "--top", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "France")
	assert.Contains(t, out, "Brazil")
	assert.NotContains(t, out, "Chile")
	assert.NotContains(t, out, "World")
}

func TestSnapshotCommand_UnknownMetric(t *testing.T) {
	_, err := execute(t, "snapshot", "--url", writeFixture(t), "--metric", "nope")

	assert.ErrorContains(t, err, "métrica desconhecida")
}

func TestRunCommand(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.html")

	out, err := execute(t, "run", "--url", writeFixture(t), "--report", reportPath, "--countries", "Brazil,France", "--top", "3")

	require.NoError(t, err)
	assert.Contains(t, out, "Linhas lidas: 5")
	assert.Contains(t, out, "Relatório salvo em "+reportPath)
	assert.Contains(t, out, "Resumo do projeto")
	assert.FileExists(t, reportPath)
}

func TestRunCommand_MissingSourceFails(t *testing.T) {
	_, err := execute(t, "run", "--url", filepath.Join(t.TempDir(), "missing.csv"), "--report", filepath.Join(t.TempDir(), "r.html"))

	assert.ErrorContains(t, err, "data unavailable")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "snapshot", "--url", writeFixture(t), "--top", "0")

	assert.ErrorContains(t, err, "configuração inválida")
}
