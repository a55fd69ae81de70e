package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exitsurvey/internal/exporter"
	"exitsurvey/internal/report"
	"exitsurvey/internal/shared/testutil"
	"exitsurvey/internal/survey"
)

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, testutil.SurveyExport(t), 0644))
	return path
}

func TestRun_FullReport(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	out := t.TempDir()

	written, err := run(context.Background(), options{in: writeExport(t), out: out}, logger)
	require.NoError(t, err)
	// canonical workbook, one CSV per section, manifest
	assert.Len(t, written, 1+14+1)

	f, err := os.Open(filepath.Join(out, CanonicalFile))
	require.NoError(t, err)
	defer f.Close()
	table, err := survey.ReadCanonical(f)
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())

	data, err := os.ReadFile(filepath.Join(out, exporter.ManifestFile))
	require.NoError(t, err)
	var manifest map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, float64(40), manifest["nps"])

	csvData, err := os.ReadFile(filepath.Join(out, exporter.SectionFile(1, report.SectionIndustry)))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "Технологии")
}

func TestRun_SingleMetric(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	out := t.TempDir()

	written, err := run(context.Background(), options{in: writeExport(t), out: out, metric: report.SectionIndustry}, logger)
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(out, "industry.csv"), written[1])

	data, err := os.ReadFile(written[1])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), "\n")
	assert.Equal(t, "label,count", strings.TrimSpace(lines[0]))
	_, err = os.Stat(filepath.Join(out, exporter.ManifestFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Errors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("unknown metric", func(t *testing.T) {
		_, err := run(context.Background(), options{in: writeExport(t), out: t.TempDir(), metric: "weather"}, logger)
		var unknown *report.UnknownMetricError
		assert.True(t, errors.As(err, &unknown), "got %v", err)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := run(context.Background(), options{in: filepath.Join(t.TempDir(), "nope.xlsx"), out: t.TempDir()}, logger)
		assert.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))
		_, err := run(context.Background(), options{in: path, out: t.TempDir()}, logger)
		var format *survey.UnsupportedFormatError
		assert.True(t, errors.As(err, &format), "got %v", err)
	})

	t.Run("export missing instrument questions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.xlsx")
		data := testutil.ExportWorkbook(t,
			[]string{"Q16  - 🔴 Укажите  фамилию и имя", "Q15 🔴  Укажите ваш  возраст", "Q7.1 М", "Q8.1 К", "Q9.1 Г"},
			[]interface{}{"Иванов", 3, 8, 8, 8})
		require.NoError(t, os.WriteFile(path, data, 0644))
		out := filepath.Join(t.TempDir(), "out")

		written, err := run(context.Background(), options{in: path, out: out}, logger)
		var schema *survey.SchemaError
		require.True(t, errors.As(err, &schema), "got %v", err)
		assert.Contains(t, err.Error(), "validate export.xlsx")
		assert.Empty(t, written)
		assert.NoDirExists(t, out)
	})

	t.Run("bad instrument", func(t *testing.T) {
		_, err := run(context.Background(), options{in: writeExport(t), out: t.TempDir(), instrument: filepath.Join(t.TempDir(), "missing.yaml")}, logger)
		assert.Error(t, err)
	})
}
