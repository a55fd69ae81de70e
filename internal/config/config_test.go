package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Survey.SessionTTL)
	assert.Equal(t, int64(32<<20), cfg.Survey.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "exitsurvey", cfg.Telemetry.ServiceName)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  host: 127.0.0.1
survey:
  session_ttl: 30m
  instrument_file: file.yaml
logging:
  level: DEBUG
`), 0o644))

	t.Setenv("SURVEY_SURVEY_INSTRUMENT_FILE", "env.yaml")
	t.Setenv("SURVEY_SECURITY_RATE_LIMIT_RPS", "5")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Survey.SessionTTL)
	assert.Equal(t, "env.yaml", cfg.Survey.InstrumentFile)
	assert.Equal(t, 5.0, cfg.Security.RateLimit.RPS)
	assert.Equal(t, 40, cfg.Security.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched by file and env
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SURVEY_SERVER_PORT": "70000"}},
		{"bad log level", map[string]string{"SURVEY_LOGGING_LEVEL": "loud"}},
		{"zero ttl", map[string]string{"SURVEY_SURVEY_SESSION_TTL": "0s"}},
		{"unparsable duration", map[string]string{"SURVEY_SERVER_READ_TIMEOUT": "soon"}},
		{"zero burst", map[string]string{"SURVEY_SECURITY_RATE_LIMIT_BURST": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom("")
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ConfigEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	t.Setenv("SURVEY_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate_FillsDerivedDefaults(t *testing.T) {
	cfg := Default()
	cfg.Survey.SweepInterval = 0
	cfg.Telemetry.ServiceName = ""
	require.NoError(t, cfg.validate())
	assert.Equal(t, 30*time.Minute, cfg.Survey.SweepInterval)
	assert.Equal(t, "exitsurvey", cfg.Telemetry.ServiceName)
}

func TestValidate_ClampsSweepInterval(t *testing.T) {
	tests := []struct {
		name     string
		ttl      time.Duration
		interval time.Duration
		want     time.Duration
	}{
		{"derived from tiny ttl", 3 * time.Nanosecond, 0, MinSweepInterval},
		{"explicit below minimum", time.Hour, time.Millisecond, MinSweepInterval},
		{"explicit above minimum", time.Hour, 5 * time.Minute, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Survey.SessionTTL = tt.ttl
			cfg.Survey.SweepInterval = tt.interval
			require.NoError(t, cfg.validate())
			assert.Equal(t, tt.want, cfg.Survey.SweepInterval)
		})
	}
}
