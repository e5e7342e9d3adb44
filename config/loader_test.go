// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Model.BaseURL)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, 2000, cfg.Model.MaxTokens)

	assert.Equal(t, 30*time.Second, cfg.Executor.DefaultTimeout)
	assert.Equal(t, "memory", cfg.Tasks.Store)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_port: 8888
  cors_allowed_origins: ["http://localhost:3000"]
database:
  driver: sqlite
  name: /tmp/methods.db
model:
  name: llama3
  temperature: 0.2
  timeout: 90s
tasks:
  store: redis
  ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/methods.db", cfg.Database.DSN())
	assert.Equal(t, "llama3", cfg.Model.Name)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "redis", cfg.Tasks.Store)
	assert.Equal(t, time.Hour, cfg.Tasks.TTL)

	// 未出现在文件里的字段保留默认值
	assert.Equal(t, 2000, cfg.Model.MaxTokens)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 8888\n"), 0o644))

	t.Setenv("METHODFLOW_SERVER_HTTP_PORT", "7070")
	t.Setenv("METHODFLOW_MODEL_BASE_URL", "http://ollama:11434")
	t.Setenv("METHODFLOW_MODEL_TEMPERATURE", "0.3")
	t.Setenv("METHODFLOW_EXECUTOR_DEFAULT_TIMEOUT", "5s")
	t.Setenv("METHODFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/methodflow.log")
	t.Setenv("METHODFLOW_TELEMETRY_ENABLED", "true")
	t.Setenv("METHODFLOW_TELEMETRY_RESOURCE_ATTRIBUTES", "deployment.environment=staging")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "http://ollama:11434", cfg.Model.BaseURL)
	assert.Equal(t, 0.3, cfg.Model.Temperature)
	assert.Equal(t, 5*time.Second, cfg.Executor.DefaultTimeout)
	assert.Equal(t, []string{"stdout", "/var/log/methodflow.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"deployment.environment=staging"}, cfg.Telemetry.ResourceAttributes)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MF_DATABASE_DRIVER", "mysql")

	cfg, err := NewLoader().WithEnvPrefix("MF").Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("METHODFLOW_SERVER_HTTP_PORT", "eighty")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METHODFLOW_SERVER_HTTP_PORT")
}

func TestLoader_Validator(t *testing.T) {
	t.Setenv("METHODFLOW_TASKS_STORE", "mongo")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported task store "mongo"`)
}

// --- 校验测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }, "invalid HTTP port"},
		{"port clash", func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, "metrics port must differ"},
		{"driver", func(c *Config) { c.Database.Driver = "oracle" }, `unsupported database driver "oracle"`},
		{"provider", func(c *Config) { c.Model.Provider = "openai" }, `unsupported model provider "openai"`},
		{"temperature", func(c *Config) { c.Model.Temperature = 3 }, "temperature must be between 0 and 2"},
		{"max tokens", func(c *Config) { c.Model.MaxTokens = 0 }, "max_tokens must be positive"},
		{"executor timeout", func(c *Config) { c.Executor.DefaultTimeout = 0 }, "default_timeout must be positive"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, `invalid log level "loud"`},
		{"telemetry endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.OTLPEndpoint = ""
		}, "otlp_endpoint is required"},
		{"telemetry attribute", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.ResourceAttributes = []string{"=prod"}
		}, `invalid telemetry resource attribute "=prod"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Model.Name = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "model name is required")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DefaultDatabaseConfig()
	d.Password = "secret"
	assert.Equal(t, "host=localhost port=5432 user=methodflow password=secret dbname=methodflow sslmode=disable", d.DSN())

	d.Driver = "mysql"
	d.Port = 3306
	assert.Equal(t, "methodflow:secret@tcp(localhost:3306)/methodflow?parseTime=true", d.DSN())

	d.Driver = "unknown"
	assert.Empty(t, d.DSN())
}

func TestMustLoad_PanicsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	assert.Panics(t, func() { MustLoad(path) })
}
