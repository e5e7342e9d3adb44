package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/methodflow/config"
)

// restoreGlobals 在测试结束时恢复全局 provider
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestInit_Disabled(t *testing.T) {
	restoreGlobals(t)

	p, err := Init(context.Background(), config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_EnabledRegistersGlobals(t *testing.T) {
	restoreGlobals(t)

	cfg := config.DefaultTelemetryConfig()
	cfg.Enabled = true
	cfg.ServiceName = "methodflow-test"
	cfg.SampleRate = 1.0

	p, err := Init(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})

	assert.True(t, p.Enabled())
	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)
}

func TestNewResource_Attributes(t *testing.T) {
	cfg := config.DefaultTelemetryConfig()
	cfg.ServiceName = ""
	cfg.ResourceAttributes = []string{"deployment.environment = staging", "team=registry"}

	res, err := newResource(context.Background(), cfg)
	require.NoError(t, err)

	set := res.Set()
	name, ok := set.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "methodflow", name.AsString())
	env, ok := set.Value(attribute.Key("deployment.environment"))
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())
	team, ok := set.Value(attribute.Key("team"))
	require.True(t, ok)
	assert.Equal(t, "registry", team.AsString())
	_, ok = set.Value(attribute.Key("service.version"))
	assert.True(t, ok)
}

func TestInit_RejectsMalformedAttribute(t *testing.T) {
	restoreGlobals(t)

	cfg := config.DefaultTelemetryConfig()
	cfg.Enabled = true
	cfg.ResourceAttributes = []string{"novalue"}

	_, err := Init(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid resource attribute "novalue"`)
}

func TestProviders_ShutdownNil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enabled())
}

func TestBuildVersion(t *testing.T) {
	// 测试二进制的版本信息是 "(devel)"
	assert.Equal(t, "dev", BuildVersion())
}
