package telemetry_test

import (
	"testing"

	"github.com/jerseyshop/storefront-api/internal/config"
	"github.com/jerseyshop/storefront-api/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer(t *testing.T) {
	t.Run("Disabled keeps the no-op provider", func(t *testing.T) {
		shutdown, err := telemetry.InitTracer(t.Context(), config.OtelConfig{Enabled: false}, "test")

		require.NoError(t, err)
		assert.NoError(t, shutdown(t.Context()))

		_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.False(t, isSDK)
	})

	t.Run("Enabled installs the SDK provider", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		shutdown, err := telemetry.InitTracer(t.Context(), config.OtelConfig{
			Enabled:          true,
			ServiceName:      "storefront-api",
			ExporterEndpoint: "127.0.0.1:1",
			SamplerRatio:     1,
		}, "test")
		require.NoError(t, err)

		_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, isSDK)

		// nothing was exported, so shutdown has nothing to flush
		_ = shutdown(t.Context())
	})
}
