package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/neorisk-server/internal/domain"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	logger, _ := test.NewNullLogger()
	before := otel.GetMeterProvider()

	shutdown, err := Init(context.Background(), domain.TelemetryConfig{ServiceName: "neorisk-test"}, logger)
	require.NoError(t, err)

	assert.Equal(t, before, otel.GetMeterProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_WithEndpoint(t *testing.T) {
	logger, hook := test.NewNullLogger()
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	// gRPC dials lazily, so no collector is needed to build the providers
	shutdown, err := Init(context.Background(), domain.TelemetryConfig{
		OTLPEndpoint:   "127.0.0.1:4317",
		ExportInterval: time.Minute,
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.Equal(t, "Telemetry initialized", hook.LastEntry().Message)
	assert.NotEqual(t, prevMP, otel.GetMeterProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
