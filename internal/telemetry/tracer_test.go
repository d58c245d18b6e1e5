package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracer_InstallsGlobalProvider(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		endpoint string
	}{
		{name: "http exporter", protocol: "http/protobuf", endpoint: "http://127.0.0.1:4318"},
		{name: "grpc exporter", protocol: "grpc", endpoint: "http://127.0.0.1:4317"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", tt.protocol)
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.endpoint)

			provider, err := SetupTracer(context.Background(), "form-extractor-test")
			require.NoError(t, err)
			assert.Same(t, provider, otel.GetTracerProvider())

			_, span := otel.Tracer("test").Start(context.Background(), "unit")
			assert.True(t, span.IsRecording())
			assert.True(t, span.SpanContext().IsSampled())

			// No collector listens on the endpoint; only the shutdown path is exercised.
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
}
