package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/rbplint/pkg/telemetry"
)

//nolint:paralleltest // Modifies the global tracer provider.
func TestSetup(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tcs := map[string]struct {
		endpoint string
		opts     []telemetry.Opt
		sdk      bool
	}{
		"disabled":  {endpoint: ""},
		"host port": {endpoint: "localhost:4317", opts: []telemetry.Opt{telemetry.WithInsecure(true)}, sdk: true},
		"url":       {endpoint: "http://localhost:4317", sdk: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			otel.SetTracerProvider(prev)

			shutdown, err := telemetry.Setup(t.Context(), tc.endpoint, tc.opts...)
			require.NoError(t, err)
			require.NotNil(t, shutdown)

			_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
			assert.Equal(t, tc.sdk, isSDK)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			assert.NoError(t, shutdown(ctx))
		})
	}
}
