package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/rbplint/pkg/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want    slog.Level
		wantErr bool
	}{
		"error":   {want: slog.LevelError},
		"WARN":    {want: slog.LevelWarn},
		"warning": {want: slog.LevelWarn},
		"info":    {want: slog.LevelInfo},
		"debug":   {want: slog.LevelDebug},
		"trace":   {wantErr: true},
	}

	for input, tc := range tcs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			got, err := log.GetLevel(input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	got, err := log.GetFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, log.FormatJSON, got)

	_, err = log.GetFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level   string
		format  string
		wantErr bool
	}{
		"json":       {level: "info", format: "json"},
		"logfmt":     {level: "debug", format: "logfmt"},
		"text":       {level: "warn", format: "text"},
		"bad level":  {level: "loud", format: "text", wantErr: true},
		"bad format": {level: "info", format: "xml", wantErr: true},
		"upper case": {level: "INFO", format: "TEXT"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tc.level, tc.format)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				assert.Nil(t, h)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestCreateHandler_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelInfo, log.FormatJSON))
	logger.Debug("hidden")
	logger.Info("linted", slog.String("file", "profiler.yaml"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "linted", entry["msg"])
	assert.Equal(t, "profiler.yaml", entry["file"])
	assert.Contains(t, entry, "source")
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	t.Run("stored logger", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.DiscardHandler)
		ctx := log.WithLogger(context.Background(), logger)

		assert.Same(t, logger, log.WithContext(ctx))
	})

	t.Run("trace id", func(t *testing.T) {
		t.Parallel()

		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() {
			assert.NoError(t, tp.Shutdown(context.Background()))
		})

		ctx, span := tp.Tracer("test").Start(context.Background(), "lint")
		defer span.End()

		logger := log.WithContext(ctx)
		assert.NotSame(t, slog.Default(), logger)
	})

	t.Run("default", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, slog.Default(), log.WithContext(context.Background()))
	})
}
