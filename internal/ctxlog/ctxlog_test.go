package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Stored", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		require.Same(t, logger, FromContext(ctx))
		FromContext(ctx).Info("generated", "output", "demo_gen.go")
		require.Contains(t, buf.String(), "output=demo_gen.go")
	})

	t.Run("Missing", func(t *testing.T) {
		ctx := context.Background()
		logger := FromContext(ctx)
		require.Same(t, Discard, logger)
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelError} {
			require.False(t, logger.Enabled(ctx, level), level.String())
		}
		require.False(t, logger.With("source", "x.tbl").WithGroup("g").Enabled(ctx, slog.LevelError))
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	fileCtx := With(ctx, "source", "demo.tbl")
	FromContext(fileCtx).Info("generated")
	require.Contains(t, buf.String(), "source=demo.tbl")

	buf.Reset()
	FromContext(ctx).Info("generated")
	require.NotContains(t, buf.String(), "source=", "parent context keeps its logger")

	silent := FromContext(With(context.Background(), "source", "x.tbl"))
	require.False(t, silent.Enabled(context.Background(), slog.LevelError), "no stored logger stays silent")
}
