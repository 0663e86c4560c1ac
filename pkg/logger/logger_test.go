package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/environment"
	"github.com/dmitrymomot/talktime/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Info("hello", slog.String("k", "v"))

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "v", entry["k"])
	})

	t.Run("level by name", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("warn"))
		log.Info("skipped")
		assert.Zero(t, buf.Len())
		log.Warn("kept")
		assert.Equal(t, "kept", decode(t, buf)["msg"])
	})

	t.Run("unknown level name keeps default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithLevelName("loud")).Info("kept")
		assert.Equal(t, "kept", decode(t, buf)["msg"])
	})

	t.Run("context values", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextValue("request_id", key{}),
		)
		ctx := context.WithValue(context.Background(), key{}, "req-1")
		log.With(logger.Component("test")).InfoContext(ctx, "msg")

		entry := decode(t, buf)
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "test", entry["component"])
	})

	t.Run("production environment", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithEnvironment(environment.Production, "talktime"),
			logger.WithOutput(buf),
		)
		log.Debug("skipped")
		log.Info("msg")

		entry := decode(t, buf)
		assert.Equal(t, "talktime", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("development environment", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(
			logger.WithEnvironment(environment.Development, "talktime"),
			logger.WithOutput(buf),
		).Debug("msg")

		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "service=talktime")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.True(t, logger.UserID(uuid.Nil).Equal(slog.Attr{}))
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))

	err := errors.New("boom")
	assert.Equal(t, err, logger.Error(err).Value.Any())

	id := uuid.New()
	assert.Equal(t, id.String(), logger.UserID(id).Value.String())
	assert.Equal(t, "session_id", logger.SessionID(id).Key)
	assert.Equal(t, "practice", logger.Activity("practice").Value.String())
	assert.Equal(t, int64(42), logger.Seconds(42).Value.Int64())
}

func TestNop(t *testing.T) {
	t.Parallel()
	assert.False(t, logger.Nop().Enabled(context.Background(), slog.LevelError))
}
