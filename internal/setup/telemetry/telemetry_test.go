package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestCoreForwardsErrors(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	log := zap.New(newCore(zap.InfoLevel, provider)).Named("operator").Named("guildstate").
		With(zap.Uint64("guild_id", 42))

	log.Info("Reconfigured guild")
	log.Error("Operator attention required", zap.Error(errors.New("boom")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "alert.guildstate", spans[0].Name())

	attrs := make(map[attribute.Key]string)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "Operator attention required", attrs["alert.message"])
	assert.Equal(t, "operator.guildstate", attrs["alert.logger"])
	assert.Equal(t, "42", attrs["guild_id"])
	assert.Equal(t, "boom", attrs["error"])
}

func TestManagerGetLoggers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manager := NewManager(dir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 5, MaxLogLines: 100})
	t.Cleanup(manager.Stop)

	mainLogger, operator, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello")
	operator.Warn("attention")
	require.NoError(t, mainLogger.Sync())

	content, err := os.ReadFile(filepath.Join(manager.GetCurrentSessionDir(), "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")
	assert.Contains(t, string(content), manager.GetInstanceID())

	content, err = os.ReadFile(filepath.Join(manager.GetCurrentSessionDir(), "operator.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "attention")
}

func TestManagerInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := NewManager(t.TempDir(), &config.Debug{LogLevel: "loud"})
	t.Cleanup(manager.Stop)

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}

func TestRotateLogSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a", "b", "c", "d"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.Mkdir(path, 0o755))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	manager := NewManager(dir, &config.Debug{MaxLogsToKeep: 3})
	require.NoError(t, manager.rotateLogSessions())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"c", "d"}, names)
}
