package logging

import (
	"bytes"
	"context"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesKeyValueJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONTo(&buf, LevelInfo).Named("admission")

	logger.Debug("hidden")
	logger.Info("slot committed", "competition_id", "autumn-open-2026", "slot", 17, "dangling")
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "slot committed", line["msg"])
	assert.Equal(t, "admission", line["component"])
	assert.Equal(t, "autumn-open-2026", line["competition_id"])
	assert.EqualValues(t, 17, line["slot"])
	assert.Contains(t, line, "dangling")
}

func TestSetMirror_ReceivesEnabledRecords(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, level.String()+":"+msg)
	})
	defer SetMirror(nil)

	logger := NewJSONTo(&bytes.Buffer{}, LevelWarn)
	logger.Info("below threshold")
	logger.WarnContext(context.Background(), "retrying", "attempt", 2)

	assert.Equal(t, []string{"warn:retrying"}, got)
}

func TestNilLogger_FallsBackToDefault(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("no logger")
		logger.Named("x").Warn("still fine")
	})
}
