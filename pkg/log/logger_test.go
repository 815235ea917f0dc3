package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tumorerrors "github.com/YuminosukeSato/tumoreval/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("hidden")
	logger.Info("shown", VariantKey, "mlp", SamplesKey, 112)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "mlp", lines[0][VariantKey])
	assert.Equal(t, 112.0, lines[0][SamplesKey])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
}

func TestZerologLogger_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := errors.New("boom")
	logger.Error("variant failed", err, VariantKey, "decision_tree")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "decision_tree", lines[0][VariantKey])
	assert.NotEmpty(t, lines[0][StacktraceKey])
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewZerologLogger(&buf, LevelDebug)
	scoped := base.With(ComponentKey, "evaluation", FoldKey, 3)

	scoped.Info("fold scored", AccuracyKey, 0.95)
	base.Info("unscoped")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "evaluation", lines[0][ComponentKey])
	assert.Equal(t, 3.0, lines[0][FoldKey])
	assert.Equal(t, 0.95, lines[0][AccuracyKey])
	assert.NotContains(t, lines[1], ComponentKey)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger_RoutesWarnings(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() {
		SetLogger(prev)
		tumorerrors.SetZerologWarnFunc(nil)
	})

	var buf bytes.Buffer
	require.NoError(t, SetupLogger("warn", &buf, false))

	tumorerrors.Warn(tumorerrors.NewConvergenceWarning("MLPClassifier", 200, "max_iter reached"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	warning, ok := lines[0][WarningKey].(map[string]interface{})
	require.True(t, ok, "warning should be logged as an object")
	assert.Equal(t, "MLPClassifier", warning["algorithm"])

	assert.Error(t, SetupLogger("loud", &buf, false))
}

func TestTestLogger(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)
	logger.Debug("dropped")
	logger.With(VariantKey, "random_forest").Info("trained", AccuracyKey, 0.9)
	logger.Error("failed", errors.New("bad input"))

	assert.NotContains(t, buffer.String(), "dropped")
	assert.True(t, logger.ContainsMessage("trained"))
	assert.True(t, logger.ContainsField(VariantKey, "random_forest"))
	assert.True(t, logger.ContainsField(AccuracyKey, 0.9))
	assert.True(t, logger.ContainsField("error", "bad input"))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logger.Clear()
	assert.Empty(t, buffer.String())
}

func TestTestLoggerProvider(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelError)
	provider.GetLogger().Info("ignored")
	provider.SetLevel(LevelDebug)
	provider.GetLoggerWithName("report").Info("kept")

	tl := provider.GetLogger().(*TestLogger)
	assert.False(t, tl.ContainsMessage("ignored"))
	assert.True(t, tl.ContainsField(ComponentKey, "report"))
}
