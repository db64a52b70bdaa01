package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerNotNilBeforeInitialize(t *testing.T) {
	// The package-level logger must be usable before Initialize is called
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		Infow("message before initialize", "key", "value")
	})
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false, VerbosityInfo)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.False(t, JSONOutput)
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true, VerbosityDebug)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.True(t, JSONOutput)
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		want      zapcore.Level
	}{
		{"default is warnings only", VerbosityUser, zapcore.WarnLevel},
		{"-v shows info", VerbosityInfo, zapcore.InfoLevel},
		{"-vv shows debug", VerbosityDebug, zapcore.DebugLevel},
		{"beyond -vv stays at debug", 5, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity))
		})
	}
}
