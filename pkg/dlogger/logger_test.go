// Copyright © 2018 One Concern

package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, toPin := range []struct {
		level, format string
		enabled       zapcore.Level
		fails         bool
	}{
		{level: LogLevelInfo, format: FormatJSON, enabled: zapcore.InfoLevel},
		{level: LogLevelDebug, format: FormatConsole, enabled: zapcore.DebugLevel},
		{level: "warn", format: "", enabled: zapcore.WarnLevel},
		{level: "chatty", format: FormatJSON, fails: true},
		{level: LogLevelInfo, format: "xml", fails: true},
	} {
		fixture := toPin
		t.Run(fixture.level+"/"+fixture.format, func(t *testing.T) {
			t.Parallel()
			l, err := New(fixture.level, fixture.format)
			if fixture.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(fixture.enabled))
			assert.False(t, l.Core().Enabled(fixture.enabled-1))
		})
	}
}

func TestNone(t *testing.T) {
	l := MustGetLogger(LogLevelNone)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
	assert.Panics(t, func() { _ = MustGetLogger("chatty") })
}
