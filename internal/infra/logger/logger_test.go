package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "invalid level")
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		min  zapcore.Level
	}{
		{"production default", Config{}, zapcore.InfoLevel},
		{"development default", Config{Development: true}, zapcore.DebugLevel},
		{"explicit upper case", Config{Level: "WARN"}, zapcore.WarnLevel},
		{"explicit overrides development", Config{Development: true, Level: "error"}, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.min))
			if tt.min > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.min-1))
			}
		})
	}
}

func TestServiceFields(t *testing.T) {
	assert.Empty(t, serviceFields(Config{}))
	assert.Len(t, serviceFields(Config{Service: "URL Shortener", Version: "1.0.0"}), 2)
}

func TestMustInit_InstallsLogger(t *testing.T) {
	l := MustInit(Config{Development: true})
	assert.Same(t, l, L())
	assert.NoError(t, Sync())
}

func TestMustInit_PanicsOnBadLevel(t *testing.T) {
	assert.Panics(t, func() { MustInit(Config{Level: "loud"}) })
}
