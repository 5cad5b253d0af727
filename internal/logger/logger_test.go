package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want zapcore.Level
	}{
		{name: "调试", in: "debug", want: zapcore.DebugLevel},
		{name: "警告", in: "warn", want: zapcore.WarnLevel},
		{name: "错误", in: "error", want: zapcore.ErrorLevel},
		{name: "未知级别回退到info", in: "verbose", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, Level())

	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestWithModule_Uninitialized(t *testing.T) {
	l := WithModule("reel")
	assert.NotNil(t, l)
}
