package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type tagged struct {
	Department string `validate:"department"`
	Decision   string `validate:"omitempty,decision"`
	Answer     string `validate:"omitempty,answer"`
	Risk       string `validate:"omitempty,risklevel"`
}

func TestRegisterValidations(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		in      tagged
		wantErr bool
	}{
		{"valid", tagged{Department: "ACCOUNTS", Decision: "APPROVED", Answer: "NO", Risk: "HIGH"}, false},
		{"unknown department", tagged{Department: "QUALITY"}, true},
		{"lowercase department", tagged{Department: "accounts"}, true},
		{"bad decision", tagged{Department: "ADMIN", Decision: "MAYBE"}, true},
		{"bad answer", tagged{Department: "ADMIN", Answer: "Y"}, true},
		{"bad risk", tagged{Department: "ADMIN", Risk: "EXTREME"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Station 4 jig", SanitizeString("Station\x00 4 jig\x7f"))
	assert.Equal(t, "plain", SanitizeString("plain"))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(85000))
	assert.Error(t, ValidateAmount(-1))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewKVLogger(zap.New(core))

	l.Info("Submission accepted", "request_code", "KZ-2025-004", "new_state", "PENDING_GM")
	l.Error("Submission refused", "error", "stale")

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "Submission accepted", first.Message)
	assert.Equal(t, "KZ-2025-004", first.ContextMap()["request_code"])
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := t.TempDir() + "/logs/server.log"
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}
