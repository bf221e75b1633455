package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactMasksSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("login", "session_token", "abc.def.ghi", "user_id", "u-1")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["session_token"])
	assert.Equal(t, "u-1", fields["user_id"])
}

func TestRedactLeavesOddTrailingValue(t *testing.T) {
	out := redact([]interface{}{"project_id", "p1", "dangling"})
	assert.Equal(t, []interface{}{"project_id", "p1", "dangling"}, out)
}
