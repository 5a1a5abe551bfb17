package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigureRejectsInvalidLevel(t *testing.T) {
	err := Configure("dev", "shouty")
	assert.Error(t, err)
}

func TestConfigureAcceptsValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, Configure("dev", lvl))
	}
	// restore default
	assert.NoError(t, Configure("prod", "info"))
}

func TestSetAndGetLogger(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Equal(t, noop, GetLogger())
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	l := NewNoopLogger()
	assert.NotPanics(t, func() {
		l.Debug(map[string]any{"k": "v"}, "debug")
		l.Info(nil, "info")
		l.Warn(nil, "warn")
		l.Error(map[string]any{"err": "boom"}, "error")
	})
}

func TestGlobalHelpersUseCurrentLogger(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	rec := &recordingLogger{}
	SetLogger(rec)

	Debug(nil, "a")
	Info(nil, "b")
	Warn(nil, "c")
	Error(nil, "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.msgs)
}

type recordingLogger struct {
	msgs []string
}

func (r *recordingLogger) Debug(_ map[string]any, msg string) { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Info(_ map[string]any, msg string)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Warn(_ map[string]any, msg string)  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Error(_ map[string]any, msg string) { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Fatal(_ map[string]any, msg string) { r.msgs = append(r.msgs, msg) }
