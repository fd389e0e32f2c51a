package slack

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// testLogger wraps a zap logger with an observer for testing
type testLogger struct {
	*zap.Logger
	observer *observer.ObservedLogs
}

// newTestLogger creates a logger that captures all log entries for testing
func newTestLogger() *testLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &testLogger{
		Logger:   zap.New(core),
		observer: logs,
	}
}

// HasMessage checks if a specific message was logged at any level
func (tl *testLogger) HasMessage(msg string) bool {
	return tl.observer.FilterMessage(msg).Len() > 0
}

// AllMessages returns all logged messages regardless of level
func (tl *testLogger) AllMessages() []string {
	var messages []string
	for _, entry := range tl.observer.All() {
		messages = append(messages, entry.Message)
	}
	return messages
}

// StringField returns the values of a string field on every entry logged
// with msg, in logging order.
func (tl *testLogger) StringField(msg, key string) []string {
	var values []string
	for _, entry := range tl.observer.FilterMessage(msg).All() {
		if v, ok := entry.ContextMap()[key].(string); ok {
			values = append(values, v)
		}
	}
	return values
}
