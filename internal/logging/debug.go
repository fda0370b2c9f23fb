// Package logging provides topic-scoped debug logging on top of log/slog.
// Topics are opt-in via the DEBUG_TOPICS env var so a noisy subsystem (the
// per-bar engine loop, indicator updates) can be inspected in isolation:
//
//	DEBUG_TOPICS=engine,risk ./tradesim
//	DEBUG_TOPICS=all ./tradesim
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger gates slog output behind a per-topic switch. The disabled path is a
// single bool check so hot loops can log freely.
type Logger struct {
	topic   string
	enabled bool
}

var enabledTopics map[string]bool

func init() {
	raw := os.Getenv("DEBUG_TOPICS")
	if raw == "" {
		return
	}

	enabledTopics = make(map[string]bool)
	for _, topic := range strings.Split(raw, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			enabledTopics[topic] = true
		}
	}

	if len(enabledTopics) > 0 {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(handler))
	}
}

// New returns a logger for the given topic, enabled when the topic (or
// "all") appears in DEBUG_TOPICS.
func New(topic string) *Logger {
	return &Logger{
		topic:   topic,
		enabled: enabledTopics["all"] || enabledTopics[topic],
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	if !l.enabled {
		return
	}
	slog.Debug(msg, append([]any{"topic", l.topic}, args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	if !l.enabled {
		return
	}
	slog.Info(msg, append([]any{"topic", l.topic}, args...)...)
}

// Warn always emits; a degraded-mode warning should not depend on debug
// topics being enabled.
func (l *Logger) Warn(msg string, args ...any) {
	slog.Warn(msg, append([]any{"topic", l.topic}, args...)...)
}

func (l *Logger) Enabled() bool {
	return l.enabled
}
