// Package tracelog records a run's structured execution trace: one ordered,
// append-only sequence of events written incrementally as a JSON array, with
// wall-clock durations paired between start and completion events.
package tracelog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adlens/models"
)

// Logger accumulates LogEvents for a single run. It is owned by one
// orchestrator instance and must not be driven by concurrent callers.
type Logger struct {
	sessionID string
	filePath  string
	events    []models.LogEvent
	starts    map[string]time.Time
	now       func() time.Time
	console   bool
}

// New creates a trace logger writing to logsDir. An empty logsDir disables
// file output (used by tests).
func New(logsDir string) (*Logger, error) {
	l := &Logger{
		starts:  make(map[string]time.Time),
		now:     time.Now,
		console: true,
	}
	l.sessionID = l.now().Format("20060102_150405")

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		l.filePath = filepath.Join(logsDir, fmt.Sprintf("execution_%s.json", l.sessionID))
	}
	return l, nil
}

// WithClock replaces the time source. Used by tests for deterministic
// timestamps and durations.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

// Quiet disables console echo of trace events.
func (l *Logger) Quiet() *Logger {
	l.console = false
	return l
}

// SessionID returns the run's session identifier.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// FilePath returns the trace file path, or "" when file output is disabled.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Log records an INFO event.
func (l *Logger) Log(agent, event string, data map[string]any) {
	l.log(agent, event, "INFO", data, nil)
}

// LogWarning records a WARNING event with a message.
func (l *Logger) LogWarning(agent, message string, data map[string]any) {
	merged := map[string]any{"message": message}
	for k, v := range data {
		merged[k] = v
	}
	l.log(agent, "warning", "WARNING", merged, nil)
}

// LogError records an ERROR event with full error context.
func (l *Logger) LogError(agent string, err error, context map[string]any) {
	l.log(agent, "error", "ERROR", context, err)
}

// LogDecision records a decision event carrying its reasoning, inputs and
// outputs so a reader can audit why the pipeline took a turn.
func (l *Logger) LogDecision(agent, decision, reasoning string, inputs, outputs map[string]any) {
	data := map[string]any{
		"decision":  decision,
		"reasoning": reasoning,
	}
	if len(inputs) > 0 {
		data["inputs"] = inputs
	}
	if len(outputs) > 0 {
		data["outputs"] = outputs
	}
	l.log(agent, "decision", "INFO", data, nil)
}

// Events returns the recorded event sequence.
func (l *Logger) Events() []models.LogEvent {
	return l.events
}

func (l *Logger) log(agent, event, level string, data map[string]any, cause error) {
	now := l.now()
	if data == nil {
		data = map[string]any{}
	}

	entry := models.LogEvent{
		Timestamp: now.Format(time.RFC3339Nano),
		SessionID: l.sessionID,
		Agent:     agent,
		Event:     event,
		Level:     level,
		Data:      data,
	}

	// Pair start/complete events by normalized name to compute durations.
	key := agent + ":" + normalizeEvent(event)
	switch {
	case strings.HasSuffix(event, "start"):
		l.starts[key] = now
	case strings.HasSuffix(event, "complete"):
		if started, ok := l.starts[key]; ok {
			ms := float64(now.Sub(started).Microseconds()) / 1000.0
			entry.DurationMS = &ms
			delete(l.starts, key)
		}
	}

	if cause != nil {
		entry.Error = &models.ErrorDetail{
			Type:    fmt.Sprintf("%T", cause),
			Message: cause.Error(),
		}
	}

	l.events = append(l.events, entry)
	l.flush()

	if l.console {
		suffix := ""
		if entry.DurationMS != nil {
			suffix = fmt.Sprintf(" (%.2fms)", *entry.DurationMS)
		}
		log.Printf("[Trace] %s: %s.%s%s", level, agent, event, suffix)
		if cause != nil {
			log.Printf("[Trace]   error: %v", cause)
		}
	}
}

// normalizeEvent strips start/complete suffixes so "analysis_start" and
// "analysis_complete" share the key "analysis", and bare "start"/"complete"
// share "".
func normalizeEvent(event string) string {
	for _, suffix := range []string{"_start", "_complete", "start", "complete"} {
		if strings.HasSuffix(event, suffix) {
			return strings.TrimSuffix(event, suffix)
		}
	}
	return event
}

// flush rewrites the full JSON array after each event, keeping the on-disk
// artifact valid even if the run aborts mid-way.
func (l *Logger) flush() {
	if l.filePath == "" {
		return
	}
	data, err := json.MarshalIndent(l.events, "", "  ")
	if err != nil {
		log.Printf("[Trace] Failed to marshal trace events: %v", err)
		return
	}
	if err := os.WriteFile(l.filePath, data, 0o644); err != nil {
		log.Printf("[Trace] Failed to write trace file: %v", err)
	}
}
