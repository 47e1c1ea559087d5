package logger

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event kinds.
const (
	KindSpawn    = "spawn"
	KindExit     = "exit"
	KindBuiltin  = "builtin"
	KindNotFound = "not_found"
	KindRedirect = "redirect"
	KindError    = "error"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *structpb.Struct) error

// Logger captures execution events.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(le *structpb.Struct) error {
			entry, err := protojson.Marshal(le)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return &Logger{
		Record: func(*structpb.Struct) error { return nil },
	}
}

func (l *Logger) record(sessionID, kind string, fields map[string]interface{}) error {
	payload := map[string]interface{}{
		"kind":             kind,
		"session_id":       sessionID,
		"timestamp_micros": time.Now().UnixNano() / int64(time.Microsecond),
	}
	for k, v := range fields {
		payload[k] = v
	}

	le, err := structpb.NewStruct(payload)
	if err != nil {
		return err
	}
	return l.Record(le)
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: fmt.Sprintf("%d", rand.Uint64())}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID identifies the session in the log.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Spawn records a process started with the given strategy.
func (l *SessionLogger) Spawn(strategy string, pid int, argv []string) error {
	return l.record(l.sessionID, KindSpawn, map[string]interface{}{
		"strategy": strategy,
		"pid":      pid,
		"argv":     toList(argv),
	})
}

// Exit records the status of a finished foreground command.
func (l *SessionLogger) Exit(name string, status int) error {
	return l.record(l.sessionID, KindExit, map[string]interface{}{
		"command": name,
		"status":  status,
	})
}

// Builtin records a builtin run inside the shell.
func (l *SessionLogger) Builtin(argv []string, status int) error {
	return l.record(l.sessionID, KindBuiltin, map[string]interface{}{
		"argv":   toList(argv),
		"status": status,
	})
}

// NotFound records a command that couldn't be resolved.
func (l *SessionLogger) NotFound(name string) error {
	return l.record(l.sessionID, KindNotFound, map[string]interface{}{
		"command": name,
	})
}

// Redirect records a file opened for redirection.
func (l *SessionLogger) Redirect(path, mode string) error {
	return l.record(l.sessionID, KindRedirect, map[string]interface{}{
		"path": path,
		"mode": mode,
	})
}

// Error records an error that aborted a command line.
func (l *SessionLogger) Error(op string, err error) error {
	return l.record(l.sessionID, KindError, map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
}

func toList(strs []string) []interface{} {
	out := make([]interface{}, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out
}
