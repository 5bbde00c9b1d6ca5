// Package telemetry records error-level log records to Parquet files.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

type contextKey string

const (
	// ContextKeySessionID carries the id of the session a request runs in.
	ContextKeySessionID contextKey = "session_id"
	// ContextKeyRequestSource names the surface a request came from (cli, http).
	ContextKeyRequestSource contextKey = "request_source"
)

// WithSessionID returns ctx carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// WithRequestSource returns ctx carrying the request source.
func WithRequestSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestSource, source)
}

// LogRecord is one error log entry as stored in Parquet.
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON object
}

// sink is the buffer shared by a handler and the handlers derived from it.
type sink struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []LogRecord
	files  int
}

// ParquetHandler is a slog.Handler that forwards every record to next and
// additionally buffers error records, writing them out as Parquet files.
type ParquetHandler struct {
	next  slog.Handler
	sink  *sink
	attrs []slog.Attr
}

// DefaultBatchSize is the number of records buffered before a file is written.
const DefaultBatchSize = 100

// NewParquetHandler creates a ParquetHandler writing into outputDir.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	return NewParquetHandlerWithBatchSize(next, outputDir, DefaultBatchSize)
}

// NewParquetHandlerWithBatchSize is NewParquetHandler with a custom flush
// threshold.
func NewParquetHandlerWithBatchSize(next slog.Handler, outputDir string, batchSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ParquetHandler{
		next: next,
		sink: &sink{
			outputDir: outputDir,
			batchSize: batchSize,
			buffer:    make([]LogRecord, 0, batchSize),
		},
	}, nil
}

// Enabled implements slog.Handler.
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	var sessionID, requestSource string
	if v, ok := ctx.Value(ContextKeySessionID).(string); ok {
		sessionID = v
	}
	if v, ok := ctx.Value(ContextKeyRequestSource).(string); ok {
		requestSource = v
	}

	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	collect := func(a slog.Attr) bool {
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs[a.Key] = v
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)
	if sessionID == "" {
		if v, ok := attrs["session_id"].(string); ok {
			sessionID = v
		}
	}
	attrsJSON := encodeAttributes(attrs)

	var sourceFile string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		sourceFile, line = f.File, f.Line
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	record := LogRecord{
		ID:            id.String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		SessionID:     sessionID,
		RequestSource: requestSource,
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    attrsJSON,
	}

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

// encodeAttributes renders attrs as a JSON object. Values that cannot be
// marshalled are stored as their fmt representation and the marshal error is
// kept under "_encode_error".
func encodeAttributes(attrs map[string]any) string {
	data, err := json.Marshal(attrs)
	if err == nil {
		return string(data)
	}

	safe := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		if _, verr := json.Marshal(v); verr != nil {
			safe[k] = fmt.Sprint(v)
			continue
		}
		safe[k] = v
	}
	safe["_encode_error"] = err.Error()
	if data, err = json.Marshal(safe); err != nil {
		return fmt.Sprint(attrs)
	}
	return string(data)
}

// Flush writes any buffered records to a new file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the buffer. The handler keeps forwarding records afterwards.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the buffer to a new Parquet file. Caller must hold the lock.
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	s.files++
	name := fmt.Sprintf("encode_errors_%s_%d_%d.parquet", now.Format("20060102_150405"), now.UnixNano(), s.files)
	if err := parquet.WriteFile(filepath.Join(s.outputDir, name), s.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}
	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the buffer.
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		sink:  h.sink,
		attrs: h.attrs,
	}
}

// ReadRecords loads every record written under dir.
func ReadRecords(dir string) ([]LogRecord, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	var out []LogRecord
	for _, f := range files {
		rows, err := parquet.ReadFile[LogRecord](f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}
