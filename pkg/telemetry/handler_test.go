package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, batchSize int) (*slog.Logger, *ParquetHandler, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	h, err := NewParquetHandlerWithBatchSize(slog.NewTextHandler(&buf, nil), dir, batchSize)
	require.NoError(t, err)
	return slog.New(h), h, &buf, dir
}

func TestParquetHandlerRecordsErrorsOnly(t *testing.T) {
	log, h, buf, dir := newTestLogger(t, 10)

	ctx := WithRequestSource(WithSessionID(context.Background(), "sess-1"), "http")
	log.InfoContext(ctx, "Encoding text column")
	log.ErrorContext(ctx, "Text encoding failed", "error", errors.New("model exploded"), "rows", 4)

	assert.Contains(t, buf.String(), "Encoding text column")

	records, err := ReadRecords(dir)
	require.NoError(t, err)
	assert.Empty(t, records, "records stay buffered until flush")

	require.NoError(t, h.Close())
	records, err = ReadRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Text encoding failed", rec.Message)
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, "sess-1", rec.SessionID)
	assert.Equal(t, "http", rec.RequestSource)
	assert.Contains(t, rec.Attributes, `"error":"model exploded"`)
	assert.NotEmpty(t, rec.ID)
}

func TestParquetHandlerFlushesAtBatchSize(t *testing.T) {
	log, _, _, dir := newTestLogger(t, 2)

	log.Error("first")
	log.Error("second")

	records, err := ReadRecords(dir)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParquetHandlerDerivedLoggersShareBuffer(t *testing.T) {
	log, h, _, dir := newTestLogger(t, 10)

	log.With("session_id", "sess-2").Error("from child")
	log.Error("from parent")
	require.NoError(t, h.Flush())

	records, err := ReadRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	bySession := map[string]string{}
	for _, r := range records {
		bySession[r.Message] = r.SessionID
	}
	assert.Equal(t, "sess-2", bySession["from child"])
	assert.Equal(t, "", bySession["from parent"])
}

func TestParquetHandlerKeepsUnencodableAttributes(t *testing.T) {
	log, h, _, dir := newTestLogger(t, 10)

	log.Error("Vector normalization failed", "magnitude", math.NaN(), "rows", 4)
	require.NoError(t, h.Flush())

	records, err := ReadRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)

	attrs := records[0].Attributes
	assert.Contains(t, attrs, `"magnitude":"NaN"`)
	assert.Contains(t, attrs, `"rows":4`)
	assert.Contains(t, attrs, `"_encode_error"`)
}
