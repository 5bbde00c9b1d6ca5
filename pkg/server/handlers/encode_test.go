package handlers

import (
	"net/http"
	"testing"

	"github.com/soundprediction/textencode/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeBody(rows ...map[string]any) map[string]any {
	return map[string]any{
		"rows":       rows,
		"input_col":  "text",
		"output_col": "embedding",
		"model_id":   "length",
	}
}

func TestEncode(t *testing.T) {
	eng := newTestEngine()
	r := newRouter(nil, NewEncodeHandler(eng, 100, "", nil))

	body := encodeBody(
		map[string]any{"id": 1, "text": "hi"},
		map[string]any{"id": 2, "text": "hello"},
		map[string]any{"id": 3, "text": nil},
	)
	w, response := doRequest(t, r, http.MethodPost, "/api/v1/encode", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.NotEmpty(t, response["session_id"])
	assert.Equal(t, float64(3), response["num_rows"])

	rows := response["rows"].([]any)
	require.Len(t, rows, 3)
	first := rows[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, []any{float64(2), float64(1)}, first["embedding"])
	assert.Nil(t, rows[2].(map[string]any)["embedding"])

	schema := response["schema"].([]any)
	last := schema[len(schema)-1].(map[string]any)
	assert.Equal(t, "embedding", last["name"])

	assert.Equal(t, int64(2), eng.Stats().RowsEncoded)
}

func TestEncodeWithBatchSize(t *testing.T) {
	eng := newTestEngine()
	r := newRouter(nil, NewEncodeHandler(eng, 100, "", nil))

	body := encodeBody(map[string]any{"text": "a"}, map[string]any{"text": "b"}, map[string]any{"text": "c"})
	body["batch_size"] = 1
	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/encode", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(3), eng.Stats().BatchesEncoded)
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     []engine.Option
		body     any
		mutate   func(body map[string]any)
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed body",
			body:     `{"rows": [`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "missing model",
			mutate:   func(b map[string]any) { delete(b, "model_id") },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "too many rows",
			mutate:   func(b map[string]any) { b["rows"] = []map[string]any{{"text": "a"}, {"text": "b"}, {"text": "c"}} },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "mixed column types",
			mutate:   func(b map[string]any) { b["rows"] = []map[string]any{{"text": "a"}, {"text": 1}} },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_rows",
		},
		{
			name:     "input column missing",
			mutate:   func(b map[string]any) { b["input_col"] = "body" },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "output column exists",
			mutate:   func(b map[string]any) { b["output_col"] = "id" },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "non-positive batch size",
			mutate:   func(b map[string]any) { b["batch_size"] = 0 },
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "unknown model",
			mutate:   func(b map[string]any) { b["model_id"] = "missing-model" },
			wantCode: http.StatusNotFound,
			wantErr:  "unknown_model",
		},
		{
			name:     "extension not registered",
			opts:     []engine.Option{engine.WithExtensions()},
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "extension_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(nil, NewEncodeHandler(newTestEngine(tt.opts...), 2, "", nil))

			body := tt.body
			if body == nil {
				b := encodeBody(map[string]any{"id": 1, "text": "a"})
				if tt.mutate != nil {
					tt.mutate(b)
				}
				body = b
			}

			w, response := doRequest(t, r, http.MethodPost, "/api/v1/encode", body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantErr, response["error"])
		})
	}
}
