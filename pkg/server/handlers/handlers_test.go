package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/soundprediction/textencode/pkg/embedder"
	"github.com/soundprediction/textencode/pkg/engine"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// lengthClient embeds each text as [len(text), 1].
type lengthClient struct{}

func (lengthClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}
func (lengthClient) Dimensions() int { return 2 }
func (lengthClient) Model() string   { return "length" }
func (lengthClient) Close() error    { return nil }

type testResolver struct{}

func (testResolver) Resolve(ctx context.Context, modelID string) (embedder.Client, error) {
	if modelID == "missing-model" {
		return nil, fmt.Errorf("%w: %s", embedder.ErrUnknownModel, modelID)
	}
	return lengthClient{}, nil
}

func newTestEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(testResolver{}, config.EngineConfig{DefaultBatchSize: 2, MaxConcurrency: 2}, opts...)
}

func newRouter(h *HealthHandler, e *EncodeHandler) *gin.Engine {
	r := gin.New()
	if h != nil {
		r.GET("/health", h.HealthCheck)
		r.GET("/ready", h.ReadinessCheck)
		r.GET("/live", h.LivenessCheck)
		r.GET("/health/detailed", h.DetailedHealthCheck)
	}
	if e != nil {
		r.POST("/api/v1/encode", e.Encode)
	}
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, response
}
