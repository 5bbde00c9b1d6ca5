package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/dataset"
	"github.com/soundprediction/textencode/pkg/embedder"
	"github.com/soundprediction/textencode/pkg/encoder"
	"github.com/soundprediction/textencode/pkg/engine"
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/server/dto"
	"github.com/soundprediction/textencode/pkg/session"
	"github.com/soundprediction/textencode/pkg/telemetry"
)

// EncodeHandler serves text encoding requests. Each request runs in its own
// session over the shared bridge.
type EncodeHandler struct {
	bridge     bridge.Bridge
	maxRows    int
	sessionTag string
	logger     *slog.Logger
}

// NewEncodeHandler creates a new encode handler
func NewEncodeHandler(b bridge.Bridge, maxRows int, sessionTag string, logger *slog.Logger) *EncodeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTag == "" {
		sessionTag = "http"
	}
	return &EncodeHandler{
		bridge:     b,
		maxRows:    maxRows,
		sessionTag: sessionTag,
		logger:     logger,
	}
}

func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// Encode handles POST /api/v1/encode
func (h *EncodeHandler) Encode(c *gin.Context) {
	var req dto.EncodeRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(h.maxRows); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	name := h.sessionTag
	if v := c.GetHeader("X-Session-Name"); v != "" {
		name = v
	}
	sess := session.New(name, h.bridge, session.WithLogger(h.logger))
	defer sess.Close()
	ctx := telemetry.WithSessionID(c.Request.Context(), sess.ID())

	ds, err := dataset.FromRecords(sess, req.Rows)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_rows", err.Error())
		return
	}

	var opts []encoder.Option
	if req.BatchSize != nil {
		opts = append(opts, encoder.WithBatchSize(*req.BatchSize))
	}
	enc := encoder.NewTextEncoder(req.InputCol, req.OutputCol, req.ModelID, opts...)

	start := time.Now()
	out, err := enc.Encode(ctx, sess, ds)
	if err != nil {
		status, code := classify(err)
		sess.Logger().WarnContext(ctx, "Encode request failed", "status", status, "error", err)
		writeError(c, status, code, err.Error())
		return
	}

	fr := out.Frame()
	rows := make([]map[string]any, fr.NumRows())
	for i := range rows {
		if rows[i], err = fr.Row(i); err != nil {
			writeError(c, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
	}
	schema := make([]dto.Field, 0, fr.NumColumns())
	for _, f := range fr.Schema() {
		schema = append(schema, dto.Field{Name: f.Name, Kind: string(f.Kind)})
	}

	c.JSON(http.StatusOK, dto.EncodeResponse{
		SessionID:  sess.ID(),
		NumRows:    fr.NumRows(),
		Schema:     schema,
		Rows:       rows,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// classify maps encoding errors to an HTTP status and error code.
func classify(err error) (int, string) {
	var batchErr *engine.BatchError
	switch {
	case errors.Is(err, engine.ErrInvalidParam),
		errors.Is(err, engine.ErrOutputColumnExists),
		errors.Is(err, frame.ErrColumnNotFound),
		errors.Is(err, frame.ErrColumnType):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, embedder.ErrUnknownModel):
		return http.StatusNotFound, "unknown_model"
	case errors.Is(err, bridge.ErrExtensionNotRegistered):
		return http.StatusServiceUnavailable, "extension_unavailable"
	case errors.As(err, &batchErr):
		return http.StatusBadGateway, "model_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
