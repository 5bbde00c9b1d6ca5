package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/utils"
)

// TextEncoder is the engine-side sentence encoding stage.
type TextEncoder struct {
	engine *Engine

	inputCol     string
	outputCol    string
	modelID      string
	batchSize    int
	batchSizeSet bool
}

var _ bridge.TextEncoderStage = (*TextEncoder)(nil)

// SetInputCol sets the text column to encode.
func (t *TextEncoder) SetInputCol(name string) bridge.TextEncoderStage {
	t.inputCol = name
	return t
}

// SetOutputCol sets the name of the vector column to add.
func (t *TextEncoder) SetOutputCol(name string) bridge.TextEncoderStage {
	t.outputCol = name
	return t
}

// SetModelID sets the model identifier, see embedder.ParseModelID.
func (t *TextEncoder) SetModelID(modelID string) bridge.TextEncoderStage {
	t.modelID = modelID
	return t
}

// SetBatchSize sets the number of texts sent to the model per call.
func (t *TextEncoder) SetBatchSize(size int) bridge.TextEncoderStage {
	t.batchSize = size
	t.batchSizeSet = true
	return t
}

func (t *TextEncoder) validate(in *frame.Frame) error {
	switch {
	case t.inputCol == "":
		return &ParamError{Param: "inputCol", Reason: "must be set"}
	case t.outputCol == "":
		return &ParamError{Param: "outputCol", Reason: "must be set"}
	case t.modelID == "":
		return &ParamError{Param: "modelId", Reason: "must be set"}
	case t.batchSizeSet && t.batchSize <= 0:
		return &ParamError{Param: "batchSize", Reason: fmt.Sprintf("must be positive, got %d", t.batchSize)}
	case in == nil:
		return fmt.Errorf("input frame is nil")
	case in.HasColumn(t.outputCol):
		return fmt.Errorf("%w: %s", ErrOutputColumnExists, t.outputCol)
	}
	return nil
}

type textBatch struct {
	index int
	rows  []int
	texts []string
}

// Encode embeds every non-null value of the input column and returns in with
// the output column appended. Null inputs produce null vectors.
func (t *TextEncoder) Encode(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	out, err := t.encode(ctx, in)
	if err != nil {
		t.engine.failures.Add(1)
		t.engine.logger.ErrorContext(ctx, "Text encoding failed",
			"model_id", t.modelID, "input_col", t.inputCol, "output_col", t.outputCol, "error", err)
	}
	return out, err
}

func (t *TextEncoder) encode(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	if err := t.validate(in); err != nil {
		return nil, err
	}

	col, err := in.Column(t.inputCol)
	if err != nil {
		return nil, err
	}
	if col.Kind != frame.KindString {
		return nil, &frame.ColumnError{Column: t.inputCol, Err: fmt.Errorf("%w: is %s, want %s", frame.ErrColumnType, col.Kind, frame.KindString)}
	}

	client, err := t.engine.resolver.Resolve(ctx, t.modelID)
	if err != nil {
		return nil, err
	}

	batchSize := t.engine.cfg.DefaultBatchSize
	if t.batchSizeSet {
		batchSize = t.batchSize
	}

	rows := make([]int, 0, len(col.Values))
	for i, v := range col.Values {
		if v != nil {
			rows = append(rows, i)
		}
	}
	batches := make([]textBatch, 0, len(rows)/batchSize+1)
	for i, chunk := range utils.Batch(rows, batchSize) {
		texts := make([]string, len(chunk))
		for j, row := range chunk {
			texts[j] = col.Values[row].(string)
		}
		batches = append(batches, textBatch{index: i, rows: chunk, texts: texts})
	}

	logger := t.engine.logger.With("model_id", t.modelID, "input_col", t.inputCol, "output_col", t.outputCol)
	logger.InfoContext(ctx, "Encoding text column", "rows", in.NumRows(), "batches", len(batches), "batch_size", batchSize)
	start := time.Now()

	pool := utils.NewWorkerPool(t.engine.cfg.MaxConcurrency, func(ctx context.Context, b textBatch) ([][]float32, error) {
		embeddings, err := client.Embed(ctx, b.texts)
		if err != nil {
			return nil, err
		}
		if len(embeddings) != len(b.texts) {
			return nil, fmt.Errorf("model returned %d embeddings for %d texts", len(embeddings), len(b.texts))
		}
		logger.Debug("Encoded batch", "batch", b.index, "size", len(b.texts))
		return embeddings, nil
	})
	results, errs := pool.ProcessItems(ctx, batches)
	if i, err := utils.FirstError(errs); err != nil {
		b := batches[i]
		return nil, &BatchError{Batch: b.index, Start: b.rows[0], End: b.rows[len(b.rows)-1] + 1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, in.NumRows())
	for i, b := range batches {
		for j, row := range b.rows {
			vec := results[i][j]
			if t.engine.cfg.Normalize {
				vec = utils.Normalize(vec)
			}
			vectors[row] = vec
		}
	}

	out, err := in.WithColumn(frame.VectorColumn(t.outputCol, vectors...))
	if err != nil {
		return nil, err
	}

	t.engine.rowsEncoded.Add(int64(len(rows)))
	t.engine.batchesEncoded.Add(int64(len(batches)))
	logger.InfoContext(ctx, "Encoded text column", "rows", len(rows), "duration", time.Since(start))
	return out, nil
}
