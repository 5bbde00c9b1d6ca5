package textencode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/dataset"
	"github.com/soundprediction/textencode/pkg/encoder"
	"github.com/soundprediction/textencode/pkg/session"
	"github.com/soundprediction/textencode/pkg/telemetry"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Add a sentence embedding column to a dataset file",
	Long: `Read a Parquet or JSON Lines dataset, encode every value of the input
column with the given model and write the dataset with the new vector column.

The file format is chosen by extension: .parquet for Parquet, .jsonl, .ndjson
or .json for JSON Lines.

Model ids are either a bare model name, served by the default provider, or
carry a provider prefix:
  textencode encode -i in.parquet -o out.parquet --model sentence-transformers/all-MiniLM-L6-v2
  textencode encode -i in.jsonl -o out.jsonl --model openai:text-embedding-3-small`,
	RunE: runEncode,
}

// encodeOptions are the flags of the encode command.
type encodeOptions struct {
	input     string
	output    string
	inputCol  string
	outputCol string
	modelID   string
	batchSize int
	lenient   bool
}

var encodeOpts encodeOptions

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encodeOpts.input, "input", "i", "", "input dataset (.parquet, .jsonl)")
	encodeCmd.Flags().StringVarP(&encodeOpts.output, "output", "o", "", "output dataset (.parquet, .jsonl)")
	encodeCmd.Flags().StringVar(&encodeOpts.inputCol, "input-col", "text", "column holding the text")
	encodeCmd.Flags().StringVar(&encodeOpts.outputCol, "output-col", "embedding", "column to write the vectors to")
	encodeCmd.Flags().StringVarP(&encodeOpts.modelID, "model", "m", "", "model id")
	encodeCmd.Flags().IntVar(&encodeOpts.batchSize, "batch-size", 0, "texts per model call (default from engine config)")
	encodeCmd.Flags().BoolVar(&encodeOpts.lenient, "lenient", false, "repair malformed JSON lines instead of failing")

	encodeCmd.MarkFlagRequired("input")
	encodeCmd.MarkFlagRequired("output")
	encodeCmd.MarkFlagRequired("model")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.logger.Warn("Failed to release resources", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An explicit --batch-size, zero included, is forwarded to the engine.
	return encodeFile(ctx, rt.engine, encodeOpts, cmd.Flags().Changed("batch-size"), rt.logger)
}

// encodeFile runs one encode request in a fresh session over b.
func encodeFile(ctx context.Context, b bridge.Bridge, opts encodeOptions, batchSizeSet bool, logger *slog.Logger) error {
	sess := session.New("cli", b, session.WithLogger(logger))
	defer sess.Close()
	ctx = telemetry.WithRequestSource(telemetry.WithSessionID(ctx, sess.ID()), "cli")

	start := time.Now()
	ds, err := readDataset(opts.input, sess, opts.lenient)
	if err != nil {
		return err
	}
	sess.Logger().Info("Dataset loaded", "path", opts.input, "rows", ds.NumRows(), "duration", time.Since(start))

	var encOpts []encoder.Option
	if batchSizeSet {
		encOpts = append(encOpts, encoder.WithBatchSize(opts.batchSize))
	}
	enc := encoder.NewTextEncoder(opts.inputCol, opts.outputCol, opts.modelID, encOpts...)

	out, err := enc.Encode(ctx, sess, ds)
	if err != nil {
		return fmt.Errorf("encode %s: %w", opts.input, err)
	}

	if err := writeDataset(opts.output, out); err != nil {
		return err
	}
	sess.Logger().Info("Dataset persisted", "path", opts.output, "rows", out.NumRows(), "duration", time.Since(start))
	return nil
}

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatParquet
	formatJSONL
)

func detectFormat(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return formatParquet
	case ".jsonl", ".ndjson", ".json":
		return formatJSONL
	default:
		return formatUnknown
	}
}

var errUnknownFormat = errors.New("unknown dataset format")

func readDataset(path string, sess *session.Session, lenient bool) (*dataset.Dataset, error) {
	switch detectFormat(path) {
	case formatParquet:
		return dataset.ReadParquet(path, sess)
	case formatJSONL:
		return dataset.ReadJSONL(path, sess, dataset.JSONLOptions{Lenient: lenient})
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownFormat, path)
	}
}

func writeDataset(path string, ds *dataset.Dataset) error {
	switch detectFormat(path) {
	case formatParquet:
		return dataset.WriteParquet(path, ds)
	case formatJSONL:
		return dataset.WriteJSONL(path, ds)
	default:
		return fmt.Errorf("%w: %s", errUnknownFormat, path)
	}
}
