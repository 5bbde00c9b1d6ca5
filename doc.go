// Package textencode adds sentence embedding columns to tabular datasets.
//
// A TextEncoder is a small configuration object: input column, output column,
// model id and an optional batch size. It does no encoding itself. Encode
// asks the session's bridge for a text encoder stage, forwards the
// configuration, runs the stage on the dataset and returns a new dataset with
// a vector column appended.
//
// # Basic Usage
//
//	resolver := embedder.NewResolver(cfg.Embedding, embedder.WithRetry(cfg.Retry))
//	eng := engine.New(resolver, cfg.Engine)
//	sess := session.New("example", eng)
//	defer sess.Close()
//
//	ds, err := dataset.ReadParquet("reviews.parquet", sess)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	enc := encoder.NewTextEncoder("review", "review_vec", "sentence-transformers/all-MiniLM-L6-v2",
//		encoder.WithBatchSize(64))
//	out, err := enc.Encode(ctx, sess, ds)
//
// # Packages
//
//   - frame: the immutable columnar frame stages operate on
//   - dataset: a frame bound to its session, with Parquet and JSON Lines IO
//   - session: the explicit handle to a bridge
//   - bridge: the stage capability interface and its extension names
//   - encoder: the TextEncoder adapter
//   - engine: the local bridge that batches texts through embedding models
//   - embedder: model clients (embed_anything, OpenAI) with retry, circuit breaking and caching
//   - server: the HTTP API
//
// The textencode command in cmd/ exposes file encoding, the HTTP server and
// configuration inspection.
package textencode
