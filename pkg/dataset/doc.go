// Package dataset provides the host-side dataset handle.
//
// A Dataset pairs an engine-native frame with the session it belongs to.
// Stages never see Dataset values; they receive the frame and return a new
// one, which is wrapped again together with the original session:
//
//	out := dataset.New(result, in.Session())
//
// The package also reads and writes datasets as Parquet files and JSON Lines.
package dataset
