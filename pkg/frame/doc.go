// Package frame provides the engine-native tabular representation that
// encoding stages read from and write to.
//
// A Frame is an ordered set of equally sized, named columns. Frames are
// immutable: every operation that changes the shape of a frame returns a new
// Frame and leaves the receiver untouched, so a frame can be shared between
// goroutines and between dataset handles without copying.
//
// # Column Kinds
//
//   - KindString: UTF-8 text, nil entries are nulls
//   - KindInt64, KindFloat64, KindBool: scalar values
//   - KindVector: []float32 values, used for embeddings
package frame
