// Package engine is the in-process implementation of bridge.Bridge.
//
// The engine owns the actual sentence encoding: it validates stage
// configuration when a stage runs, resolves the model identifier through an
// embedder.Resolver, splits the input column into batches, embeds the batches
// on a bounded worker pool and appends the vectors as a new column.
//
// Stages are cheap to create and hold no model state; loaded models are
// shared through the resolver.
package engine
