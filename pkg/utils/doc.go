// Package utils provides the concurrency and vector helpers used by the
// encoding engine:
//   - Worker pools and batching (concurrent.go)
//   - Panic recovery for worker goroutines (recovery.go)
//   - Vector normalization (vector.go)
package utils
