package main

import (
	"log/slog"

	"github.com/soundprediction/textencode/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("textencode colored logger demo")
	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Embedding cache opened", "path", "~/.textencode/cache")
	log.Info("Vectors persisted to parquet", "rows", 1024)
	log.Warn("Retrying embedding request", "attempt", 2, "delay", "2s")
	log.Error("Circuit breaker opened", "name", "openai")
}
