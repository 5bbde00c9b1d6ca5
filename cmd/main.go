package main

import (
	"os"

	"github.com/soundprediction/textencode/cmd/textencode"
)

func main() {
	if err := textencode.Execute(); err != nil {
		os.Exit(1)
	}
}
