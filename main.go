package main

import (
	"os"

	"github.com/chips-fries/st-llm-search-engine-backend/cmd"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.L.Error("command failed", "error", err)
		os.Exit(1)
	}
}
