// Command demo prints a sample retrieval trace with the colored handler.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/soundprediction/schemagraph/pkg/logger"
)

func main() {
	levelName := flag.String("level", "debug", "minimum level to print")
	plain := flag.Bool("no-color", false, "disable ANSI colors")
	flag.Parse()

	level, err := logger.ParseLevel(*levelName)
	if err != nil {
		slog.Error("bad level", "error", err)
		os.Exit(2)
	}
	log := logger.NewLogger(os.Stderr, logger.Options{Level: level, NoColor: *plain}).
		With("request_id", "demo")

	search := log.WithGroup("search")
	search.Debug("level started", "level", "exact", "terms", []string{"customer"})
	search.Info("early stop", "level1_results", 3)

	search.Debug("level started", "level", "vector")
	search.Warn("retrieval level failed", "level", "vector", "error", "embedding timeout")
	search.Info("fallback", "stage", "domain_discovery", "candidates", 0)
	search.Info("retrieval finished", "results", 0, "state", "fallback_done")

	log.Error("query log unavailable", "backend", "postgres", "error", "connection refused")
}
