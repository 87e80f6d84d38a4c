package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"adlens/adapters/postgres"
	"adlens/ai"
	"adlens/internal/config"
	"adlens/internal/dataset"
	"adlens/internal/pipeline"
	"adlens/internal/tracelog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[Main] No .env file found, using environment variables")
	}

	query := flag.String("query", "Why did my ads performance drop in the last 7 days?", "analysis question to answer")
	dataFile := flag.String("data", "", "path to the ads dataset (overrides DATA_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Configuration error: %v", err)
	}
	if *dataFile != "" {
		cfg.Data.File = *dataFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := dataset.NewReader(cfg.Data.File).Read()
	if err != nil {
		log.Fatalf("[Main] Failed to read dataset: %v", err)
	}
	rows, warnings, err := dataset.Clean(table)
	if err != nil {
		log.Fatalf("[Main] Dataset rejected: %v", err)
	}
	log.Printf("[Main] Dataset loaded: %d rows, %d cleaning warnings", len(rows), len(warnings))

	trace, err := tracelog.New(cfg.Outputs.LogsDir)
	if err != nil {
		log.Fatalf("[Main] Failed to initialize trace log: %v", err)
	}

	var archive pipeline.RunArchiver
	if cfg.Database.URL != "" {
		repo, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Printf("[Main] Run archive unavailable, continuing without it: %v", err)
		} else {
			defer repo.Close()
			archive = repo
		}
	}

	llm := ai.NewClient(cfg.LLM, cfg.Retry, ai.NewOpenAITransport(cfg.LLM.APIKey, cfg.LLM.BaseURL))
	orchestrator := pipeline.NewOrchestrator(cfg, llm, rows, trace, archive)

	result, err := orchestrator.Run(ctx, *query)
	if err != nil {
		log.Fatalf("[Main] Pipeline failed: %v", err)
	}

	log.Printf("[Main] Run %s complete: report at %s", result.State.RunID, result.ReportPath)
	log.Printf("[Main] Trace log: %s", trace.FilePath())
}
