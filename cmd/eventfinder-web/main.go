package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commonground/eventfinder/internal/config"
	"github.com/commonground/eventfinder/internal/corpus"
	"github.com/commonground/eventfinder/internal/engine"
	"github.com/commonground/eventfinder/internal/expand"
	"github.com/commonground/eventfinder/internal/notify"
	"github.com/commonground/eventfinder/internal/server"
	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/internal/storage/memory"
	"github.com/commonground/eventfinder/internal/storage/postgres"
	"github.com/commonground/eventfinder/internal/storage/resilient"
	"github.com/commonground/eventfinder/internal/storage/sqlite"
)

func main() {
	// Parse command line flags
	eventsPath := flag.String("events", "", "Path to events CSV (overrides EVENTFINDER_EVENTS_PATH)")
	synonymsPath := flag.String("synonyms", "", "Path to synonyms YAML (overrides EVENTFINDER_SYNONYMS_PATH)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *eventsPath != "" {
		cfg.Corpus.EventsPath = *eventsPath
	}
	if *synonymsPath != "" {
		cfg.Corpus.SynonymsPath = *synonymsPath
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize feedback storage
	primary, err := openFeedbackStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	store := resilient.New(primary, resilient.Config{
		OnDegrade: func() {
			log.Printf("feedback store degraded: serving in-memory fallback, ratings will not persist")
		},
	})
	defer store.Close()

	// Load the event corpus; a bad source is a startup failure, not
	// something to limp along without.
	corpusHandle, err := corpus.NewHandle(ctx, corpus.FileSource{Path: cfg.Corpus.EventsPath})
	if err != nil {
		log.Fatalf("Failed to load events from %s: %v", cfg.Corpus.EventsPath, err)
	}
	log.Printf("Loaded %d events from %s", corpusHandle.Size(), cfg.Corpus.EventsPath)

	// Build the query expander, optionally from a YAML synonym table
	expander := expand.New()
	if cfg.Corpus.SynonymsPath != "" {
		expander, err = expand.NewFromFile(cfg.Corpus.SynonymsPath)
		if err != nil {
			log.Fatalf("Failed to load synonyms from %s: %v", cfg.Corpus.SynonymsPath, err)
		}
	}

	// Initialize recommendation engine
	engineCfg := engine.DefaultConfig()
	engineCfg.DefaultLimit = cfg.Ranking.DefaultLimit
	engineCfg.MaxLimit = cfg.Ranking.MaxLimit
	engineCfg.CacheSize = cfg.Ranking.CacheSize
	eng, err := engine.New(corpusHandle, expander, store, engineCfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}

	// Watch the CSV for changes and rebuild the corpus in place
	if cfg.Corpus.WatchSource {
		watcher := notify.NewSourceWatcher(cfg.Corpus.EventsPath, func() {
			if err := eng.Rebuild(context.Background()); err != nil {
				log.Printf("Corpus rebuild failed, keeping previous corpus: %v", err)
				return
			}
			log.Printf("Corpus rebuilt: %d events", eng.CorpusSize())
		})
		if err := watcher.Start(); err != nil {
			log.Printf("Warning: source watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// Start server
	addr, _ := server.Start(ctx, cfg, eng, store)
	log.Printf("eventfinder API running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openFeedbackStore selects the storage backend from config.
func openFeedbackStore(cfg *config.Config) (storage.FeedbackStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewFeedbackStore(cfg.Storage.PostgresDSN)
	case "memory":
		log.Printf("Warning: memory storage engine selected, ratings will not persist")
		return memory.NewFeedbackStore(), nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewFeedbackStore(cfg.Storage.DataPath + "/eventfinder.db")
	}
}
