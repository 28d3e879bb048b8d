// Package main is the lexrag CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/assembler"
	"github.com/lexforge/lexrag/internal/config"
	"github.com/lexforge/lexrag/internal/docstore"
	"github.com/lexforge/lexrag/internal/embedding"
	"github.com/lexforge/lexrag/internal/extract"
	"github.com/lexforge/lexrag/internal/generator"
	"github.com/lexforge/lexrag/internal/health"
	"github.com/lexforge/lexrag/internal/ingest"
	"github.com/lexforge/lexrag/internal/keyword"
	"github.com/lexforge/lexrag/internal/models"
	"github.com/lexforge/lexrag/internal/rag"
	"github.com/lexforge/lexrag/internal/retriever"
	"github.com/lexforge/lexrag/internal/server"
	"github.com/lexforge/lexrag/internal/vectorindex"
	"github.com/lexforge/lexrag/internal/watcher"
	"github.com/lexforge/lexrag/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/lexrag/config.yaml"

func main() {
	// Provider API keys may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("lexrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: lexrag <command> [flags]

Commands:
  server    run the HTTP API server
  ask       answer a legal question from the command line
  ingest    load statute files into the indices
  status    print component health and corpus counts
  version   print version
`)
}

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins so running from the project dir picks up the
// project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// components holds everything the subcommands need, with a single Close.
type components struct {
	Embedder     embedding.Embedder
	VectorIndex  vectorindex.VectorIndex
	Store        docstore.Store
	Keyword      *keyword.BleveIndex
	Retriever    *retriever.Retriever
	Generator    generator.Generator
	Orchestrator *rag.Orchestrator
	Ingestor     *ingest.Pipeline
	Health       *health.Aggregator
}

func (c *components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	embedClient, err := embedding.NewClient(embedding.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKeyEnv:  cfg.Embedding.APIKeyEnv,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		BatchSize:  cfg.Embedding.BatchSize,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	c.Embedder = embedding.NewCachedEmbedder(embedClient, cfg.Embedding.CacheSize)

	switch cfg.Index.Type {
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			c.Close()
			return nil, fmt.Errorf("vector_index.type is qdrant but no qdrant block is configured")
		}
		qdrant := vectorindex.NewQdrantIndex(vectorindex.QdrantConfig{
			URL:        cfg.Index.Qdrant.URL,
			APIKeyEnv:  cfg.Index.Qdrant.APIKeyEnv,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		})
		if err := qdrant.EnsureCollection(ctx, cfg.Embedding.Dimensions); err != nil {
			logger.Warn("could not ensure qdrant collection", zap.Error(err))
		}
		c.VectorIndex = qdrant
	case "memory", "":
		mem, err := vectorindex.NewMemoryIndex(cfg.Embedding.Dimensions)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("memory index: %w", err)
		}
		c.VectorIndex = mem
	default:
		c.Close()
		return nil, fmt.Errorf("unknown vector index type %q", cfg.Index.Type)
	}
	c.VectorIndex = vectorindex.NewPooled(c.VectorIndex, cfg.Index.PoolSize,
		time.Duration(cfg.Index.PoolTimeoutMillis)*time.Millisecond)

	store, err := docstore.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("document store: %w", err)
	}
	c.Store = store

	if cfg.Storage.BleveIndexPath != "" {
		kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("keyword index: %w", err)
		}
		c.Keyword = kw
	}

	c.Retriever = retriever.New(c.Embedder, c.VectorIndex, c.Store, c.Keyword, retriever.Options{
		TopKFetch:     cfg.Retrieval.TopKFetch,
		TopKSelect:    cfg.Retrieval.TopKSelect,
		MinScore:      cfg.Retrieval.MinScore,
		KeywordWeight: cfg.Retrieval.KeywordWeight,
	}, logger)

	gen, err := generator.NewClient(generator.Config{
		BaseURL:           cfg.Generation.BaseURL,
		APIKeyEnv:         cfg.Generation.APIKeyEnv,
		Model:             cfg.Generation.Model,
		Temperature:       cfg.Generation.Temperature,
		Timeout:           time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
		AllowEmptyContext: cfg.Generation.AllowEmptyContext,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("generation client: %w", err)
	}
	c.Generator = gen

	c.Orchestrator = rag.New(
		c.Retriever,
		assembler.New(cfg.Retrieval.MaxContextTokens),
		c.Generator,
		cfg.Generation.FallbackAnswer,
		logger,
	)

	c.Ingestor = ingest.NewPipeline(
		extract.NewExtractor(),
		ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		c.Embedder,
		c.Store,
		c.VectorIndex,
		c.Keyword,
		logger,
	)

	c.Health = health.New([]health.Check{
		{Name: health.CompEmbedder, Pinger: c.Embedder},
		{Name: health.CompVectorIndex, Pinger: c.VectorIndex},
		{Name: health.CompDocumentStore, Pinger: c.Store},
		{Name: health.CompGenerator, Pinger: c.Generator},
	},
		time.Duration(cfg.Health.RefreshSecs)*time.Second,
		time.Duration(cfg.Health.ProbeSecs)*time.Second,
		logger,
	)

	return c, nil
}

func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolvedPath, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	c.Health.Start(ctx)
	defer c.Health.Stop()

	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ingestor := c.Ingestor
		watch = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if _, err := ingestor.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				logger.Info("corpus file removed, statute remains until re-ingest",
					zap.String("path", path))
			},
			logger,
		)
		if err := watch.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv := server.NewServer(c.Orchestrator, c.Ingestor, c.Store, c.Health, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "override how many passages to select")
	maxTokens := fs.Int("max-context-tokens", 0, "override the context token budget")
	act := fs.String("act", "", "restrict retrieval to one act")
	outputJSON := fs.Bool("json", false, "print the full AnswerResult as JSON")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: lexrag ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	query := &models.AskQuery{
		Query: question,
		Options: models.AskOptions{
			TopK:             *topK,
			MaxContextTokens: *maxTokens,
		},
	}
	if *act != "" {
		query.Options.Filters = map[string]string{"act": strings.ToLower(*act)}
	}

	result, err := c.Orchestrator.Ask(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	fmt.Println(result.AnswerText)
	if result.Degraded {
		fmt.Printf("\n[degraded: %s]\n", result.DegradedReason)
	}
	if len(result.CitedChunkIDs) > 0 {
		fmt.Printf("\nCited: %s\n", strings.Join(result.CitedChunkIDs, ", "))
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	recursive := fs.Bool("recursive", true, "recurse into subdirectories")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: lexrag ingest [flags] <file-or-directory>...")
		os.Exit(1)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	totalFiles, totalChunks := 0, 0
	for _, target := range fs.Args() {
		info, err := os.Stat(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", target, err)
			continue
		}
		if info.IsDir() {
			files, chunks, err := c.Ingestor.IngestDir(ctx, target, cfg.Watch.Extensions, *recursive)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest of %s aborted: %v\n", target, err)
			}
			totalFiles += files
			totalChunks += chunks
			continue
		}
		chunks, err := c.Ingestor.IngestFile(ctx, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", target, err)
			continue
		}
		totalFiles++
		totalChunks += chunks
	}
	fmt.Printf("Ingested %d files (%d chunks)\n", totalFiles, totalChunks)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	c.Health.Start(ctx)
	defer c.Health.Stop()
	report := c.Health.Report()

	fmt.Printf("Overall: %s\n", report.Overall)
	for _, comp := range report.Components {
		line := fmt.Sprintf("  %-16s %s", comp.Component, comp.State)
		if comp.Detail != "" {
			line += "  (" + comp.Detail + ")"
		}
		fmt.Println(line)
	}
	if count, err := c.Store.Count(ctx); err == nil {
		fmt.Printf("Chunks: %d\n", count)
	}
}
