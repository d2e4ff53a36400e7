// Package main provides the vergiai CLI: ingest tax documents, ask questions
// about them and serve them over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webdedesign/vergiai/internal/answer"
	"github.com/webdedesign/vergiai/internal/config"
	"github.com/webdedesign/vergiai/internal/embedding"
	"github.com/webdedesign/vergiai/internal/logging"
	"github.com/webdedesign/vergiai/internal/metrics"
	"github.com/webdedesign/vergiai/internal/retrieval"
	"github.com/webdedesign/vergiai/internal/storage"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vergiai",
	Short: "Document-grounded question answering over tax legislation PDFs",
	Long: `vergiai ingests PDF documents into a lexical (SQLite) or vector (Qdrant)
store and answers questions grounded in the retrieved pages, citing each
document and page it used.

Configuration is read from vergiai.yaml (or --config) and VERGIAI_*
environment variables, e.g.:
  VERGIAI_STORE__BACKEND        sqlite or qdrant (default: sqlite)
  VERGIAI_STORE__QDRANT__HOST   Qdrant hostname (default: localhost)
  OPENAI_API_KEY                key for embeddings and answers`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./vergiai.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(ingestCmd, chatCmd, askCmd, statusCmd, serveCmd, indexCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles the process-wide dependencies every command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// openStore connects to the configured backend and fails if it cannot be
// reached.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	return a.open(ctx, a.cfg.StoreOptions())
}

// openReadStore is openStore for commands that only read: an unreachable
// vector backend is logged and its calls degrade instead of failing startup.
func (a *app) openReadStore(ctx context.Context) (storage.Store, error) {
	opts := a.cfg.StoreOptions()
	opts.Qdrant.AllowUnavailable = true
	return a.open(ctx, opts)
}

// open builds the backend. The vector backend also needs an embedder, so its
// API key is checked first.
func (a *app) open(ctx context.Context, opts storage.Options) (storage.Store, error) {
	var embedder storage.Embedder
	if a.cfg.Store.Backend == storage.BackendQdrant {
		e, err := a.newEmbedder()
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	store, err := storage.Open(ctx, opts, embedder, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.cfg.Store.Backend, err)
	}
	return store, nil
}

func (a *app) newEmbedder() (*embedding.Embedder, error) {
	if err := a.cfg.RequireEmbedding(); err != nil {
		return nil, err
	}
	client, err := embedding.NewClient(a.cfg.Embedding.APIKey, a.cfg.Embedding.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	return embedding.NewEmbedder(client,
		embedding.WithModel(a.cfg.Embedding.Model),
		embedding.WithDimension(a.cfg.Store.Qdrant.Dimension),
		embedding.WithBatchSize(a.cfg.Embedding.BatchSize),
	), nil
}

func (a *app) newAnswerer() (*answer.OpenAI, error) {
	if err := a.cfg.RequireAnswer(); err != nil {
		return nil, err
	}
	client, err := embedding.NewClient(a.cfg.Answer.APIKey, a.cfg.Answer.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	return answer.NewOpenAI(client, a.cfg.Answer.Model, a.cfg.Answer.MaxTokens), nil
}

func (a *app) newRetriever(store storage.Store) *retrieval.Retriever {
	opts := []retrieval.Option{
		retrieval.WithTopN(a.cfg.Retrieval.TopN),
		retrieval.WithLogger(a.logger),
		retrieval.WithMetrics(a.metrics),
	}
	if a.cfg.Retrieval.MinScore != nil {
		opts = append(opts, retrieval.WithMinScore(*a.cfg.Retrieval.MinScore))
	}
	return retrieval.New(store, opts...)
}
