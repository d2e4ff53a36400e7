package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/webdedesign/vergiai/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr  string
	serveStdio bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve document search over the Model Context Protocol",
	Long: `Exposes search_documents, list_documents and get_index_status as MCP tools.

By default MCP is served over Streamable HTTP at /mcp together with /health,
/metrics and a landing page at /. With --stdio the tools are served on
stdin/stdout for local clients and HTTP only carries /health and /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default server.addr, :8080)")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "serve MCP over stdin/stdout")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openReadStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Searcher: a.newRetriever(store),
		Catalog:  store,
		Backend:  a.cfg.Store.Backend,
	})

	mux := http.NewServeMux()
	if checker, ok := store.(mcpserver.HealthChecker); ok {
		mux.HandleFunc("/health", mcpserver.NewHealthHandler(checker, a.cfg.Store.Backend))
	}
	mux.Handle("/metrics", a.metrics.Handler())
	if !serveStdio {
		mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, &mcpserver.HTTPHandlerOptions{Stateless: true}))
		mux.HandleFunc("/", mcpserver.NewLandingHandler())
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("starting HTTP server", zap.String("addr", addr), zap.Bool("stdio", serveStdio))
	errCh := startHTTP(httpServer, a.logger)

	if serveStdio {
		// stdio stays up without /health and /metrics; startHTTP logs the failure
		a.logger.Info("serving MCP over stdio")
		err = server.Run(ctx)
	} else {
		select {
		case <-ctx.Done():
		case err = <-errCh:
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Warn("HTTP shutdown failed", zap.Error(shutdownErr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// startHTTP serves srv in the background. A listen failure is logged and
// delivered on the returned channel, which is closed once the server stops.
func startHTTP(srv *http.Server, logger *zap.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.String("addr", srv.Addr), zap.Error(err))
			errCh <- err
		}
	}()
	return errCh
}
