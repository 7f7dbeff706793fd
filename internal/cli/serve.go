package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/server"
	"github.com/hyperjump/imi/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.orch.Initialize(ctx, cfg.Search.PrewarmOrDefault()); err != nil {
		return err
	}

	if cfg.Corpus.WatchOrDefault() {
		w := newCorpusWatcher(cfg.Corpus, eng, logger)
		if err := w.Start(ctx); err != nil {
			logger.Warn("corpus watch disabled", zap.String("path", cfg.Corpus.Path), zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	go runCleanup(ctx, eng, cfg.Cache.CleanupInterval)

	srv := server.NewServer(eng.orch, eng.corpus, &cfg.Server, logger, server.WithReloader(eng.reload))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newCorpusWatcher reloads the corpus whenever its backing file or directory changes.
func newCorpusWatcher(cfg config.CorpusConfig, eng *engine, logger *zap.Logger) *watcher.Watcher {
	var exts []string
	if cfg.Type == config.CorpusDirectory {
		exts = cfg.Extensions
	}
	return watcher.NewWatcher(cfg.Path, exts, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := eng.reload(ctx); err != nil {
			logger.Warn("corpus reload failed", zap.Error(err))
		}
	}, watcher.WithLogger(logger))
}

// runCleanup sweeps expired embeddings every interval until ctx ends.
func runCleanup(ctx context.Context, eng *engine, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.orch.CleanupExpired()
		}
	}
}
