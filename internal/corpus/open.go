package corpus

import (
	"fmt"

	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/extract"
	"github.com/hyperjump/imi/internal/storage"
	"go.uber.org/zap"
)

// Open builds an empty corpus for cfg.Type. The caller calls Reload and eventually Close.
func Open(cfg config.CorpusConfig, logger *zap.Logger) (*Corpus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("corpus", cfg.Type), zap.String("path", cfg.Path))

	switch cfg.Type {
	case config.CorpusFile:
		return New(FileLoader{Path: cfg.Path}, WithLogger(logger)), nil
	case config.CorpusDirectory:
		return New(DirectoryLoader{
			Root:       cfg.Path,
			Extensions: cfg.Extensions,
			Extractor:  extract.NewExtractor(0),
			Logger:     logger,
		}, WithLogger(logger)), nil
	case config.CorpusSQLite:
		store, err := storage.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return New(StoreLoader{Store: store}, WithLogger(logger), WithCloser(store)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, cfg.Type)
	}
}
