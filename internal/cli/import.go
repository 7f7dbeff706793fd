package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/corpus"
	"github.com/hyperjump/imi/internal/storage"
	"github.com/spf13/cobra"
)

var importDB string

var importCmd = &cobra.Command{
	Use:   "import <items.yaml|items.json>",
	Short: "Import items from a YAML or JSON file into the SQLite corpus",
	Long: `Import items into the SQLite corpus, replacing items with the same ID.

The database is --db, or corpus.path when the configured corpus type is sqlite.
A running server picks up the change through its corpus watcher.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := resolveDB()
		if err != nil {
			return err
		}
		items, err := corpus.FileLoader{Path: args[0]}.Load(cmd.Context())
		if err != nil {
			return err
		}
		total, err := withStore(cmd.Context(), db, func(ctx context.Context, store storage.ItemStore) error {
			return store.PutItems(ctx, items...)
		})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items into %s (%d total)\n", len(items), db, total)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete items by ID from the SQLite corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := resolveDB()
		if err != nil {
			return err
		}
		var missing []string
		total, err := withStore(cmd.Context(), db, func(ctx context.Context, store storage.ItemStore) error {
			for _, id := range args {
				err := store.DeleteItem(ctx, id)
				if errors.Is(err, storage.ErrNotFound) {
					missing = append(missing, id)
					continue
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		for _, id := range missing {
			warnColor.Fprintf(cmd.ErrOrStderr(), "not found: %s\n", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items from %s (%d remaining)\n", len(args)-len(missing), db, total)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path")
	deleteCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path")
}

// resolveDB returns --db, or corpus.path when the configured corpus is SQLite.
func resolveDB() (string, error) {
	if importDB != "" {
		return importDB, nil
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return "", err
	}
	if cfg.Corpus.Type != config.CorpusSQLite {
		return "", errors.New("no --db given and corpus.type is not sqlite")
	}
	return cfg.Corpus.Path, nil
}

// withStore opens the database at db, runs fn and returns the item count afterwards.
func withStore(ctx context.Context, db string, fn func(context.Context, storage.ItemStore) error) (int64, error) {
	store, err := storage.NewSQLiteStorage(db)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if err := fn(ctx, store); err != nil {
		return 0, err
	}
	return store.CountItems(ctx)
}
