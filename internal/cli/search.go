package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchOpts struct {
	serverURL string
	limit     int
	output    string
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus",
	Long: `Search the corpus for items similar to the query.

The query is all arguments joined by spaces, so quoting is optional.
With --server set to "", the corpus is loaded and embedded in-process
instead of asking a running server.`,
	Example: `  imi search machine learning
  imi search --limit 3 "quarterly report"
  imi search --server "" --output json invoices`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.serverURL, "server", "http://localhost:8080", `server URL ("" = search in-process)`)
	f.IntVar(&searchOpts.limit, "limit", 10, "number of results (0 = server maximum)")
	f.StringVarP(&searchOpts.output, "output", "o", "text", "output format: text, compact, or json")
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(searchOpts.output)
	if err != nil {
		return err
	}
	query := &models.SearchQuery{Query: buildSearchQuery(args), Limit: searchOpts.limit}
	if err := query.Validate(); err != nil {
		return err
	}

	var response *models.SearchResponse
	if searchOpts.serverURL != "" {
		response, err = searchViaHTTP(cmd.Context(), searchOpts.serverURL, query)
	} else {
		var (
			cfg    *config.Config
			logger *zap.Logger
		)
		cfg, logger, err = setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		response, err = searchDirect(cmd.Context(), cfg, logger, query)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return WriteSearchResults(cmd.OutOrStdout(), response, format)
}

// searchDirect answers one query without a server. Items are embedded on demand.
func searchDirect(ctx context.Context, cfg *config.Config, logger *zap.Logger, query *models.SearchQuery) (*models.SearchResponse, error) {
	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if err := eng.orch.Initialize(ctx, false); err != nil {
		return nil, err
	}
	start := time.Now()
	ranked, err := eng.orch.Search(ctx, query.Query)
	if err != nil {
		return nil, err
	}
	if n, ok := eng.orch.Notifier().Last(); ok {
		logger.Warn(n.Message, zap.String("kind", string(n.Kind)))
	}
	resp := server.NewSearchResponse(*query, ranked, time.Since(start))
	return &resp, nil
}

var statusOpts struct {
	serverURL string
	output    string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server state and cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := ParseOutputFormat(statusOpts.output)
		if err != nil {
			return err
		}
		st, err := statusViaHTTP(cmd.Context(), statusOpts.serverURL)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		return WriteStatus(cmd.OutOrStdout(), st, format)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusOpts.serverURL, "server", "http://localhost:8080", "server URL")
	statusCmd.Flags().StringVarP(&statusOpts.output, "output", "o", "text", "output format: text or json")
}
