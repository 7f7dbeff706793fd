package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/imi/internal/embedcache"
	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/search"
	"github.com/hyperjump/imi/internal/server"
	"github.com/hyperjump/imi/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

var (
	rankColor  = color.New(color.FgCyan, color.Bold)
	scoreColor = color.New(color.FgGreen)
	dimColor   = color.New(color.Faint)
	warnColor  = color.New(color.FgYellow)
)

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.Score, r.Item.ID, utils.OneLine(r.Item.Title))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintln(w, dimColor.Sprint("─────────────────────────────────────────────────────────"))
		fmt.Fprintf(w, "%s  score %s  %s\n",
			rankColor.Sprintf("#%d", r.Rank), scoreColor.Sprintf("%.4f", r.Score), dimColor.Sprint(r.Item.ID))
		if r.Item.Title != "" {
			fmt.Fprintf(w, "%s\n", r.Item.Title)
		}
		if r.Item.Description != "" {
			fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(r.Item.Description), 200))
		}
		if len(r.Item.Tags) > 0 {
			fmt.Fprintf(w, "%s\n", dimColor.Sprint("tags: "+strings.Join(r.Item.Tags, ", ")))
		}
		fmt.Fprintln(w)
	}
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	state := scoreColor.Sprint(st.State)
	if st.State != search.StateReady {
		state = warnColor.Sprint(st.State)
	}
	fmt.Fprintf(w, "State:  %s\n", state)
	fmt.Fprintf(w, "Items:  %d\n", st.ItemCount)
	writeCacheStats(w, "Item cache", st.Items)
	writeCacheStats(w, "Query cache", st.Queries)
	if st.Notice != nil {
		fmt.Fprintf(w, "Notice: %s %s\n", warnColor.Sprint(st.Notice.Kind), st.Notice.Message)
	}
	return nil
}

func writeCacheStats(w io.Writer, name string, s embedcache.Stats) {
	fmt.Fprintf(w, "%-12s %d entries, %d hits, %d misses (%.1f%% hit rate), %d evicted, %d expired\n",
		name+":", s.Entries, s.Hits, s.Misses, s.HitRate*100, s.Evictions, s.Expirations)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
