package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxrank/internal/indexer"
	"github.com/dshills/ctxrank/internal/relevance"
)

// previewRunes bounds the chunk preview printed under each result
const previewRunes = 160

type outputOptions struct {
	limit int
	json  bool
	full  bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 10, "maximum number of files (0 for all)")
	cmd.Flags().BoolVar(&o.json, "json", false, "output results as JSON")
	cmd.Flags().BoolVar(&o.full, "full", false, "print every matching chunk in full")
}

type jsonResult struct {
	Rank   int      `json:"rank"`
	Path   string   `json:"path"`
	Score  float64  `json:"score"`
	Chunks []string `json:"chunks"`
}

type jsonResponse struct {
	Status  string       `json:"status"`
	Results []jsonResult `json:"results"`
}

func printResponse(cmd *cobra.Command, resp *relevance.Response, opts outputOptions) error {
	results := resp.Results
	if opts.limit > 0 && len(results) > opts.limit {
		results = results[:opts.limit]
	}
	out := cmd.OutOrStdout()

	if opts.json {
		payload := jsonResponse{Status: resp.Status, Results: make([]jsonResult, len(results))}
		for i, r := range results {
			payload.Results[i] = jsonResult{Rank: i + 1, Path: r.Path, Score: r.Score, Chunks: r.Chunks}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, resp.Status)
	if len(results) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	for i, r := range results {
		fmt.Fprintf(out, "  [%d] %s (%.3f)\n", i+1, r.Path, r.Score)
		for _, chunk := range r.Chunks {
			if opts.full {
				fmt.Fprintln(out, indent(chunk, "      "))
				continue
			}
			fmt.Fprintf(out, "      %s\n", preview(chunk, previewRunes))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printStatistics(cmd *cobra.Command, stats *indexer.Statistics) {
	out := cmd.OutOrStdout()

	switch stats.Status {
	case indexer.StatusCancelled:
		fmt.Fprintln(out, "Indexing cancelled")
	default:
		fmt.Fprintln(out, "Indexing complete")
	}
	fmt.Fprintf(out, "  Documents indexed: %d\n", stats.DocumentsIndexed)
	fmt.Fprintf(out, "  Documents skipped: %d\n", stats.DocumentsSkipped)
	fmt.Fprintf(out, "  Chunks:            %d (%d embedded, %d cached)\n", stats.ChunksTotal, stats.ChunksEmbedded, stats.CacheHits)
	if stats.BatchesFailed > 0 {
		fmt.Fprintf(out, "  Failed batches:    %d\n", stats.BatchesFailed)
	}
	if stats.EntriesPruned > 0 {
		fmt.Fprintf(out, "  Entries pruned:    %d\n", stats.EntriesPruned)
	}
	fmt.Fprintf(out, "  Duration:          %s\n", stats.Duration.Round(time.Millisecond))

	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  ! %s\n", msg)
	}
}

// preview collapses whitespace and truncates to limit runes
func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
