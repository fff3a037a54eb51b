package schemagraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/search"
	"github.com/soundprediction/schemagraph/pkg/server/dto"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Run one schema search and print the result",
	Long: `Run the multi-level retrieval pipeline once and print the result.

Output formats:
- json: the full structured result
- yaml: the same result as YAML
- context: the prompt-ready text block handed to a language model`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var searchOpts struct {
	database        string
	domain          string
	intent          string
	entities        []string
	businessTerms   []string
	columnHints     []string
	topK            int
	threshold       float64
	includePatterns bool
	noContext       bool
	skipVector      bool
	format          string
	ensureASCII     bool
}

func init() {
	rootCmd.AddCommand(searchCmd)

	f := searchCmd.Flags()
	f.StringVar(&searchOpts.database, "database", "", "Restrict results to one database")
	f.StringVar(&searchOpts.domain, "domain", "", "Business domain hint")
	f.StringVar(&searchOpts.intent, "intent", "", "Query intent (knowledge_lookup, relationship_discovery, ...)")
	f.StringSliceVar(&searchOpts.entities, "entity", nil, "Entity hint, repeatable")
	f.StringSliceVar(&searchOpts.businessTerms, "term", nil, "Business term hint, repeatable")
	f.StringSliceVar(&searchOpts.columnHints, "column", nil, "Column hint, repeatable")
	f.IntVar(&searchOpts.topK, "top-k", 0, "Maximum results (default from config)")
	f.Float64Var(&searchOpts.threshold, "threshold", 0, "Vector similarity threshold (default from config)")
	f.BoolVar(&searchOpts.includePatterns, "patterns", false, "Include query patterns")
	f.BoolVar(&searchOpts.noContext, "no-context", false, "Skip table context hydration")
	f.BoolVar(&searchOpts.skipVector, "skip-vector", false, "Skip the vector level")
	f.StringVarP(&searchOpts.format, "output", "o", "json", "Output format (json, yaml, context)")
	f.BoolVar(&searchOpts.ensureASCII, "ascii", false, "Escape non-ASCII characters in context output")
	addStoreFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := searchRequest(strings.Join(args, " "))
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateStoreConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize schemagraph: %w", err)
	}
	defer a.Close(ctx)

	result, err := a.client.Retrieve(ctx, req.Query, req.Hints())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return writeResult(cmd.OutOrStdout(), result, searchOpts.format, searchOpts.ensureASCII)
}

func searchRequest(query string) dto.SearchRequest {
	req := dto.SearchRequest{
		Query:           query,
		Database:        searchOpts.database,
		Domain:          searchOpts.domain,
		Intent:          searchOpts.intent,
		Entities:        searchOpts.entities,
		BusinessTerms:   searchOpts.businessTerms,
		ColumnHints:     searchOpts.columnHints,
		TopK:            searchOpts.topK,
		Threshold:       searchOpts.threshold,
		IncludePatterns: searchOpts.includePatterns,
		SkipVector:      searchOpts.skipVector,
	}
	if searchOpts.noContext {
		off := false
		req.IncludeContext = &off
	}
	return req
}

// writeResult prints result in the requested format.
func writeResult(w io.Writer, result *types.SchemaSearchResult, format string, ensureASCII bool) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "context":
		text, err := search.ResultToContextString(result, ensureASCII)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
