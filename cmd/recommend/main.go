// Command recommend answers title-similarity queries offline from a CSV
// catalog, without starting the service.
//
//	recommend similar --csv data/Spotify_Youtube.csv --title "Feel Good Inc." -k 10
//	recommend titles --csv data/Spotify_Youtube.csv -q "feel good"
//	recommend model --csv data/Spotify_Youtube.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/model"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/refresh"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/logger"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	csvPath    string
	column     string
	minDF      int
	maxItems   int
	logLevel   string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "recommend",
		Short:         "Recommend similar song titles from a catalog export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file path (defaults are used when empty)")
	pf.StringVar(&opts.csvPath, "csv", "", "Catalog CSV file (overrides config)")
	pf.StringVar(&opts.column, "column", "", "CSV column holding titles (overrides config)")
	pf.IntVar(&opts.minDF, "min-df", 0, "Minimum document frequency (overrides config)")
	pf.IntVar(&opts.maxItems, "max-items", -1, "Catalog size cap, 0 for no cap (overrides config)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	var (
		title string
		k     int
	)
	similarCmd := &cobra.Command{
		Use:   "similar",
		Short: "List the titles most similar to --title",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !snap.Contains(title) {
				return fmt.Errorf("%q is not in the catalog; try `recommend titles -q`", title)
			}
			recs, err := snap.Recommend(title, k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recommendations for %q:\n", title)
			for i, r := range recs {
				fmt.Fprintf(out, "%d. %s (%.1f%%)\n", i+1, r.Title, r.Score*100)
			}
			return nil
		},
	}
	similarCmd.Flags().StringVar(&title, "title", "", "Title to find neighbours for")
	similarCmd.Flags().IntVarP(&k, "k", "k", 10, "Number of recommendations")
	_ = similarCmd.MarkFlagRequired("title")

	var (
		q     string
		limit int
	)
	titlesCmd := &cobra.Command{
		Use:   "titles",
		Short: "Search catalog titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, t := range catalog.Search(snap.Corpus, q, limit) {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	titlesCmd.Flags().StringVarP(&q, "query", "q", "", "Case-insensitive substring to match")
	titlesCmd.Flags().IntVar(&limit, "limit", 20, "Maximum titles to print, 0 for all")

	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Build the model and print its statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Stats())
		},
	}

	rootCmd.AddCommand(similarCmd, titlesCmd, modelCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// load builds a snapshot from the CSV catalog the same way the service does.
func load(ctx context.Context, opts options) (*model.Snapshot, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.csvPath != "" {
		cfg.Catalog.Path = opts.csvPath
	}
	if opts.column != "" {
		cfg.Catalog.Column = opts.column
	}
	if opts.minDF > 0 {
		cfg.Model.MinDF = opts.minDF
	}
	if opts.maxItems >= 0 {
		cfg.Catalog.MaxItems = opts.maxItems
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(logger.New(os.Stderr, opts.logLevel, "text"))

	builder, err := model.NewBuilder(model.BuilderConfig{
		Options: vectorizer.Options{
			MinDF:       cfg.Model.MinDF,
			MaxFeatures: cfg.Model.MaxFeatures,
			NgramMin:    cfg.Model.NgramMin,
			NgramMax:    cfg.Model.NgramMax,
		},
		CacheSize: 1,
		Tracing:   cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, err
	}
	store := model.NewStore(builder, nil)
	source := catalog.NewCSVSource(cfg.Catalog.Path, cfg.Catalog.Column)
	res, err := refresh.New(source, store, cfg.Catalog).Reload(ctx)
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}
