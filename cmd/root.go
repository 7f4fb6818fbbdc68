package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/ineqdash/internal/ai"
	"github.com/KaramelBytes/ineqdash/internal/catalog"
	cfgpkg "github.com/KaramelBytes/ineqdash/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagDataDir string
	flagCatalog string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "ineqdash",
	Short: "ineqdash: inequality indicators reshaped, filtered and compared",
	Long: `ineqdash loads Gini, poverty headcount, World Bank indicator and WIID quintile
tables, reshapes them into long form and serves filters, metric deltas,
inequality ratios and choropleth slices from the CLI or a JSON dashboard API.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ineqdash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding the source tables (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "datasets", "", "YAML dataset catalogue (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{DataDir: "data"}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if f.Changed("datasets") {
		cfg.DatasetsFile = flagCatalog
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}

// openStore builds the load-once store from the configured catalogue.
func openStore() (*catalog.Store, error) {
	cat, err := catalog.Load(cfg.DatasetsFile)
	if err != nil {
		return nil, err
	}
	if debug {
		fmt.Fprintf(os.Stderr, "[debug] data dir %s, %d datasets\n", cfg.DataDir, len(cat.Datasets))
	}
	return catalog.NewStore(cat, cfg.DataDir), nil
}

// loadEntry opens the store and loads one dataset.
func loadEntry(name string) (*catalog.Entry, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	e, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	if debug {
		st := e.Stats
		fmt.Fprintf(os.Stderr, "[debug] %s: %d rows, %d year columns, %d cells (%d missing, %d dropped, %d invalid)\n",
			name, st.Rows, st.YearColumns, st.Cells, st.Missing, st.Dropped, st.Invalid)
	}
	return e, nil
}

// chatRuntime builds the assistant backend from config.
func chatRuntime() ai.Runtime {
	rt, _ := ai.GetRuntime(ai.ProviderOpenAI, ai.RuntimeConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.ChatBaseURL,
	})
	return rt
}

func chatOptions() ai.ConversationOptions {
	return ai.ConversationOptions{
		Model:         cfg.ChatModel,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		HistoryBudget: cfg.HistoryTokenBudget,
	}
}
