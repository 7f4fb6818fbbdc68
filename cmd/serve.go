package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/ineqdash/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveNoChat bool
	serveQuiet  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		// Load once up front; a broken source only disables its own endpoints.
		for _, name := range store.Catalog().Names() {
			e, err := store.Load(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
				continue
			}
			fmt.Printf("✓ Loaded %s (%d records)\n", name, len(e.Table.Records))
		}

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		opts := server.Options{Addr: addr, ChatOptions: chatOptions(), Quiet: serveQuiet}
		if !serveNoChat {
			if cfg.APIKey == "" {
				fmt.Fprintln(os.Stderr, "⚠ Warning: no API key configured; /api/chat will report a missing key")
			}
			opts.Chat = chatRuntime()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewServer(store, opts).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: listen_addr from config)")
	serveCmd.Flags().BoolVar(&serveNoChat, "no-chat", false, "disable the assistant endpoint")
	serveCmd.Flags().BoolVar(&serveQuiet, "quiet", false, "disable request logging")
}
