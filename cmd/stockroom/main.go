package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockRoom/internal/auth"
	"StockRoom/internal/client"
	"StockRoom/internal/config"
	"StockRoom/internal/inventory"
	"StockRoom/pkg/kit"
)

const service = "stockroom"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           service,
		Short:         "Inventory backend for products, categories and stock metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newReportCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := kit.NewLogger(service, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			deps := inventory.HTTPDeps{
				Log:              log,
				Service:          service,
				Registry:         reg,
				MetricsEnabled:   cfg.MetricsEnabled,
				MetricsToken:     cfg.MetricsToken,
				WriteLimitPerMin: cfg.WriteRateLimit,
			}
			if cfg.AdminJWTSecret != "" {
				deps.AdminTokens = auth.NewTokenMaker(cfg.AdminJWTSecret)
			} else {
				log.Warn("ADMIN_JWT_SECRET not set, write endpoints are unauthenticated")
			}

			h := inventory.NewHandler(a.server(log), deps)
			if err := kit.RunHTTPServer(cmd.Context(), cfg.HTTPAddr, h, log, cfg.ShutdownTimeout); err != nil {
				log.Error("http server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the inventory metrics report as JSON",
		Long: "Print the inventory metrics report as JSON. With --server the report is fetched\n" +
			"from a running instance, otherwise it is computed from the configured store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := loadReport(cmd.Context(), server)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running stockroom API")
	return cmd
}

func loadReport(ctx context.Context, server string) (inventory.InventoryReport, error) {
	if server != "" {
		return client.New(server).InventoryReport(ctx)
	}

	cfg, err := config.Load()
	if err != nil {
		return inventory.InventoryReport{}, err
	}
	log, err := kit.NewLogger(service, "warn")
	if err != nil {
		return inventory.InventoryReport{}, err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return inventory.InventoryReport{}, err
	}
	defer a.close()

	return a.products.InventoryReport(ctx)
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the write endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AdminJWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}

			tok, err := auth.NewTokenMaker(cfg.AdminJWTSecret).New(subject, auth.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
