package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/windmark/prism/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Int("rate-limit", 60, "allowed requests per client per window")
	serveCmd.Flags().Duration("rate-window", time.Minute, "rate limit window size")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	limit, _ := cmd.Flags().GetInt("rate-limit")
	window, _ := cmd.Flags().GetDuration("rate-window")

	// flags win; unset flags fall back to PRISM_* environment variables
	v := viper.New()
	v.SetEnvPrefix("PRISM")
	v.AutomaticEnv()
	if !cmd.Flags().Changed("addr") && v.GetString("addr") != "" {
		addr = v.GetString("addr")
	}
	if !cmd.Flags().Changed("rate-limit") && v.GetInt("rate_limit") > 0 {
		limit = v.GetInt("rate_limit")
	}
	if !cmd.Flags().Changed("rate-window") && v.GetDuration("rate_window") > 0 {
		window = v.GetDuration("rate_window")
	}

	res := api.NewResources(nil)
	defer res.Close()

	srv, err := api.New(res,
		api.WithAddr(addr),
		api.WithRateLimit(limit),
		api.WithRateWindow(window),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", slog.String("addr", addr))
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
