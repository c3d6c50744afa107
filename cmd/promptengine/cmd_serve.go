package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/server"
	"github.com/user/promptengine/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "listen address (overrides http.listen)")
	serveCmd.Flags().Bool("no-telegram", false, "do not start the Telegram front end")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the studio HTTP API and the Telegram front end",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.HTTP.Listen = listen
	}
	noTelegram, _ := cmd.Flags().GetBool("no-telegram")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	h := history.NewStore(backend)

	// The API is the collaborator itself, so it always runs the engine in
	// process regardless of studio.endpoint.
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	srv := server.New(e, e, server.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		History:        h,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.HTTP.Listen)
	})

	switch {
	case noTelegram:
	case cfg.Telegram.Token == "":
		slog.Warn("telegram front end disabled (no token)")
	default:
		adapter, err := telegram.New(cfg.Telegram.Token, e, e, h)
		if err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		g.Go(func() error {
			adapter.Start(gctx)
			return nil
		})
	}

	slog.Info("promptengine started",
		"data_dir", cfg.DataDir,
		"storage", cfg.Storage.Backend,
		"listen", cfg.HTTP.Listen,
		"demo", e.Demo(),
		"generate_model", cfg.LLM.GenerateModel,
		"test_model", cfg.LLM.TestModel,
	)

	err = g.Wait()
	slog.Info("shutting down")
	return err
}
