package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/TinyLink/internal/http/middleware"
	"github.com/sifan077/TinyLink/internal/infra/logger"
	"github.com/sifan077/TinyLink/internal/logforward"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the POST /log endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()
		defer func() { _ = logger.Sync() }()

		port := cfg.LogForward.Port
		if servePort > 0 {
			port = servePort
		}

		app := fiber.New(fiber.Config{AppName: "logshim", Immutable: true, DisableStartupMessage: true})
		app.Use(middleware.Recovery(log))
		app.Use(middleware.RequestID())
		app.Use(middleware.Logger(log))
		app.Use(middleware.CORS())
		logforward.NewHandler(newClient(cfg.LogForward, log), log).Register(app)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := ":" + strconv.Itoa(port)
		served := make(chan error, 1)
		go func() {
			log.Info("Starting log shim", zap.String("addr", addr))
			served <- app.Listen(addr)
		}()

		select {
		case err := <-served:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return <-served
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
