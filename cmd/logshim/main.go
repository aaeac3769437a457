package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sifan077/TinyLink/config"
	"github.com/sifan077/TinyLink/internal/infra/logger"
	"github.com/sifan077/TinyLink/internal/logforward"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	endpoint string
	token    string
)

var rootCmd = &cobra.Command{
	Use:   "logshim",
	Short: "Forward structured log entries to the evaluation log service",
	Long: `logshim validates log entries (stack, level, package, message) and forwards
them to a remote log service with a bearer token.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "remote log endpoint (overrides config)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (overrides LOG_AUTH_TOKEN)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func newLogger() *zap.Logger {
	return logger.MustInit(logger.Config{
		Development: os.Getenv("APP_ENV") != "production",
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "logshim",
	})
}

func newClient(cfg config.LogForwardConfig, log *zap.Logger) *logforward.Client {
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if token != "" {
		cfg.Token = token
	}
	return logforward.NewClient(logforward.ClientConfig{
		Endpoint: cfg.Endpoint,
		Token:    cfg.Token,
		Timeout:  cfg.Timeout,
		Logger:   log,
	})
}
