package main

import (
	"fmt"

	"github.com/sifan077/TinyLink/internal/infra/logger"
	"github.com/sifan077/TinyLink/internal/logforward"
	"github.com/spf13/cobra"
)

var entry logforward.Entry

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single log entry",
	Example: `  logshim send --stack backend --level error --package handler --message "received string, expected bool"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()
		defer func() { _ = logger.Sync() }()

		resp, err := newClient(cfg.LogForward, log).Send(cmd.Context(), entry)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(resp))
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&entry.Stack, "stack", "", "backend or frontend")
	sendCmd.Flags().StringVar(&entry.Level, "level", "info", "debug, info, warn, error or fatal")
	sendCmd.Flags().StringVar(&entry.Package, "package", "", "package name valid for the stack")
	sendCmd.Flags().StringVarP(&entry.Message, "message", "m", "", "log message")
	_ = sendCmd.MarkFlagRequired("stack")
	_ = sendCmd.MarkFlagRequired("package")
	rootCmd.AddCommand(sendCmd)
}
