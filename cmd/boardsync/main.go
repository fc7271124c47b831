// Package main provides the boardsync binary entry point.
// Boardsync is a collaborative kanban client: it keeps project and task
// collections converged across REST mutations and push events, and
// renders them as a CLI and an interactive terminal board.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/commands"
	"github.com/boardsync/boardsync/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "boardsync"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Collaborative kanban board client",
		Long: `Boardsync is a collaborative kanban board client.

It keeps your project and task collections in sync with the board
server and with other clients: every confirmed mutation is broadcast,
and incoming events merge idempotently so duplicate or out-of-order
delivery never corrupts local state.

Run without a subcommand to open the interactive board.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.NewBoardCmd().RunE(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(commands.NewProjectsCmd())
	cmd.AddCommand(commands.NewTasksCmd())
	cmd.AddCommand(commands.NewBoardCmd())
	cmd.AddCommand(commands.NewWatchCmd())
	cmd.AddCommand(configCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default user config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(slog.Default()).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(slog.Default()).Load()
			if err != nil {
				return err
			}
			cmd.Printf("api.base_url: %s\n", cfg.API.BaseURL)
			cmd.Printf("api.timeout: %s\n", cfg.API.Timeout)
			cmd.Printf("nats.url: %s\n", cfg.NATS.URL)
			cmd.Printf("nats.embedded: %t\n", cfg.NATS.Embedded)
			cmd.Printf("session.token_path: %s\n", cfg.Session.TokenPath)
			cmd.Printf("cache.path: %s\n", cfg.Cache.Path)
			cmd.Printf("cache.enabled: %t\n", cfg.Cache.Enabled)
			cmd.Printf("client.name: %s\n", cfg.Client.Name)
			cmd.Printf("client.search_debounce: %s\n", cfg.Client.SearchDebounce)
			return nil
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
