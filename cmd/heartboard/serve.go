package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/joho/godotenv"
	"github.com/jpalmerr/heartboard"
	"github.com/jpalmerr/heartboard/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	defaultEnvFile  = ".env"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the Heartboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the heart-rate server",
	Long: `Start the Heartboard server.

The server will:
  - Load variables from a .env file if one exists
  - Load configuration from the YAML file, if given
  - Start polling all configured sources
  - Serve the API and landing page on the configured address

The server runs until interrupted (Ctrl+C) or receives SIGTERM. All
readings are held in memory and lost on exit.

Example:
  heartboard serve
  heartboard serve -c heartboard.yaml --open
  heartboard serve --port 3000 --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().String("env-file", defaultEnvFile, "dotenv file loaded before the config")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port, overrides the config file")
	serveCmd.Flags().String("log-level", "", "debug, info, warn or error (overrides log_level)")
	serveCmd.Flags().Bool("open", false, "open the landing page in a browser once listening")
}

func runServe(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg := config.Default()
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	level := cfg.SlogLevel()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		parsed, err := config.ParseLogLevel(lvl)
		if err != nil {
			return err
		}
		level = parsed
	}
	logger := newLogger(level)

	logger.Info("config loaded",
		"sources", len(cfg.Sources),
		"history_limit", cfg.HistoryLimit,
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}

	hb, err := heartboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create Heartboard: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- hb.Start(ctx)
	}()

	if open, _ := cmd.Flags().GetBool("open"); open {
		go openWhenListening(ctx, hb, logger)
	}

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// loadEnvFile loads a dotenv file into the process environment. A missing
// file is only an error when the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

// openWhenListening opens the landing page once the server has bound.
func openWhenListening(ctx context.Context, hb *heartboard.Heartboard, logger *slog.Logger) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for hb.Addr() == nil {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	url := dashboardURL(hb.Addr())
	if err := browser.OpenURL(url); err != nil {
		logger.Warn("failed to open browser", "url", url, "error", err.Error())
	}
}

// dashboardURL turns a listen address into a browsable URL. Wildcard
// addresses are replaced with localhost.
func dashboardURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
