package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

type ConsoleConfig struct {
	APIBaseURL string // empty runs the engine in-process
	DataDir    string
	WorldFile  string
	FrameRate  int
	LogFile    string
	Timeout    time.Duration
}

func (c *ConsoleConfig) frameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func loadConfig() (*ConsoleConfig, error) {
	frameRate, err := strconv.Atoi(getEnv("FRAME_RATE", "20"))
	if err != nil || frameRate < 1 || frameRate > 120 {
		return nil, fmt.Errorf("invalid FRAME_RATE %q: must be between 1 and 120", os.Getenv("FRAME_RATE"))
	}
	return &ConsoleConfig{
		APIBaseURL: os.Getenv("API_BASE_URL"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		WorldFile:  os.Getenv("WORLD_FILE"),
		FrameRate:  frameRate,
		LogFile:    os.Getenv("LOG_FILE"),
		Timeout:    5 * time.Second,
	}, nil
}

// newLogger logs to LOG_FILE when set. The terminal belongs to the UI.
func newLogger(cfg *ConsoleConfig) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = f.Close() }, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	d, layout, err := openDriver(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("Failed to close session", "error", err)
		}
	}()

	p := tea.NewProgram(NewConsoleUI(cfg, d, layout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func openDriver(cfg *ConsoleConfig, logger *slog.Logger) (driver, *world.Layout, error) {
	if cfg.APIBaseURL == "" {
		layout := world.Default()
		if cfg.WorldFile != "" {
			l, err := world.Load(filepath.Join(cfg.DataDir, "worlds", cfg.WorldFile))
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load world: %w", err)
			}
			layout = l
		}
		sess := engine.NewSession(nil, logger)
		layout.Apply(sess.State)
		logger.Info("Playing locally", "world", layout.Name)
		return newLocalDriver(sess), layout, nil
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if !testConnection(client, cfg.APIBaseURL) {
		return nil, nil, fmt.Errorf("could not connect to API at %s. Please ensure the API is running", cfg.APIBaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	layout := world.Default()
	if cfg.WorldFile != "" {
		l, err := getWorld(ctx, client, cfg.APIBaseURL, cfg.WorldFile)
		if err != nil {
			return nil, nil, fmt.Errorf("world %s is not available on the server: %w", cfg.WorldFile, err)
		}
		layout = l
	}

	d, err := newRemoteDriver(ctx, client, cfg.APIBaseURL, cfg.WorldFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Playing against API", "base_url", cfg.APIBaseURL, "session_id", d.id)
	return d, layout, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
