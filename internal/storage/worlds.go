package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/internal/logger"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

// ErrWorldNotFound is returned by GetWorld for an unknown file.
var ErrWorldNotFound = errors.New("world not found")

// worldFiles serves world layouts from <dataDir>/worlds.
type worldFiles struct {
	dataDir string
	logger  *slog.Logger
}

// sessionLog scopes the store's logger to one session.
func (w worldFiles) sessionLog(id uuid.UUID) *slog.Logger {
	return logger.WithSession(w.logger, id.String())
}

func (w worldFiles) dir() string {
	return filepath.Join(w.dataDir, "worlds")
}

// ListWorlds maps each valid layout's name to its file name.
func (w worldFiles) ListWorlds(ctx context.Context) (map[string]string, error) {
	worlds := make(map[string]string)

	err := filepath.WalkDir(w.dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		l, err := world.Load(path)
		if err != nil {
			w.logger.Warn("Skipping invalid world file", "path", path, "error", err)
			return nil
		}

		worlds[l.Name] = filepath.Base(path)
		return nil
	})
	if err != nil {
		w.logger.Error("Failed to walk worlds directory", "error", err)
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}

	return worlds, nil
}

// GetWorld loads a layout by file name. Names that try to leave the worlds
// directory are treated as unknown.
func (w worldFiles) GetWorld(ctx context.Context, filename string) (*world.Layout, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, fmt.Errorf("%w: %q", ErrWorldNotFound, filename)
	}
	if filepath.Ext(filename) != ".json" {
		filename += ".json"
	}

	path := filepath.Join(w.dir(), filename)
	w.logger.Debug("Loading world", "filename", filename, "full_path", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, filename)
		}
		return nil, fmt.Errorf("failed to stat world file: %w", err)
	}

	l, err := world.Load(path)
	if err != nil {
		return nil, err
	}
	l.FileName = filename
	return l, nil
}
