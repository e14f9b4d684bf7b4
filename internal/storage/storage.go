package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = time.Hour

// Storage combines live-session storage (Redis or memory) with world
// layouts loaded from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations. LoadSession returns nil, nil when the session does
	// not exist or has expired.
	SaveSession(ctx context.Context, id uuid.UUID, s *engine.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// World operations (filesystem-backed)
	ListWorlds(ctx context.Context) (map[string]string, error)
	GetWorld(ctx context.Context, filename string) (*world.Layout, error)
}
