// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/file"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/postgresql"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/redis"
)

// ErrUnsupportedPersistence is returned for database URLs with an unknown scheme.
var ErrUnsupportedPersistence = errors.New("unsupported persistence provider")

// parsePersistenceProvider returns the URL scheme. A bare path means file storage.
func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return strings.ToLower(scheme)
}

// NewPersistence opens the store named by databaseURL:
// file://<dir> or a bare path, postgres:// or postgresql://, redis:// or rediss://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch provider := parsePersistenceProvider(databaseURL); provider {
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPersistence, provider)
	}
}
