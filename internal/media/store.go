// Package media persists files produced by generation tools.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
)

// Mirror receives a copy of every saved file.
type Mirror interface {
	Put(ctx context.Context, dir, name string, data []byte) (string, error)
}

// Store writes media into caller-chosen directories on the local filesystem.
type Store struct {
	mirror Mirror
	log    logr.Logger
}

// NewStore returns a Store. mirror may be nil.
func NewStore(mirror Mirror, log logr.Logger) *Store {
	return &Store{mirror: mirror, log: log.WithName("media")}
}

// Save writes data to dir/name, creating dir if needed, and returns the path.
// name must be a bare file name. Mirror failures are logged and do not fail
// the save.
func (s *Store) Save(ctx context.Context, dir, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	s.log.V(1).Info("saved media", "path", path, "bytes", len(data))

	if s.mirror != nil {
		uri, err := s.mirror.Put(ctx, dir, name, data)
		if err != nil {
			s.log.Error(err, "mirroring media failed", "path", path)
		} else {
			s.log.V(1).Info("mirrored media", "path", path, "uri", uri)
		}
	}
	return path, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return apierr.Request("invalid file name %q: must not contain a path", name)
	}
	return nil
}
