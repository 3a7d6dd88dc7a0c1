package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/bringup/internal/domain"
)

const statusFileName = "probe-status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Status{}, nil
		}
		return domain.Status{}, err
	}

	var st domain.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.Status{}, err
	}
	return st, nil
}

// Save persists the status atomically: it writes a temp file then renames it.
func (r *StatusFileRepository) Save(ctx context.Context, st domain.Status) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
