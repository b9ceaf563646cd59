package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DiskStore writes RunResult as JSON files to a directory that is created
// lazily on the first Save.
type DiskStore struct {
	fs  afero.Fs
	dir string

	mu    sync.Mutex
	ready bool
}

// NewDiskStore creates a DiskStore rooted at dir on fs.
func NewDiskStore(fs afero.Fs, dir string) *DiskStore {
	return &DiskStore{fs: fs, dir: dir}
}

// Save writes a RunResult as a JSON file to disk.
func (s *DiskStore) Save(_ context.Context, result *RunResult) error {
	if err := validID(result.ID); err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling result %s: %w", result.ID, err)
	}
	if err := afero.WriteFile(s.fs, s.path(result.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", result.ID, err)
	}
	return nil
}

// Load reads a RunResult from disk.
func (s *DiskStore) Load(_ context.Context, runID string) (*RunResult, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("reading result %s: %w", runID, err)
	}
	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling result %s: %w", runID, err)
	}
	return &result, nil
}

func (s *DiskStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

func (s *DiskStore) ensureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}
	s.ready = true
	return nil
}
