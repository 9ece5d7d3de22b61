// Package filestore keeps the lottery state in a single JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/susu3304/lotterybot/internal/lottery"
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Save writes the document to a temporary file next to the target and
// renames it into place.
func (s *Store) Save(ctx context.Context, snap *lottery.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode lottery state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write lottery state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync lottery state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Load reads the document. A missing file yields lottery.ErrNoSnapshot. A
// document that fails to decode is renamed to <path>.corrupt-<timestamp> so the
// next Save cannot overwrite it.
func (s *Store) Load(ctx context.Context) (*lottery.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lottery.ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var snap lottery.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405"))
		if rerr := os.Rename(s.path, aside); rerr != nil {
			return nil, fmt.Errorf("failed to decode %s: %w (keeping file: %v)", s.path, err, rerr)
		}
		return nil, fmt.Errorf("failed to decode %s, moved to %s: %w", s.path, aside, err)
	}
	if snap.Activities == nil {
		snap.Activities = make(map[string]lottery.ActivitySnapshot)
	}
	return &snap, nil
}
