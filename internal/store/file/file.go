// Package file persists goal records as a single JSON document. Every write
// rewrites the document.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/logger"
	"github.com/spigell/goal-tracker/internal/store/memory"
)

// Store is a memory store mirrored to a JSON file.
type Store struct {
	*memory.Store

	path   string
	logger *zap.Logger
}

// Open loads path, creating an empty store when the file is missing or
// empty. Every loaded row is validated.
func Open(path string, log *zap.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger.OrNop(log)}

	snap, err := readSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	s.Store = memory.New(memory.WithChangeHook(s.persist))
	s.Store.Restore(*snap)

	s.logger.Debug("file store opened",
		zap.String("path", path),
		zap.Int("goals", len(snap.Goals)),
		zap.Int("assigned_goals", len(snap.AssignedGoals)),
		zap.Int("goal_instances", len(snap.Instances)),
	)

	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) persist(snap memory.Snapshot) error {
	if err := writeSnapshot(s.path, snap); err != nil {
		s.logger.Error("failed to persist goal store", zap.String("path", s.path), zap.Error(err))
		return &goals.PersistenceError{Op: "write " + s.path, Err: err}
	}
	return nil
}

func readSnapshot(path string) (*memory.Snapshot, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &memory.Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &memory.Snapshot{}, nil
	}

	var snap memory.Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// writeSnapshot replaces path through a temporary file in the same directory
// so readers never see a half-written document.
func writeSnapshot(path string, snap memory.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func validateSnapshot(snap *memory.Snapshot) error {
	check := func(kind, id string, record any) error {
		if err := goals.Validate(record); err != nil {
			return fmt.Errorf("%s %q: %w", kind, id, err)
		}
		return nil
	}

	for _, e := range snap.Employees {
		if err := check("employee", e.ID, e); err != nil {
			return err
		}
	}
	for _, g := range snap.Goals {
		if err := check("goal", g.ID, g); err != nil {
			return err
		}
	}
	for _, a := range snap.AssignedGoals {
		if err := check("assigned goal", a.ID, a); err != nil {
			return err
		}
	}
	for _, i := range snap.Instances {
		if err := check("goal instance", i.ID, i); err != nil {
			return err
		}
	}
	for _, r := range snap.TrackingRecords {
		if err := check("tracking record", r.ID, r); err != nil {
			return err
		}
	}
	return nil
}
