package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"autotrader/src/model"
)

// ErrNoState is returned by Load when nothing has been persisted yet.
var ErrNoState = errors.New("no persisted ledger state")

// Store persists the whole position map.
type Store interface {
	Load() (map[string]model.Position, error)
	Save(positions map[string]model.Position) error
}

// FileStore keeps the map as one JSON document, replaced atomically on
// every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is the ledger file inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "trade_status.json")
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (map[string]model.Position, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	out := map[string]model.Position{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return out, nil
}

func (s *FileStore) Save(positions map[string]model.Position) error {
	raw, err := json.MarshalIndent(positions, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".trade_status-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore keeps the last saved map in memory. Used by one-shot CLI
// commands and tests.
type MemoryStore struct {
	Saved   map[string]model.Position
	Saves   int
	SaveErr error
}

func (m *MemoryStore) Load() (map[string]model.Position, error) {
	if m.Saved == nil {
		return nil, ErrNoState
	}
	return copyPositions(m.Saved), nil
}

func (m *MemoryStore) Save(positions map[string]model.Position) error {
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = copyPositions(positions)
	return nil
}

func copyPositions(in map[string]model.Position) map[string]model.Position {
	out := make(map[string]model.Position, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
