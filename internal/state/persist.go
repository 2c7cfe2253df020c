package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Persister is the external key-value backend the store writes bound
// keys through to. Implementations must tolerate unknown keys.
type Persister interface {
	// Fetch returns the stored value for key, and whether it exists.
	Fetch(key string) (any, bool, error)

	// Store writes the value for key.
	Store(key string, value any) error
}

// FilePersister persists values to a single TOML file.
// It is safe for concurrent use.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister creates a persister backed by the TOML file at path.
// The file is created on first Store.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Fetch returns the value stored for key, if any.
func (p *FilePersister) Fetch(key string) (any, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Store writes the value for key, rewriting the backing file.
func (p *FilePersister) Store(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.read()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal state file: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// read loads the backing file. A missing file is an empty map.
func (p *FilePersister) read() (map[string]any, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	values := make(map[string]any)
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", p.path, err)
	}
	return values, nil
}
