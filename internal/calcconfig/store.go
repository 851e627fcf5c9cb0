package calcconfig

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
)

// ErrNotFound is returned when a version (or a default for an algorithm) does
// not exist in the store.
var ErrNotFound = errors.New("calculation config not found")

// Store is the versioned configuration store. Configs are immutable once
// created: Update produces a new version and leaves the old one untouched.
type Store interface {
	// Create validates the config, assigns a fresh version and timestamps,
	// and persists it. Returns the assigned version.
	Create(ctx context.Context, cfg *contracts.CalculationConfig) (string, error)

	// Get retrieves one version.
	Get(ctx context.Context, version string) (*contracts.CalculationConfig, error)

	// Update clones the named version, applies the edit, and persists the
	// clone under a new version. The original is never mutated.
	Update(ctx context.Context, version string, apply func(*contracts.CalculationConfig)) (string, error)

	// Delete removes one version.
	Delete(ctx context.Context, version string) error

	// List returns stored configs, newest first. With activeOnly set,
	// inactive configs are filtered out.
	List(ctx context.Context, activeOnly bool) ([]*contracts.CalculationConfig, error)

	// SetDefault marks a version as its algorithm's default, clearing the
	// prior default for that algorithm type first.
	SetDefault(ctx context.Context, version string) error

	// GetDefault returns the stored default for an algorithm type, or
	// ErrNotFound when none is marked.
	GetDefault(ctx context.Context, algorithm contracts.AlgorithmType) (*contracts.CalculationConfig, error)
}

// newVersion builds the "{algorithm}_v{timestamp}" version key.
func newVersion(algorithm contracts.AlgorithmType, at time.Time) string {
	return fmt.Sprintf("%s_v%d", algorithm, at.UnixMilli())
}

// MemoryStore is the in-process Store used when no persistence collaborator
// is attached. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*contracts.CalculationConfig
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory config store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]*contracts.CalculationConfig),
		now:     time.Now,
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, cfg *contracts.CalculationConfig) (string, error) {
	if err := Validate(cfg); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := cfg.Clone()
	stored.Version = newVersion(cfg.Algorithm, now)
	// Same-millisecond creates for one algorithm bump until the key is free.
	for bump := int64(1); ; bump++ {
		if _, exists := s.configs[stored.Version]; !exists {
			break
		}
		stored.Version = newVersion(cfg.Algorithm, now.Add(time.Duration(bump)*time.Millisecond))
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.IsActive = true

	if stored.IsDefault {
		s.clearDefaultLocked(stored.Algorithm)
	}

	s.configs[stored.Version] = stored
	return stored.Version, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, version string) (*contracts.CalculationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[version]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg.Clone(), nil
}

// Update implements Store. The stored original stays untouched; the edited
// clone is persisted under a fresh version.
func (s *MemoryStore) Update(ctx context.Context, version string, apply func(*contracts.CalculationConfig)) (string, error) {
	s.mu.RLock()
	base, ok := s.configs[version]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}

	edited := base.Clone()
	apply(edited)
	edited.Algorithm = base.Algorithm // versions never change algorithm type
	edited.IsDefault = false
	edited.CreatedAt = base.CreatedAt

	return s.Create(ctx, edited)
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[version]; !ok {
		return ErrNotFound
	}
	delete(s.configs, version)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, activeOnly bool) ([]*contracts.CalculationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.CalculationConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		if activeOnly && !cfg.IsActive {
			continue
		}
		out = append(out, cfg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

// SetDefault implements Store.
func (s *MemoryStore) SetDefault(_ context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[version]
	if !ok {
		return ErrNotFound
	}

	s.clearDefaultLocked(cfg.Algorithm)
	cfg.IsDefault = true
	return nil
}

// GetDefault implements Store.
func (s *MemoryStore) GetDefault(_ context.Context, algorithm contracts.AlgorithmType) (*contracts.CalculationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cfg := range s.configs {
		if cfg.Algorithm == algorithm && cfg.IsDefault {
			return cfg.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) clearDefaultLocked(algorithm contracts.AlgorithmType) {
	for _, cfg := range s.configs {
		if cfg.Algorithm == algorithm && cfg.IsDefault {
			cfg.IsDefault = false
		}
	}
}

var _ Store = (*MemoryStore)(nil)
