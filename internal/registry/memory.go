package registry

import (
	"context"
	"sort"
	"sync"

	"themekeys/internal/license"
)

// MemoryStore is an in-memory license.RegistryStore. It backs unit tests and
// the "memory" database driver for local development. A single mutex covers
// every operation, which trivially satisfies the per-key atomicity contract
// of BindDomain.
type MemoryStore struct {
	mu          sync.Mutex
	licenses    map[string]*license.License
	activations map[string]map[string]*license.Activation // key -> domain -> row
	order       []string                                  // insertion order of license keys
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		licenses:    make(map[string]*license.License),
		activations: make(map[string]map[string]*license.Activation),
	}
}

func (s *MemoryStore) FindLicenseByKey(ctx context.Context, key string) (*license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lic, ok := s.licenses[key]
	if !ok {
		return nil, license.ErrNotFound
	}
	out := *lic
	return &out, nil
}

func (s *MemoryStore) FindActiveActivation(ctx context.Context, key string) (*license.Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findActiveLocked(key)
}

func (s *MemoryStore) findActiveLocked(key string) (*license.Activation, error) {
	var found *license.Activation
	for _, act := range s.activations[key] {
		if !act.IsActive {
			continue
		}
		if found != nil {
			return nil, license.ErrIntegrity
		}
		copied := *act
		found = &copied
	}
	if found == nil {
		return nil, license.ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) BindDomain(ctx context.Context, params license.BindParams) (*license.Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic, ok := s.licenses[params.LicenseKey]
	if !ok {
		return nil, license.ErrNotFound
	}

	current, err := s.findActiveLocked(params.LicenseKey)
	if err != nil && err != license.ErrNotFound {
		return nil, err
	}
	if current != nil && current.Domain != params.Domain {
		return nil, &license.ConflictError{CurrentDomain: current.Domain}
	}

	byDomain := s.activations[params.LicenseKey]
	if byDomain == nil {
		byDomain = make(map[string]*license.Activation)
		s.activations[params.LicenseKey] = byDomain
	}
	act, ok := byDomain[params.Domain]
	if !ok {
		act = &license.Activation{
			LicenseKey: params.LicenseKey,
			Domain:     params.Domain,
		}
		byDomain[params.Domain] = act
	}
	act.IsActive = true
	act.ActivatedAt = params.Now
	if params.ThemeID != "" {
		act.ThemeID = params.ThemeID
	}

	now := params.Now
	lic.Domain = params.Domain
	lic.IsActive = true
	lic.ActivatedAt = &now

	out := *act
	return &out, nil
}

func (s *MemoryStore) InsertLicenses(ctx context.Context, batch []license.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lic := range batch {
		if _, exists := s.licenses[lic.LicenseKey]; exists {
			return license.ErrDuplicateKey
		}
	}
	for _, lic := range batch {
		copied := lic
		s.licenses[lic.LicenseKey] = &copied
		s.order = append(s.order, lic.LicenseKey)
	}
	return nil
}

func (s *MemoryStore) ListLicenses(ctx context.Context, limit int) ([]license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]license.License, 0, len(s.order))
	// Newest first: reverse insertion order, then CreatedAt as tiebreaker.
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.licenses[s.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListActiveActivations(ctx context.Context, limit int) ([]license.Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []license.Activation
	for _, byDomain := range s.activations {
		for _, act := range byDomain {
			if act.IsActive {
				out = append(out, *act)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ActivatedAt.After(out[j].ActivatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
