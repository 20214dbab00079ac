// Package services – ConfigStore
//
// ConfigStore owns the current API configuration, the named presets, the
// voice configuration and the user's own profile. Each is a single slot in
// the key-value store; presets are one list record.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// APIConfigUpdate lists the fields UpdateCurrentConfig and UpdatePreset may
// change. Nil fields are left as they are.
type APIConfigUpdate struct {
	Provider    *string  `json:"provider"`
	Endpoint    *string  `json:"endpoint"`
	APIKey      *string  `json:"apiKey"`
	Model       *string  `json:"model"`
	MaxTokens   *int     `json:"maxTokens"`
	Temperature *float64 `json:"temperature"`
}

// PresetUpdate is APIConfigUpdate plus an optional rename.
type PresetUpdate struct {
	Name *string `json:"name"`
	APIConfigUpdate
}

// ConfigStore provides single-slot configuration records and presets.
type ConfigStore struct {
	KV repo.KeyValueStore
	// Defaults is returned by GetCurrentConfig while no configuration has
	// been saved, and is the base UpdateCurrentConfig merges over.
	Defaults domain.APIConfig

	mu  sync.Mutex
	now func() time.Time
}

// NewConfigStore constructs a ConfigStore over kv.
func NewConfigStore(kv repo.KeyValueStore, defaults domain.APIConfig) *ConfigStore {
	return &ConfigStore{KV: kv, Defaults: defaults, now: utcNow}
}

//
// Current API configuration
//

// GetCurrentConfig returns the saved configuration or Defaults.
func (s *ConfigStore) GetCurrentConfig(ctx context.Context) (domain.APIConfig, error) {
	cfg := s.Defaults
	err := load(ctx, s.KV, keyAPIConfig, &cfg)
	return cfg, err
}

// SaveCurrentConfig replaces the current configuration.
func (s *ConfigStore) SaveCurrentConfig(ctx context.Context, cfg domain.APIConfig) error {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "SaveCurrentConfig")
	defer span.End()

	if err := validateAPIConfig(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(ctx, s.KV, repo.Put(keyAPIConfig, cfg))
}

// UpdateCurrentConfig merges upd over the current configuration (or
// Defaults when none is saved).
func (s *ConfigStore) UpdateCurrentConfig(ctx context.Context, upd APIConfigUpdate) (domain.APIConfig, error) {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "UpdateCurrentConfig")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.GetCurrentConfig(ctx)
	if err != nil {
		return cfg, err
	}
	upd.apply(&cfg)
	if err := validateAPIConfig(cfg); err != nil {
		return cfg, err
	}
	if err := commit(ctx, s.KV, repo.Put(keyAPIConfig, cfg)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

//
// Presets
//

// ListPresets returns every preset in creation order.
func (s *ConfigStore) ListPresets(ctx context.Context) ([]domain.Preset, error) {
	var list []domain.Preset
	if err := load(ctx, s.KV, keyAPIPresets, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Preset{}
	}
	return list, nil
}

// SavePreset stores a new preset under a unique name and returns it with a
// generated id and creation time.
func (s *ConfigStore) SavePreset(ctx context.Context, name string, cfg domain.APIConfig) (*domain.Preset, error) {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "SavePreset")
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if err := validateAPIConfig(cfg); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	if presetNameTaken(list, name, "") {
		return nil, ErrDuplicateName
	}
	p := domain.Preset{
		ID:        "preset_" + uuid.NewString(),
		Name:      name,
		APIConfig: cfg,
		CreatedAt: s.now(),
	}
	list = append(list, p)
	if err := commit(ctx, s.KV, repo.Put(keyAPIPresets, list)); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePreset applies upd to preset id. A rename must not collide with any
// other preset.
func (s *ConfigStore) UpdatePreset(ctx context.Context, id string, upd PresetUpdate) (*domain.Preset, error) {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "UpdatePreset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	i := findPreset(list, id)
	if i < 0 {
		return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	p := list[i]
	if upd.Name != nil {
		name := normalizeName(*upd.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		if presetNameTaken(list, name, id) {
			return nil, ErrDuplicateName
		}
		p.Name = name
	}
	upd.apply(&p.APIConfig)
	if err := validateAPIConfig(p.APIConfig); err != nil {
		return nil, err
	}
	list[i] = p
	if err := commit(ctx, s.KV, repo.Put(keyAPIPresets, list)); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePreset removes preset id. Removing an absent preset succeeds.
func (s *ConfigStore) DeletePreset(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "DeletePreset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ListPresets(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, p := range list {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return commit(ctx, s.KV, repo.Put(keyAPIPresets, kept))
}

// LoadPreset copies preset id into the current configuration slot.
func (s *ConfigStore) LoadPreset(ctx context.Context, id string) (domain.APIConfig, error) {
	ctx, span := otel.Tracer("services/ConfigStore").Start(ctx, "LoadPreset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ListPresets(ctx)
	if err != nil {
		return domain.APIConfig{}, err
	}
	i := findPreset(list, id)
	if i < 0 {
		return domain.APIConfig{}, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	cfg := list[i].APIConfig
	if err := commit(ctx, s.KV, repo.Put(keyAPIConfig, cfg)); err != nil {
		return domain.APIConfig{}, err
	}
	return cfg, nil
}

//
// Voice configuration and user settings
//

// GetVoiceConfig returns the saved voice configuration (zero value if none).
func (s *ConfigStore) GetVoiceConfig(ctx context.Context) (domain.VoiceConfig, error) {
	var vc domain.VoiceConfig
	err := load(ctx, s.KV, keyVoiceConfig, &vc)
	return vc, err
}

// SaveVoiceConfig replaces the voice configuration.
func (s *ConfigStore) SaveVoiceConfig(ctx context.Context, vc domain.VoiceConfig) error {
	if vc.Speed < 0 {
		return fmt.Errorf("voice speed must be >= 0: %w", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(ctx, s.KV, repo.Put(keyVoiceConfig, vc))
}

// GetUserSettings returns the owner's profile (zero value if none).
func (s *ConfigStore) GetUserSettings(ctx context.Context) (domain.UserSettings, error) {
	var us domain.UserSettings
	err := load(ctx, s.KV, keyUserSettings, &us)
	return us, err
}

// SaveUserSettings replaces the owner's profile.
func (s *ConfigStore) SaveUserSettings(ctx context.Context, us domain.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(ctx, s.KV, repo.Put(keyUserSettings, us))
}

//
// helpers
//

func (u APIConfigUpdate) apply(cfg *domain.APIConfig) {
	setIf(&cfg.Provider, u.Provider)
	setIf(&cfg.Endpoint, u.Endpoint)
	setIf(&cfg.APIKey, u.APIKey)
	setIf(&cfg.Model, u.Model)
	if u.MaxTokens != nil {
		cfg.MaxTokens = *u.MaxTokens
	}
	if u.Temperature != nil {
		cfg.Temperature = *u.Temperature
	}
}

func validateAPIConfig(cfg domain.APIConfig) error {
	if cfg.MaxTokens <= 0 {
		return fmt.Errorf("maxTokens must be positive: %w", ErrInvalidConfig)
	}
	return nil
}

func findPreset(list []domain.Preset, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func presetNameTaken(list []domain.Preset, name, exceptID string) bool {
	for _, p := range list {
		if p.ID != exceptID && p.Name == name {
			return true
		}
	}
	return false
}
