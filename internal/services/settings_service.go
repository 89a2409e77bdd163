// Package services holds application services that sit between the HTTP
// handlers and storage.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

// SettingsKey is where operator settings are stored.
const SettingsKey = "settings/detection"

const persistTimeout = 5 * time.Second

// SavedSettings is the stored form of the operator settings.
type SavedSettings struct {
	Revision  string          `json:"revision"`
	Settings  config.Settings `json:"settings"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingsService keeps operator settings across restarts. Changes made at
// runtime, through the API or a config reload, are written back to storage.
type SettingsService struct {
	kv      storage.Store
	runtime *config.Runtime
	logger  *zap.Logger
	now     func() time.Time
}

// NewSettingsService creates a new SettingsService instance.
func NewSettingsService(kv storage.Store, rt *config.Runtime, logger *zap.Logger) *SettingsService {
	return &SettingsService{kv: kv, runtime: rt, logger: logging.OrNop(logger), now: time.Now}
}

// Restore applies previously saved settings to the runtime. Missing
// settings are not an error. Saved settings that no longer validate are
// ignored and the configured ones kept.
func (s *SettingsService) Restore(ctx context.Context) (bool, error) {
	saved, err := s.Saved(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.runtime.Replace(saved.Settings); err != nil {
		s.logger.Warn("saved settings rejected, keeping configured settings",
			zap.String("revision", saved.Revision), zap.Error(err))
		return false, nil
	}
	s.logger.Info("restored saved settings",
		zap.String("revision", saved.Revision), zap.Time("updated_at", saved.UpdatedAt))
	return true, nil
}

// Saved returns the stored settings or storage.ErrNotFound.
func (s *SettingsService) Saved(ctx context.Context) (*SavedSettings, error) {
	data, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		return nil, err
	}
	var saved SavedSettings
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal saved settings: %w", err)
	}
	return &saved, nil
}

// Save writes settings to storage under a new revision.
func (s *SettingsService) Save(ctx context.Context, settings config.Settings) error {
	data, err := json.Marshal(SavedSettings{
		Revision:  uuid.New().String(),
		Settings:  settings,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.kv.Put(ctx, SettingsKey, data)
}

// Attach saves every subsequent runtime change.
func (s *SettingsService) Attach() {
	s.runtime.Subscribe(func(settings config.Settings) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.Save(ctx, settings); err != nil {
			s.logger.Error("failed to save settings", zap.Error(err))
		}
	})
}
