// Package options holds the mutable operational options of the core app.
//
// Updates are merged, validated as a whole and persisted before they become
// visible; a rejected or unpersisted update leaves the store unchanged.
package options

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/internal/validation"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

// Config seeds a Store.
type Config struct {
	// DefaultImage is the image used while no override is set.
	DefaultImage string

	// InstalledVersion is reported until an update records a version.
	InstalledVersion string
}

// Store is the ConfigStore of the core app options.
//
// Thread Safety: All methods are safe for concurrent use. Apply, SetVersion
// and Save serialize on the same lock, so concurrent writers never persist
// interleaved states.
type Store struct {
	mu       sync.RWMutex
	persist  store.CoreOptionsStore
	current  models.CoreOptions
	cfg      Config
	validate *validator.Validate
}

// New loads the persisted options, or persists the defaults on first run.
func New(ctx context.Context, persist store.CoreOptionsStore, cfg Config) (*Store, error) {
	s := &Store{
		persist:  persist,
		cfg:      cfg,
		validate: validation.New(),
	}

	stored, err := persist.GetCoreOptions(ctx)
	switch {
	case err == nil:
		s.current = stored.Clone()
		if verr := validation.Struct(s.validate, s.current); verr != nil {
			logger.Warn("Stored core options are invalid", logger.KeyError, verr)
		}
	case errors.Is(err, models.ErrNotFound):
		s.current = models.DefaultCoreOptions()
		if err := persist.SaveCoreOptions(ctx, &s.current); err != nil {
			return nil, fmt.Errorf("failed to persist default core options: %w", err)
		}
		logger.Info("Initialized default core options", "port", s.current.Port)
	default:
		return nil, fmt.Errorf("failed to load core options: %w", err)
	}

	if s.current.Version == "" {
		s.current.Version = cfg.InstalledVersion
	}
	return s, nil
}

// Get returns a copy of the current options.
func (s *Store) Get() models.CoreOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Apply merges p into the current options, validates and persists the result
// and returns it. Setting the image recomputes the override flag; a null
// image restores the default.
func (s *Store) Apply(ctx context.Context, p Partial) (models.CoreOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	p.mergeInto(&next)
	if p.Image.Set {
		s.setImage(&next, p.Image.Value)
	}

	if err := s.commit(ctx, next); err != nil {
		return models.CoreOptions{}, err
	}

	logger.DebugCtx(ctx, "Core options updated",
		"port", next.Port,
		"boot", next.Boot,
		"watchdog", next.Watchdog,
		"override_image", next.OverrideImage,
	)
	return next.Clone(), nil
}

// SetImage replaces the image. Passing nil restores the default image.
func (s *Store) SetImage(ctx context.Context, image *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	s.setImage(&next, image)
	return s.commit(ctx, next)
}

// Save persists the current options again. Saving twice writes the same
// state twice.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.current.Clone()
	if err := s.persist.SaveCoreOptions(ctx, &snapshot); err != nil {
		return fmt.Errorf("failed to save core options: %w", err)
	}
	return nil
}

// Version returns the installed core version.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Version
}

// SetVersion records the installed core version.
func (s *Store) SetVersion(ctx context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	next.Version = version
	return s.commit(ctx, next)
}

// Reload replaces the in-memory options with the persisted ones when they
// were saved after the current state, as happens when another supervisor
// shares the database. It reports whether anything changed. Invalid
// persisted options are ignored.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	stored, err := s.persist.GetCoreOptions(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load core options: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !stored.UpdatedAt.After(s.current.UpdatedAt) {
		return false, nil
	}
	next := stored.Clone()
	if next.Version == "" {
		next.Version = s.cfg.InstalledVersion
	}
	if err := validation.Struct(s.validate, next); err != nil {
		return false, err
	}
	s.current = next
	return true, nil
}

// DefaultImage returns the image used when no override is set.
func (s *Store) DefaultImage() string {
	return s.cfg.DefaultImage
}

// Image returns the effective image.
func (s *Store) Image() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Image != nil {
		return *s.current.Image
	}
	return s.cfg.DefaultImage
}

// OverrideImage reports whether a non-default image is configured.
func (s *Store) OverrideImage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.OverrideImage
}

func (s *Store) setImage(o *models.CoreOptions, image *string) {
	o.Image = clone(image)
	o.OverrideImage = image != nil && *image != s.cfg.DefaultImage
}

// commit validates next, persists it and swaps it in. Requires s.mu.
func (s *Store) commit(ctx context.Context, next models.CoreOptions) error {
	if err := validation.Struct(s.validate, next); err != nil {
		return err
	}
	row := next.Clone()
	if err := s.persist.SaveCoreOptions(ctx, &row); err != nil {
		return fmt.Errorf("failed to save core options: %w", err)
	}
	next.UpdatedAt = row.UpdatedAt
	s.current = next
	return nil
}
