package addons

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/corevisor/internal/logger"
)

// fileFormat is the on-disk registry document:
//
//	addons:
//	  - slug: core_mosquitto
//	    name: Mosquitto broker
//	    services: ["mqtt:provide"]
type fileFormat struct {
	Addons []fileAddon `yaml:"addons"`
}

type fileAddon struct {
	Slug     string   `yaml:"slug"`
	Name     string   `yaml:"name,omitempty"`
	Services []string `yaml:"services,omitempty"`
}

// RemoveFunc is called for every add-on that disappeared on reload.
type RemoveFunc func(ctx context.Context, slug string)

// FileRegistry reads the installed add-ons from a YAML file and can follow
// changes to it.
//
// Thread Safety: All methods are safe for concurrent use.
type FileRegistry struct {
	path string

	mu     sync.RWMutex
	addons []Addon
}

// NewFileRegistry loads path. A missing file is an empty registry.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{path: path}
	if _, err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

func (r *FileRegistry) InstalledAddons(ctx context.Context) ([]Addon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Addon(nil), r.addons...), nil
}

// Reload re-reads the file and returns the slugs of the add-ons that are no
// longer listed. On error the previous contents are kept.
func (r *FileRegistry) Reload() ([]string, error) {
	next, err := loadFile(r.path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	prev := r.addons
	r.addons = next
	r.mu.Unlock()

	present := make(map[string]struct{}, len(next))
	for _, a := range next {
		present[a.Slug] = struct{}{}
	}
	var removed []string
	for _, a := range prev {
		if _, ok := present[a.Slug]; !ok {
			removed = append(removed, a.Slug)
		}
	}
	return removed, nil
}

// Watch reloads the registry whenever the file changes and calls onRemove
// for every add-on that was uninstalled. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors and
// tools replacing the file by rename are followed.
func (r *FileRegistry) Watch(ctx context.Context, onRemove RemoveFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch registry directory: %w", err)
	}

	logger.Info("Add-on registry watcher started", logger.KeyPath, r.path)

	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Add-on registry watcher stopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			removed, err := r.Reload()
			if err != nil {
				logger.Warn("Failed to reload add-on registry", logger.KeyPath, r.path, logger.Err(err))
				continue
			}
			logger.Debug("Add-on registry reloaded", logger.KeyCount, len(removed))
			for _, slug := range removed {
				logger.Info("Add-on removed", logger.KeyAddon, slug)
				if onRemove != nil {
					onRemove(ctx, slug)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Add-on registry watcher error", logger.Err(err))
		}
	}
}

func loadFile(path string) ([]Addon, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read add-on registry: %w", err)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse add-on registry: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Addons))
	out := make([]Addon, 0, len(doc.Addons))
	for _, fa := range doc.Addons {
		if fa.Slug == "" {
			return nil, fmt.Errorf("add-on registry: entry without slug")
		}
		if _, dup := seen[fa.Slug]; dup {
			return nil, fmt.Errorf("add-on registry: duplicate slug %q", fa.Slug)
		}
		seen[fa.Slug] = struct{}{}

		roles, err := ParseServices(fa.Services)
		if err != nil {
			return nil, fmt.Errorf("add-on %s: %w", fa.Slug, err)
		}
		out = append(out, Addon{Slug: fa.Slug, Name: fa.Name, Services: roles})
	}
	return out, nil
}
