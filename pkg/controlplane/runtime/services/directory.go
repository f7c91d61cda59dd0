package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/internal/telemetry"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/metrics"
)

// entry couples a service with the lock serializing its mutations.
type entry struct {
	mu  sync.Mutex
	svc Service
}

// Directory is the registry of services.
//
// Thread Safety: All methods are safe for concurrent use. Operations on the
// same slug are serialized; different slugs proceed independently.
type Directory struct {
	entries map[string]*entry
	persist store.ServiceDataStore
	metrics metrics.ServiceMetrics
}

// NewDirectory registers services and restores their persisted payloads.
// Persisted payloads for unknown services or that no longer validate are
// skipped with a warning. m may be nil.
func NewDirectory(ctx context.Context, persist store.ServiceDataStore, m metrics.ServiceMetrics, services ...Service) (*Directory, error) {
	d := &Directory{
		entries: make(map[string]*entry, len(services)),
		persist: persist,
		metrics: m,
	}
	for _, svc := range services {
		if _, dup := d.entries[svc.Slug()]; dup {
			return nil, fmt.Errorf("duplicate service %q", svc.Slug())
		}
		d.entries[svc.Slug()] = &entry{svc: svc}
	}

	rows, err := persist.ListServiceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load service data: %w", err)
	}
	for _, row := range rows {
		e, ok := d.entries[row.Slug]
		if !ok {
			logger.Warn("Skipping data of unknown service", logger.Slug(row.Slug), logger.Addon(row.Addon))
			continue
		}
		payload, err := row.ParsePayload()
		if err == nil {
			err = e.svc.SetServiceData(row.Addon, payload)
		}
		if err != nil {
			logger.Warn("Skipping invalid service data", logger.Slug(row.Slug), logger.Addon(row.Addon), logger.Err(err))
		}
	}

	for slug, e := range d.entries {
		d.publish(slug, e.svc)
	}
	logger.Debug("Service directory loaded", logger.KeyCount, len(rows))
	return d, nil
}

// Slugs returns the registered service slugs, sorted.
func (d *Directory) Slugs() []string {
	return slices.Sorted(maps.Keys(d.entries))
}

// Service returns the service registered as slug.
func (d *Directory) Service(slug string) (Service, error) {
	e, err := d.lookup(slug)
	if err != nil {
		return nil, err
	}
	return e.svc, nil
}

// Providers returns the installed add-ons providing slug. More than one
// provider is allowed.
func (d *Directory) Providers(ctx context.Context, slug string) ([]string, error) {
	e, err := d.lookup(slug)
	if err != nil {
		return nil, err
	}
	return e.svc.Providers(ctx)
}

// Enabled reports whether any add-on holds data for slug. Unknown services
// are not enabled.
func (d *Directory) Enabled(slug string) bool {
	e, err := d.lookup(slug)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.Enabled()
}

// Active returns the add-ons holding data for slug.
func (d *Directory) Active(slug string) ([]string, error) {
	e, err := d.lookup(slug)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.Active(), nil
}

// GetServiceData returns the payloads of slug keyed by consumer add-on, or
// false when the service is unknown or not enabled.
func (d *Directory) GetServiceData(slug string) (map[string]map[string]any, bool) {
	e, err := d.lookup(slug)
	if err != nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.GetServiceData()
}

// SetServiceData validates payload, stores it for addon under slug and
// persists it. If persisting fails the previous payload is restored.
func (d *Directory) SetServiceData(ctx context.Context, addon, slug string, payload map[string]any) error {
	if addon == "" {
		return models.NewValidationError("addon", "is required")
	}
	e, err := d.lookup(slug)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "set", slug, addon)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, had := current(e.svc, addon)
	if err := e.svc.SetServiceData(addon, payload); err != nil {
		return err
	}

	stored, _ := current(e.svc, addon)
	row := &models.ServiceData{Slug: slug, Addon: addon}
	err = row.SetPayload(stored)
	if err == nil {
		err = d.persist.PutServiceData(ctx, row)
	}
	if err != nil {
		d.rollback(e.svc, addon, prev, had)
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("failed to persist %s data for %s: %w", slug, addon, err)
	}

	d.publish(slug, e.svc)
	if d.metrics != nil {
		d.metrics.RecordDataChange(slug, "set")
	}
	logger.InfoCtx(ctx, "Service data set", logger.Slug(slug), logger.Addon(addon))
	return nil
}

// DelServiceData removes the payload of addon under slug. Removing a missing
// payload is a no-op.
func (d *Directory) DelServiceData(ctx context.Context, addon, slug string) error {
	e, err := d.lookup(slug)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "delete", slug, addon)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, had := current(e.svc, addon)
	if !had {
		return nil
	}
	e.svc.DelServiceData(addon)

	if err := d.persist.DeleteServiceData(ctx, slug, addon); err != nil {
		d.rollback(e.svc, addon, prev, had)
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("failed to persist removal of %s data for %s: %w", slug, addon, err)
	}

	d.publish(slug, e.svc)
	if d.metrics != nil {
		d.metrics.RecordDataChange(slug, "delete")
	}
	logger.InfoCtx(ctx, "Service data removed", logger.Slug(slug), logger.Addon(addon))
	return nil
}

// RemoveAddon deletes the payloads of addon from every service.
func (d *Directory) RemoveAddon(ctx context.Context, addon string) error {
	var errs []error
	for _, slug := range d.Slugs() {
		if err := d.DelServiceData(ctx, addon, slug); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Directory) lookup(slug string) (*entry, error) {
	e, ok := d.entries[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownService, slug)
	}
	return e, nil
}

// rollback restores the in-memory payload of addon after a failed persist.
func (d *Directory) rollback(svc Service, addon string, prev map[string]any, had bool) {
	if !had {
		svc.DelServiceData(addon)
		return
	}
	if err := svc.SetServiceData(addon, prev); err != nil {
		logger.Error("Failed to restore service data", logger.Slug(svc.Slug()), logger.Addon(addon), logger.Err(err))
	}
}

func (d *Directory) publish(slug string, svc Service) {
	if d.metrics != nil {
		d.metrics.SetConsumers(slug, len(svc.Active()))
	}
}

// current returns a copy of addon's payload in svc.
func current(svc Service, addon string) (map[string]any, bool) {
	data, ok := svc.GetServiceData()
	if !ok {
		return nil, false
	}
	payload, ok := data[addon]
	return payload, ok
}
