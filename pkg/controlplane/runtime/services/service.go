// Package services implements the service directory: named capabilities
// that add-ons provide, and the per-consumer payloads registered for them.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/corevisor/internal/validation"
	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// Service is one named capability.
//
// Implementations are not safe for concurrent mutation; the Directory
// serializes access per slug.
type Service interface {
	// Slug is the unique service name, e.g. "mqtt".
	Slug() string

	// Schema describes a valid payload.
	Schema() *jsonschema.Schema

	// Providers returns the installed add-ons that provide the service.
	Providers(ctx context.Context) ([]string, error)

	// Active returns the add-ons currently holding data, sorted.
	Active() []string

	// Enabled reports whether any add-on holds data.
	Enabled() bool

	// GetServiceData returns the payload of every consumer, or false when
	// the service is not enabled.
	GetServiceData() (map[string]map[string]any, bool)

	// SetServiceData validates payload and stores it for addon. An invalid
	// payload returns a *models.ValidationError and changes nothing.
	SetServiceData(addon string, payload map[string]any) error

	// DelServiceData removes the payload of addon and reports whether there
	// was one.
	DelServiceData(addon string) bool
}

// defaulter is implemented by payload types with default values.
type defaulter interface {
	ApplyDefaults()
}

// Typed is a Service whose payload is the struct T. Payloads are decoded by
// JSON field name, defaulted, validated with `validate` tags and stored in
// normalized form.
type Typed[T any] struct {
	slug     string
	registry addons.Registry
	validate *validator.Validate
	schema   *jsonschema.Schema
	integers map[string]bool
	data     map[string]map[string]any
}

// NewTyped creates a service named slug whose providers come from registry.
func NewTyped[T any](slug string, registry addons.Registry) *Typed[T] {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(new(T))
	schema.Title = slug

	return &Typed[T]{
		slug:     slug,
		registry: registry,
		validate: validation.New(),
		schema:   schema,
		integers: integerFields(reflect.TypeFor[T]()),
		data:     make(map[string]map[string]any),
	}
}

// integerFields returns the JSON names of the integer fields of struct t.
func integerFields(t reflect.Type) map[string]bool {
	out := map[string]bool{}
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[name] = true
		}
	}
	return out
}

// checkIntegers rejects fractional numbers for integer fields, which the
// decoder would otherwise truncate.
func (s *Typed[T]) checkIntegers(payload map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(payload)) {
		if !s.integers[name] {
			continue
		}
		var f float64
		switch n := payload[name].(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case json.Number:
			if _, err := n.Int64(); err != nil {
				return models.NewValidationError(name, fmt.Sprintf("%s must be an integer, got %s", name, n))
			}
			continue
		default:
			continue
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return models.NewValidationError(name, fmt.Sprintf("%s must be an integer, got %v", name, f))
		}
	}
	return nil
}

func (s *Typed[T]) Slug() string {
	return s.slug
}

func (s *Typed[T]) Schema() *jsonschema.Schema {
	return s.schema
}

func (s *Typed[T]) Providers(ctx context.Context) ([]string, error) {
	installed, err := s.registry.InstalledAddons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed add-ons: %w", err)
	}
	return addons.Providers(installed, s.slug), nil
}

func (s *Typed[T]) Active() []string {
	return slices.Sorted(maps.Keys(s.data))
}

func (s *Typed[T]) Enabled() bool {
	return len(s.data) > 0
}

func (s *Typed[T]) GetServiceData() (map[string]map[string]any, bool) {
	if !s.Enabled() {
		return nil, false
	}
	out := make(map[string]map[string]any, len(s.data))
	for addon, payload := range s.data {
		out[addon] = maps.Clone(payload)
	}
	return out, true
}

func (s *Typed[T]) SetServiceData(addon string, payload map[string]any) error {
	normalized, err := s.normalize(payload)
	if err != nil {
		return err
	}
	s.data[addon] = normalized
	return nil
}

func (s *Typed[T]) DelServiceData(addon string) bool {
	if _, ok := s.data[addon]; !ok {
		return false
	}
	delete(s.data, addon)
	return true
}

// Decode returns the typed payload stored for addon.
func (s *Typed[T]) Decode(addon string) (T, bool) {
	var v T
	payload, ok := s.data[addon]
	if !ok {
		return v, false
	}
	v, err := s.decode(payload)
	return v, err == nil
}

func (s *Typed[T]) decode(payload map[string]any) (T, error) {
	var v T
	if err := s.checkIntegers(payload); err != nil {
		return v, err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &v,
	})
	if err != nil {
		return v, err
	}
	if err := dec.Decode(payload); err != nil {
		return v, models.NewValidationError("", err.Error())
	}
	if d, ok := any(&v).(defaulter); ok {
		d.ApplyDefaults()
	}
	return v, nil
}

// normalize decodes, validates and re-encodes payload.
func (s *Typed[T]) normalize(payload map[string]any) (map[string]any, error) {
	v, err := s.decode(payload)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(s.validate, v); err != nil {
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", s.slug, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", s.slug, err)
	}
	return out, nil
}

var _ Service = (*Typed[MQTTConfig])(nil)
