package options

import (
	"bytes"
	"encoding/json"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// Nullable distinguishes an absent field (Set false) from an explicit null
// (Set true, Value nil) in a partial update.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns an explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Value returns a set, non-null value.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// IsZero reports an absent field, which makes `omitzero` skip it.
func (n Nullable[T]) IsZero() bool {
	return !n.Set
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Partial is a merge-update of models.CoreOptions. Absent fields leave the
// stored value untouched.
type Partial struct {
	Boot                   *bool            `json:"boot,omitempty"`
	Image                  Nullable[string] `json:"image,omitzero"`
	Port                   *int             `json:"port,omitempty"`
	SSL                    *bool            `json:"ssl,omitempty"`
	Watchdog               *bool            `json:"watchdog,omitempty"`
	RefreshToken           Nullable[string] `json:"refresh_token,omitzero"`
	AudioInput             Nullable[string] `json:"audio_input,omitzero"`
	AudioOutput            Nullable[string] `json:"audio_output,omitzero"`
	BackupsExcludeDatabase *bool            `json:"backups_exclude_database,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (p Partial) Empty() bool {
	return p.Boot == nil && !p.Image.Set && p.Port == nil && p.SSL == nil &&
		p.Watchdog == nil && !p.RefreshToken.Set && !p.AudioInput.Set &&
		!p.AudioOutput.Set && p.BackupsExcludeDatabase == nil
}

// mergeInto applies the present fields of p onto o. Image handling, which
// also drives the override flag, is left to the Store.
func (p Partial) mergeInto(o *models.CoreOptions) {
	if p.Boot != nil {
		o.Boot = *p.Boot
	}
	if p.Port != nil {
		o.Port = *p.Port
	}
	if p.SSL != nil {
		o.SSL = *p.SSL
	}
	if p.Watchdog != nil {
		o.Watchdog = *p.Watchdog
	}
	if p.RefreshToken.Set {
		o.RefreshToken = clone(p.RefreshToken.Value)
	}
	if p.AudioInput.Set {
		o.AudioInput = clone(p.AudioInput.Value)
	}
	if p.AudioOutput.Set {
		o.AudioOutput = clone(p.AudioOutput.Value)
	}
	if p.BackupsExcludeDatabase != nil {
		o.BackupsExcludeDatabase = *p.BackupsExcludeDatabase
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
