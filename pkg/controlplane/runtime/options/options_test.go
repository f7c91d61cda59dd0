package options

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

const defaultImage = "ghcr.io/home-assistant/qemux86-64-homeassistant"

// memPersister is a CoreOptionsStore that can be told to fail.
type memPersister struct {
	mu    sync.Mutex
	row   *models.CoreOptions
	fail  error
	saves int
}

func (m *memPersister) GetCoreOptions(ctx context.Context) (*models.CoreOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.row == nil {
		return nil, models.ErrNotFound
	}
	c := m.row.Clone()
	return &c, nil
}

func (m *memPersister) SaveCoreOptions(ctx context.Context, opts *models.CoreOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	c := opts.Clone()
	m.row = &c
	m.saves++
	return nil
}

func (m *memPersister) stored() models.CoreOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.row.Clone()
}

func newStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s, err := New(context.Background(), p, Config{DefaultImage: defaultImage, InstalledVersion: "2024.5.0"})
	require.NoError(t, err)
	return s, p
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestNew_PersistsDefaults(t *testing.T) {
	s, p := newStore(t)

	got := s.Get()
	assert.True(t, got.Boot)
	assert.True(t, got.Watchdog)
	assert.Equal(t, models.DefaultCorePort, got.Port)
	assert.Nil(t, got.Image)
	assert.Equal(t, "2024.5.0", s.Version())
	assert.Equal(t, 1, p.saves)
}

func TestNew_LoadsStored(t *testing.T) {
	p := &memPersister{}
	row := models.DefaultCoreOptions()
	row.Port = 9000
	row.Version = "2024.6.1"
	p.row = &row

	s, err := New(context.Background(), p, Config{DefaultImage: defaultImage, InstalledVersion: "2024.5.0"})
	require.NoError(t, err)
	assert.Equal(t, 9000, s.Get().Port)
	assert.Equal(t, "2024.6.1", s.Version())
	assert.Zero(t, p.saves)
}

func TestNew_LoadError(t *testing.T) {
	_, err := New(context.Background(), &failingGet{}, Config{})
	require.Error(t, err)
}

type failingGet struct{ memPersister }

func (*failingGet) GetCoreOptions(context.Context) (*models.CoreOptions, error) {
	return nil, errors.New("disk on fire")
}

func TestApply_MergeLaw(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, Partial{
		SSL:        boolPtr(true),
		AudioInput: Value("alsa_input.usb"),
	})
	require.NoError(t, err)
	before := s.Get()

	p := Partial{Port: intPtr(8124), Watchdog: boolPtr(false)}
	after, err := s.Apply(ctx, p)
	require.NoError(t, err)

	want := before.Clone()
	want.Port = 8124
	want.Watchdog = false
	want.UpdatedAt = after.UpdatedAt
	assert.Equal(t, want, after)
	assert.Equal(t, after, s.Get())

	// Untouched fields keep their previous values.
	assert.True(t, after.SSL)
	require.NotNil(t, after.AudioInput)
	assert.Equal(t, "alsa_input.usb", *after.AudioInput)
}

func TestApply_NullClearsNullable(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, Partial{RefreshToken: Value("secret")})
	require.NoError(t, err)
	require.NotNil(t, s.Get().RefreshToken)

	_, err = s.Apply(ctx, Partial{RefreshToken: Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, s.Get().RefreshToken)
}

func TestApply_InvalidLeavesStoreUnchanged(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()

	before := s.Get()
	storedBefore, _ := json.Marshal(p.stored())
	saves := p.saves

	tests := []struct {
		name  string
		p     Partial
		field string
	}{
		{"port zero", Partial{Port: intPtr(0), SSL: boolPtr(true)}, "port"},
		{"port too high", Partial{Port: intPtr(70000)}, "port"},
		{"bad image", Partial{Image: Value("not an image")}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(ctx, tt.p)
			require.ErrorIs(t, err, models.ErrValidation)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			assert.Equal(t, before, s.Get())
			storedAfter, _ := json.Marshal(p.stored())
			assert.Equal(t, string(storedBefore), string(storedAfter))
			assert.Equal(t, saves, p.saves)
		})
	}
}

func TestApply_PersistFailureLeavesStoreUnchanged(t *testing.T) {
	s, p := newStore(t)
	before := s.Get()

	p.fail = errors.New("disk full")
	_, err := s.Apply(context.Background(), Partial{Port: intPtr(9000)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, before, s.Get())
}

func TestApply_ImageOverride(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	assert.Equal(t, defaultImage, s.Image())
	assert.False(t, s.OverrideImage())

	_, err := s.Apply(ctx, Partial{Image: Value("ghcr.io/custom/homeassistant")})
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/custom/homeassistant", s.Image())
	assert.True(t, s.OverrideImage())

	// Setting the default image explicitly is not an override.
	_, err = s.Apply(ctx, Partial{Image: Value(defaultImage)})
	require.NoError(t, err)
	assert.False(t, s.OverrideImage())

	require.NoError(t, s.SetImage(ctx, strPtr("ghcr.io/custom/homeassistant")))
	assert.True(t, s.OverrideImage())

	// A null image restores the default.
	_, err = s.Apply(ctx, Partial{Image: Null[string]()})
	require.NoError(t, err)
	assert.False(t, s.OverrideImage())
	assert.Equal(t, defaultImage, s.Image())
	assert.Equal(t, defaultImage, s.DefaultImage())
}

func strPtr(s string) *string { return &s }

func TestSaveIsIdempotent(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx))
	first := p.stored()
	require.NoError(t, s.Save(ctx))
	second := p.stored()

	assert.Equal(t, first, second)
	assert.Equal(t, s.Get().Port, second.Port)
}

func TestSetVersion(t *testing.T) {
	s, p := newStore(t)

	require.NoError(t, s.SetVersion(context.Background(), "2024.6.1"))
	assert.Equal(t, "2024.6.1", s.Version())
	assert.Equal(t, "2024.6.1", p.stored().Version)

	p.fail = errors.New("disk full")
	require.Error(t, s.SetVersion(context.Background(), "2024.7.0"))
	assert.Equal(t, "2024.6.1", s.Version())
}

func TestPartial_JSON(t *testing.T) {
	var p Partial
	require.NoError(t, json.Unmarshal([]byte(`{"port": 8124, "image": null}`), &p))

	require.NotNil(t, p.Port)
	assert.Equal(t, 8124, *p.Port)
	assert.True(t, p.Image.Set)
	assert.Nil(t, p.Image.Value)
	assert.False(t, p.AudioInput.Set)
	assert.Nil(t, p.Boot)
	assert.False(t, p.Empty())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"port": 8124, "image": null}`, string(data))

	var empty Partial
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.Empty())
}

func TestStore_WithSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &store.Config{Type: store.DatabaseTypeSQLite, SQLite: store.SQLiteConfig{Path: ":memory:"}}
	db, err := store.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(ctx, db, Config{DefaultImage: defaultImage})
	require.NoError(t, err)

	_, err = s.Apply(ctx, Partial{Port: intPtr(8300), Boot: boolPtr(false), Image: Value("ghcr.io/custom/homeassistant")})
	require.NoError(t, err)

	reloaded, err := New(ctx, db, Config{DefaultImage: defaultImage})
	require.NoError(t, err)
	got := reloaded.Get()
	assert.Equal(t, 8300, got.Port)
	assert.False(t, got.Boot)
	assert.True(t, got.OverrideImage)
	assert.Equal(t, "ghcr.io/custom/homeassistant", reloaded.Image())
}

func TestReload(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()

	changed, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	external := p.stored()
	external.Port = 9123
	external.UpdatedAt = time.Now().Add(time.Minute)
	p.mu.Lock()
	p.row = &external
	p.mu.Unlock()

	changed, err = s.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 9123, s.Get().Port)
	assert.Equal(t, "2024.5.0", s.Version())

	invalid := external.Clone()
	invalid.Port = 0
	invalid.UpdatedAt = external.UpdatedAt.Add(time.Minute)
	p.mu.Lock()
	p.row = &invalid
	p.mu.Unlock()

	_, err = s.Reload(ctx)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 9123, s.Get().Port)
}
