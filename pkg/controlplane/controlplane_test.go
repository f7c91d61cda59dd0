package controlplane

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/api"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp/coreapptest"
)

func testOptions() *Options {
	return &Options{
		Database: &store.Config{Type: store.DatabaseTypeBadger, Badger: store.BadgerConfig{InMemory: true}},
		API:      &api.APIConfig{JWT: api.JWTConfig{Secret: "test-secret-key-for-testing-only-32chars"}},
		Runtime: runtime.Deps{
			Core:     coreapptest.New(),
			Registry: addons.Static{},
		},
	}
}

func TestNew(t *testing.T) {
	cp, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer func() { _ = cp.Close() }()

	assert.NotNil(t, cp.Runtime())
	assert.NotNil(t, cp.APIServer())
	assert.Same(t, cp.Store(), cp.Runtime().Store())
	require.NoError(t, cp.Store().Healthcheck(context.Background()))
}

func TestNew_RequiresConfiguration(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	opts := testOptions()
	opts.Database = nil
	_, err = New(context.Background(), opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.API = nil
	_, err = New(context.Background(), opts)
	assert.Error(t, err)
}

func TestNew_InvalidSecretClosesStore(t *testing.T) {
	t.Setenv(api.EnvControlPlaneSecret, "")
	opts := testOptions()
	opts.API.JWT.Secret = "short"

	_, err := New(context.Background(), opts)
	require.Error(t, err)
}
