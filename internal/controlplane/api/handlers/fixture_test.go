package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/internal/controlplane/api/auth"
	"github.com/marmos91/corevisor/internal/controlplane/api/middleware"
	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/services"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp/coreapptest"
)

var testRegistry = addons.Static{
	{Slug: "core_mosquitto", Services: map[string]addons.Role{"mqtt": addons.RoleProvide}},
	{Slug: "addon_a", Services: map[string]addons.Role{"mqtt": addons.RoleWant}},
}

type fixture struct {
	fake   *coreapptest.Fake
	store  *store.GORMStore
	ctrl   *lifecycle.Controller
	dir    *services.Directory
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.New(ctx, &store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts, err := options.New(ctx, db, options.Config{InstalledVersion: "2024.5.0"})
	require.NoError(t, err)

	fake := coreapptest.New()
	ctrl, err := lifecycle.New(ctx, lifecycle.Deps{Runtime: fake, Options: opts, Jobs: db})
	require.NoError(t, err)
	t.Cleanup(func() {
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ctrl.Wait(wctx)
	})

	dir, err := services.NewDirectory(ctx, db, nil, services.Defaults(testRegistry)...)
	require.NoError(t, err)

	f := &fixture{fake: fake, store: db, ctrl: ctrl, dir: dir}
	f.router = f.routes()
	return f
}

// routes mounts the handlers without authentication; tests put claims in
// the request context themselves.
func (f *fixture) routes() chi.Router {
	core := NewCoreHandler(f.ctrl)
	svc := NewServiceHandler(f.dir)

	r := chi.NewRouter()
	r.Get("/core/info", core.Info)
	r.Post("/core/options", core.SetOptions)
	r.Get("/core/stats", core.Stats)
	r.Post("/core/check", core.Check)
	r.Post("/core/start", core.Operation(lifecycle.OpStart))
	r.Post("/core/stop", core.Operation(lifecycle.OpStop))
	r.Post("/core/restart", core.Operation(lifecycle.OpRestart))
	r.Post("/core/update", core.Operation(lifecycle.OpUpdate))
	r.Get("/core/jobs/last", core.LastJob)
	r.Get("/core/jobs/{id}", core.Job)
	r.Get("/services", svc.List)
	r.Get("/services/{slug}", svc.Get)
	r.Get("/services/{slug}/schema", svc.Schema)
	r.Post("/services/{slug}", svc.Set)
	r.Delete("/services/{slug}", svc.Delete)
	return r
}

func claims(subject string, role auth.Role) *auth.Claims {
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}, Role: role}
}

var admin = claims("admin", auth.RoleAdmin)

// do sends a request as c (nil for anonymous) and returns the recorder.
func (f *fixture) do(t *testing.T, c *auth.Claims, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body == nil {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if c != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), c))
	}

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
