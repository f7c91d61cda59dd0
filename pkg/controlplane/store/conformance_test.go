package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// runStoreConformance exercises the Store contract against any backend.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("core options not found before first save", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetCoreOptions(ctx)
		if !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("core options round trip", func(t *testing.T) {
		s := newStore(t)
		image := "ghcr.io/acme/core"
		opts := models.DefaultCoreOptions()
		opts.Image = &image
		opts.OverrideImage = true
		opts.Version = "2024.6.1"

		if err := s.SaveCoreOptions(ctx, &opts); err != nil {
			t.Fatalf("SaveCoreOptions: %v", err)
		}

		got, err := s.GetCoreOptions(ctx)
		if err != nil {
			t.Fatalf("GetCoreOptions: %v", err)
		}
		if got.Image == nil || *got.Image != image {
			t.Errorf("Image = %v, want %q", got.Image, image)
		}
		if !got.OverrideImage || got.Port != models.DefaultCorePort || got.Version != "2024.6.1" {
			t.Errorf("unexpected options: %+v", got)
		}
	})

	t.Run("core options save writes zero values", func(t *testing.T) {
		s := newStore(t)
		image := "ghcr.io/acme/core"
		opts := models.DefaultCoreOptions()
		opts.Image = &image
		if err := s.SaveCoreOptions(ctx, &opts); err != nil {
			t.Fatalf("first save: %v", err)
		}

		opts.Image = nil
		opts.Boot = false
		opts.Watchdog = false
		if err := s.SaveCoreOptions(ctx, &opts); err != nil {
			t.Fatalf("second save: %v", err)
		}

		got, err := s.GetCoreOptions(ctx)
		if err != nil {
			t.Fatalf("GetCoreOptions: %v", err)
		}
		if got.Image != nil || got.Boot || got.Watchdog {
			t.Errorf("zero values not persisted: %+v", got)
		}
	})

	t.Run("service data upsert and delete", func(t *testing.T) {
		s := newStore(t)
		d := &models.ServiceData{Slug: "mqtt", Addon: "addon_a"}
		if err := d.SetPayload(map[string]any{"host": "broker"}); err != nil {
			t.Fatal(err)
		}
		if err := s.PutServiceData(ctx, d); err != nil {
			t.Fatalf("PutServiceData: %v", err)
		}

		replaced := &models.ServiceData{Slug: "mqtt", Addon: "addon_a"}
		_ = replaced.SetPayload(map[string]any{"host": "other"})
		if err := s.PutServiceData(ctx, replaced); err != nil {
			t.Fatalf("PutServiceData replace: %v", err)
		}
		other := &models.ServiceData{Slug: "mysql", Addon: "addon_b", Payload: "{}"}
		if err := s.PutServiceData(ctx, other); err != nil {
			t.Fatalf("PutServiceData other: %v", err)
		}

		all, err := s.ListServiceData(ctx)
		if err != nil {
			t.Fatalf("ListServiceData: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(all))
		}
		for _, e := range all {
			if e.Slug == "mqtt" {
				payload, _ := e.ParsePayload()
				if payload["host"] != "other" {
					t.Errorf("payload not replaced: %v", payload)
				}
			}
		}

		if err := s.DeleteServiceData(ctx, "mqtt", "addon_a"); err != nil {
			t.Fatalf("DeleteServiceData: %v", err)
		}
		if err := s.DeleteServiceData(ctx, "mqtt", "addon_a"); err != nil {
			t.Fatalf("DeleteServiceData on missing entry: %v", err)
		}
		all, _ = s.ListServiceData(ctx)
		if len(all) != 1 || all[0].Slug != "mysql" {
			t.Errorf("unexpected entries after delete: %+v", all)
		}
	})

	t.Run("jobs", func(t *testing.T) {
		s := newStore(t)
		base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)

		for i, id := range []string{"job-a", "job-b", "job-c"} {
			job := &models.Job{
				ID:        id,
				Operation: "restart",
				Status:    models.JobRunning,
				StartedAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := s.CreateJob(ctx, job); err != nil {
				t.Fatalf("CreateJob(%s): %v", id, err)
			}
		}

		finished := base.Add(5 * time.Minute)
		if err := s.UpdateJob(ctx, &models.Job{ID: "job-b", Status: models.JobFailed, Error: "exit 1", FinishedAt: &finished}); err != nil {
			t.Fatalf("UpdateJob: %v", err)
		}
		if err := s.UpdateJob(ctx, &models.Job{ID: "missing", Status: models.JobFailed}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("UpdateJob(missing) = %v, want ErrNotFound", err)
		}

		got, err := s.GetJob(ctx, "job-b")
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Status != models.JobFailed || got.Error != "exit 1" || got.FinishedAt == nil || got.Operation != "restart" {
			t.Errorf("unexpected job: %+v", got)
		}

		jobs, err := s.ListJobs(ctx, 2)
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(jobs) != 2 || jobs[0].ID != "job-c" || jobs[1].ID != "job-b" {
			t.Errorf("ListJobs order wrong: %v", jobIDs(jobs))
		}

		if _, err := s.GetJob(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetJob(nope) = %v, want ErrNotFound", err)
		}
	})

	t.Run("healthcheck", func(t *testing.T) {
		s := newStore(t)
		if err := s.Healthcheck(ctx); err != nil {
			t.Errorf("Healthcheck: %v", err)
		}
	})
}

func jobIDs(jobs []*models.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func TestSQLiteStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		t.Helper()
		s, err := New(context.Background(), &Config{
			Type:   DatabaseTypeSQLite,
			SQLite: SQLiteConfig{Path: ":memory:"},
		})
		if err != nil {
			t.Fatalf("failed to create test store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		t.Helper()
		s, err := NewBadgerStore(&BadgerConfig{InMemory: true})
		if err != nil {
			t.Fatalf("failed to create test store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpen(t *testing.T) {
	t.Run("badger on disk", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(context.Background(), &Config{Type: DatabaseTypeBadger, Badger: BadgerConfig{Dir: dir}})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer s.Close()
		if _, ok := s.(*BadgerStore); !ok {
			t.Errorf("expected *BadgerStore, got %T", s)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		if _, err := Open(context.Background(), &Config{Type: "mongo"}); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}
