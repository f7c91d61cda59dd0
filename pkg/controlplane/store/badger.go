package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// Key layout. Values are JSON encoded models.
const (
	keyCoreOptions    = "core:options"
	prefixServiceData = "service:" // service:<slug>:<addon>
	prefixJob         = "job:"     // job:<id>
)

// BadgerStore implements Store on an embedded Badger database.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens (or creates) a Badger database.
func NewBadgerStore(config *BadgerConfig) (*BadgerStore, error) {
	var opts badgerdb.Options
	if config.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Dir == "" {
			return nil, fmt.Errorf("badger dir is required")
		}
		if err := os.MkdirAll(config.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badgerdb.DefaultOptions(config.Dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func serviceDataKey(slug, addon string) []byte {
	return []byte(prefixServiceData + slug + ":" + addon)
}

func jobKey(id string) []byte {
	return []byte(prefixJob + id)
}

// getJSON loads key into target. Returns models.ErrNotFound for a missing key.
func getJSON(txn *badgerdb.Txn, key []byte, target any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, target)
	})
}

func setJSON(txn *badgerdb.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// scanJSON decodes every value under prefix with decode.
func scanJSON(txn *badgerdb.Txn, prefix string, decode func(val []byte) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(decode); err != nil {
			return err
		}
	}
	return nil
}

// ============================================
// CORE OPTIONS
// ============================================

func (s *BadgerStore) GetCoreOptions(ctx context.Context) (*models.CoreOptions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var opts models.CoreOptions
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return getJSON(txn, []byte(keyCoreOptions), &opts)
	})
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

func (s *BadgerStore) SaveCoreOptions(ctx context.Context, opts *models.CoreOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := opts.Clone()
	row.ID = models.CoreOptionsID
	row.UpdatedAt = time.Now()

	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return setJSON(txn, []byte(keyCoreOptions), row)
	}); err != nil {
		return fmt.Errorf("failed to save core options: %w", err)
	}
	opts.UpdatedAt = row.UpdatedAt
	return nil
}

// ============================================
// SERVICE DATA
// ============================================

func (s *BadgerStore) ListServiceData(ctx context.Context) ([]*models.ServiceData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []*models.ServiceData
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return scanJSON(txn, prefixServiceData, func(val []byte) error {
			d := &models.ServiceData{}
			if err := json.Unmarshal(val, d); err != nil {
				return err
			}
			result = append(result, d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BadgerStore) PutServiceData(ctx context.Context, data *models.ServiceData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		key := serviceDataKey(data.Slug, data.Addon)
		now := time.Now()

		var existing models.ServiceData
		switch err := getJSON(txn, key, &existing); {
		case err == nil:
			data.CreatedAt = existing.CreatedAt
		case errors.Is(err, models.ErrNotFound):
			data.CreatedAt = now
		default:
			return err
		}
		data.UpdatedAt = now
		return setJSON(txn, key, data)
	})
}

func (s *BadgerStore) DeleteServiceData(ctx context.Context, slug, addon string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(serviceDataKey(slug, addon))
	})
}

// ============================================
// JOBS
// ============================================

func (s *BadgerStore) CreateJob(ctx context.Context, job *models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return setJSON(txn, jobKey(job.ID), job)
	})
}

func (s *BadgerStore) UpdateJob(ctx context.Context, job *models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		var existing models.Job
		if err := getJSON(txn, jobKey(job.ID), &existing); err != nil {
			return err
		}
		existing.Status = job.Status
		existing.Error = job.Error
		existing.FinishedAt = job.FinishedAt
		return setJSON(txn, jobKey(job.ID), &existing)
	})
}

func (s *BadgerStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var job models.Job
	if err := s.db.View(func(txn *badgerdb.Txn) error {
		return getJSON(txn, jobKey(id), &job)
	}); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *BadgerStore) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var jobs []*models.Job
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return scanJSON(txn, prefixJob, func(val []byte) error {
			j := &models.Job{}
			if err := json.Unmarshal(val, j); err != nil {
				return err
			}
			jobs = append(jobs, j)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Keys are ordered by job id, which is random; order by start time.
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].StartedAt.After(jobs[k].StartedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// ============================================
// HEALTH & LIFECYCLE
// ============================================

func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("healthcheck failed: database is closed")
	}
	return s.db.View(func(*badgerdb.Txn) error { return nil })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
