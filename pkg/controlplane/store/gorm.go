package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// GORMStore implements Store on top of GORM.
// It supports both SQLite and PostgreSQL backends via the same codebase.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// Open creates the store selected by config.Type.
func Open(ctx context.Context, config *Config) (Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if config.Type == DatabaseTypeBadger {
		return NewBadgerStore(&config.Badger)
	}
	return New(ctx, config)
}

// New creates a SQL-backed store. SQLite schemas are created with GORM
// AutoMigrate; PostgreSQL schemas are managed by versioned migrations.
func New(ctx context.Context, config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if config.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// WAL for concurrent readers, and wait up to 5s on a locked database.
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case DatabaseTypePostgres:
		if err := runMigrations(ctx, &config.Postgres); err != nil {
			return nil, err
		}
		dialector = postgres.Open(config.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch config.Type {
	case DatabaseTypeSQLite:
		// A single connection keeps ":memory:" databases shared and
		// serializes writers without SQLITE_BUSY churn.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	case DatabaseTypePostgres:
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}

	logger.Debug("Store opened", logger.KeyStoreType, string(config.Type))

	return &GORMStore{db: db, config: config}, nil
}

// DB returns the underlying GORM database connection.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// ============================================
// CORE OPTIONS
// ============================================

func (s *GORMStore) GetCoreOptions(ctx context.Context) (*models.CoreOptions, error) {
	return getByField[models.CoreOptions](s.db, ctx, "id", models.CoreOptionsID, models.ErrNotFound)
}

func (s *GORMStore) SaveCoreOptions(ctx context.Context, opts *models.CoreOptions) error {
	row := opts.Clone()
	row.ID = models.CoreOptionsID
	// Save issues an upsert on the primary key and writes zero values too,
	// so a false boolean or a nil image is persisted as such.
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save core options: %w", err)
	}
	opts.UpdatedAt = row.UpdatedAt
	return nil
}

// ============================================
// SERVICE DATA
// ============================================

func (s *GORMStore) ListServiceData(ctx context.Context) ([]*models.ServiceData, error) {
	var results []*models.ServiceData
	if err := s.db.WithContext(ctx).Order("slug, addon").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GORMStore) PutServiceData(ctx context.Context, data *models.ServiceData) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}, {Name: "addon"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(data).Error
}

func (s *GORMStore) DeleteServiceData(ctx context.Context, slug, addon string) error {
	return s.db.WithContext(ctx).
		Where("slug = ? AND addon = ?", slug, addon).
		Delete(&models.ServiceData{}).Error
}

// ============================================
// JOBS
// ============================================

func (s *GORMStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GORMStore) UpdateJob(ctx context.Context, job *models.Job) error {
	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":      job.Status,
			"error":       job.Error,
			"finished_at": job.FinishedAt,
		})
	return checkUpdateResult(result, models.ErrNotFound)
}

func (s *GORMStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return getByField[models.Job](s.db, ctx, "id", id, models.ErrNotFound)
}

func (s *GORMStore) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []*models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ============================================
// HEALTH & LIFECYCLE
// ============================================

func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// getByField retrieves a single record of type T by matching field=value and
// converts gorm.ErrRecordNotFound to notFoundErr.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// checkUpdateResult maps a zero-row update to notFoundErr.
func checkUpdateResult(result *gorm.DB, notFoundErr error) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the given domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

var _ Store = (*GORMStore)(nil)
