package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"themekeys/internal/license"
)

// PostgresStore implements license.RegistryStore on a Postgres-backed GORM
// connection. BindDomain serializes per license key with a row lock so the
// read-decide-write sequence is atomic per key without blocking activations
// for other keys.
type PostgresStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Connect opens and validates a Postgres connection pool.
func Connect(ctx context.Context, dsn string, maxOpen, maxIdle int, connMaxLifetime time.Duration, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "postgres connect started")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.InfoContext(ctx, "postgres connect completed")
	return &PostgresStore{db: db, logger: logger.With(slog.String("component", "postgres_store"))}, nil
}

// NewPostgresStore wraps an existing GORM handle. Used by integration tests.
func NewPostgresStore(db *gorm.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger.With(slog.String("component", "postgres_store"))}
}

// Migrate creates the schema. Beyond AutoMigrate it installs a partial unique
// index so "at most one active activation per key" is a database constraint
// rather than engine discipline alone. GORM's tag syntax cannot express
// partial indexes, hence the raw statement.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&licenseModel{}, &activationModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	stmt := `CREATE UNIQUE INDEX IF NOT EXISTS idx_activations_one_active
		ON activations (license_key) WHERE is_active`
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create partial unique index: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLicenseByKey(ctx context.Context, key string) (*license.License, error) {
	var rec licenseModel
	if err := s.db.WithContext(ctx).Where("license_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, license.ErrNotFound
		}
		return nil, err
	}
	out := toDomainLicense(rec)
	return &out, nil
}

func (s *PostgresStore) FindActiveActivation(ctx context.Context, key string) (*license.Activation, error) {
	var rows []activationModel
	err := s.db.WithContext(ctx).
		Where("license_key = ? AND is_active = ?", key, true).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, license.ErrNotFound
	case 1:
		out := toDomainActivation(rows[0])
		return &out, nil
	default:
		s.logger.ErrorContext(ctx, "multiple active activations for one key",
			slog.String("license_key", license.MaskKey(key)))
		return nil, license.ErrIntegrity
	}
}

func (s *PostgresStore) BindDomain(ctx context.Context, params license.BindParams) (*license.Activation, error) {
	var bound activationModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the license row; all concurrent binds for this key queue here.
		var lic licenseModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("license_key = ?", params.LicenseKey).
			Take(&lic).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return license.ErrNotFound
			}
			return err
		}

		var active []activationModel
		err = tx.Where("license_key = ? AND is_active = ?", params.LicenseKey, true).
			Limit(2).
			Find(&active).Error
		if err != nil {
			return err
		}
		if len(active) > 1 {
			return license.ErrIntegrity
		}
		if len(active) == 1 && active[0].Domain != params.Domain {
			return &license.ConflictError{CurrentDomain: active[0].Domain}
		}

		assignments := map[string]interface{}{
			"is_active":    true,
			"activated_at": params.Now,
		}
		if params.ThemeID != "" {
			assignments["theme_id"] = params.ThemeID
		}
		rec := activationModel{
			LicenseKey:  params.LicenseKey,
			Domain:      params.Domain,
			ThemeID:     nullableString(params.ThemeID),
			IsActive:    true,
			ActivatedAt: params.Now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "license_key"}, {Name: "domain"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&rec).Error
		if err != nil {
			return err
		}

		err = tx.Model(&licenseModel{}).
			Where("license_key = ?", params.LicenseKey).
			Updates(map[string]interface{}{
				"domain":       params.Domain,
				"is_active":    true,
				"activated_at": params.Now,
			}).Error
		if err != nil {
			return err
		}

		// Re-read: the upsert path leaves rec.ID unset on conflict.
		return tx.Where("license_key = ? AND domain = ?", params.LicenseKey, params.Domain).
			Take(&bound).Error
	})
	if err != nil {
		return nil, err
	}
	out := toDomainActivation(bound)
	return &out, nil
}

func (s *PostgresStore) InsertLicenses(ctx context.Context, batch []license.License) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]licenseModel, 0, len(batch))
	for _, lic := range batch {
		rows = append(rows, licenseModel{
			LicenseKey:  lic.LicenseKey,
			Domain:      nullableString(lic.Domain),
			IsActive:    lic.IsActive,
			CreatedAt:   lic.CreatedAt,
			ActivatedAt: lic.ActivatedAt,
		})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return license.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListLicenses(ctx context.Context, limit int) ([]license.License, error) {
	var rows []licenseModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]license.License, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainLicense(rec))
	}
	return out, nil
}

func (s *PostgresStore) ListActiveActivations(ctx context.Context, limit int) ([]license.Activation, error) {
	var rows []activationModel
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("activated_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]license.Activation, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainActivation(rec))
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
