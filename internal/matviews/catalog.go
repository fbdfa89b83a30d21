package matviews

import (
	"context"
	"fmt"

	"verdant-backend/internal/safename"

	"gorm.io/gorm"
)

// Catalog abstracts the database-catalog operations behind the manager. The
// production implementation runs Postgres DDL; tests substitute a fake.
// Identifiers cannot be bound as statement parameters, so every name that
// reaches an implementation comes from a validated safename.SafeName.
type Catalog interface {
	SourceExists(ctx context.Context) (bool, error)
	ViewExists(ctx context.Context, name safename.SafeName) (bool, error)
	HasUniqueIndex(ctx context.Context, name safename.SafeName) (bool, error)
	CreateView(ctx context.Context, name safename.SafeName) error
	RefreshView(ctx context.Context, name safename.SafeName, concurrently bool) error
	DropView(ctx context.Context, name safename.SafeName) error
}

// PostgresCatalog implements Catalog over a GORM Postgres connection.
type PostgresCatalog struct {
	DB *gorm.DB
}

const parcelsTable = "parcels"

func (c *PostgresCatalog) SourceExists(ctx context.Context) (bool, error) {
	var count int64
	err := c.DB.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, parcelsTable).
		Scan(&count).Error
	return count > 0, err
}

func (c *PostgresCatalog) ViewExists(ctx context.Context, name safename.SafeName) (bool, error) {
	var count int64
	err := c.DB.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM pg_matviews WHERE matviewname = ?`, name.View).
		Scan(&count).Error
	return count > 0, err
}

// HasUniqueIndex reports whether the supporting index is present on the view.
// The manager only ever creates it UNIQUE, so presence implies uniqueness.
func (c *PostgresCatalog) HasUniqueIndex(ctx context.Context, name safename.SafeName) (bool, error) {
	var count int64
	err := c.DB.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM pg_indexes WHERE tablename = ? AND indexname = ?`, name.View, name.Index).
		Scan(&count).Error
	return count > 0, err
}

// CreateView materializes the per-project parcel aggregate and its unique
// index in one transaction. The project id is a validated integer; it is the
// only dynamic piece of the statements.
func (c *PostgresCatalog) CreateView(ctx context.Context, name safename.SafeName) error {
	createView := fmt.Sprintf(
		`CREATE MATERIALIZED VIEW %s AS
			SELECT "projectId",
			       COUNT(*)            AS parcel_count,
			       COALESCE(SUM(agb), 0) AS total_agb,
			       MAX("updatedAt")    AS last_measured_at
			FROM parcels
			WHERE "projectId" = %d
			GROUP BY "projectId"`,
		name.View, name.ProjectID,
	)
	createIndex := fmt.Sprintf(
		`CREATE UNIQUE INDEX %s ON %s ("projectId")`,
		name.Index, name.View,
	)
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(createView).Error; err != nil {
			return err
		}
		return tx.Exec(createIndex).Error
	})
}

func (c *PostgresCatalog) RefreshView(ctx context.Context, name safename.SafeName, concurrently bool) error {
	stmt := "REFRESH MATERIALIZED VIEW "
	if concurrently {
		stmt += "CONCURRENTLY "
	}
	return c.DB.WithContext(ctx).Exec(stmt + name.View).Error
}

// DropView drops the view and, via CASCADE, its index. IF EXISTS keeps the
// operation idempotent.
func (c *PostgresCatalog) DropView(ctx context.Context, name safename.SafeName) error {
	return c.DB.WithContext(ctx).
		Exec(fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s CASCADE", name.View)).Error
}
