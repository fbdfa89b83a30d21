package database

import (
	"verdant-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from a Postgres DSN.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers (PgBouncer,
// Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate creates the tables this service owns. Projects and parcels are
// written upstream but migrated here for development databases; projectViews
// is ours alone.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Project{}, &models.Parcel{}, &models.ProjectView{})
}
