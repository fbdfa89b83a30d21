package aggregates

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"verdant-backend/internal/growth"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/models"
	"verdant-backend/internal/safename"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// sqliteCatalog materializes plain sqlite views with the production SELECT
// so the façade read path can run end to end against :memory:.
type sqliteCatalog struct {
	db *gorm.DB
}

func (c *sqliteCatalog) SourceExists(ctx context.Context) (bool, error) { return true, nil }

func (c *sqliteCatalog) ViewExists(ctx context.Context, name safename.SafeName) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = ?`, name.View).
		Scan(&count).Error
	return count > 0, err
}

func (c *sqliteCatalog) HasUniqueIndex(ctx context.Context, name safename.SafeName) (bool, error) {
	return true, nil
}

func (c *sqliteCatalog) CreateView(ctx context.Context, name safename.SafeName) error {
	return c.db.WithContext(ctx).Exec(fmt.Sprintf(
		`CREATE VIEW %s AS
			SELECT "projectId",
			       COUNT(*)              AS parcel_count,
			       COALESCE(SUM(agb), 0) AS total_agb,
			       MAX("updatedAt")      AS last_measured_at
			FROM parcels
			WHERE "projectId" = %d
			GROUP BY "projectId"`,
		name.View, name.ProjectID,
	)).Error
}

func (c *sqliteCatalog) RefreshView(ctx context.Context, name safename.SafeName, concurrently bool) error {
	return nil
}

func (c *sqliteCatalog) DropView(ctx context.Context, name safename.SafeName) error {
	return c.db.WithContext(ctx).Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", name.View)).Error
}

func setupServiceTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Project{}, &models.Parcel{}, &models.ProjectView{}))

	svc := &Service{
		DB:            db,
		Views:         matviews.NewManager(db, &sqliteCatalog{db: db}),
		Growth:        growth.NewRegistry(600),
		RetryAttempts: 1,
	}
	return svc, db
}

func seedProject(t *testing.T, db *gorm.DB, id int64, status string, agbs ...float64) {
	require.NoError(t, db.Create(&models.Project{
		ID: id, Name: fmt.Sprintf("Project %d", id),
		Status: status, ProjectType: models.TypeReforestation,
	}).Error)
	for i, agb := range agbs {
		require.NoError(t, db.Create(&models.Parcel{
			ID: id*1000 + int64(i), ProjectID: id, Agb: agb,
		}).Error)
	}
}

func TestQueryProjectAggregate_SumsParcels(t *testing.T) {
	svc, db := setupServiceTest(t)
	seedProject(t, db, 42, models.StatusActive, 10.5, 20.25, 4.25)

	row, err := svc.QueryProjectAggregate(context.Background(), 42, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.ProjectID)
	assert.Equal(t, int64(3), row.ParcelCount)
	assert.InDelta(t, 35.0, row.TotalAgb, 1e-9)
	assert.InDelta(t, 35.0*0.47*44.0/12.0, row.Co2Estimate, 1e-9)
	require.NotNil(t, row.LastMeasuredAt)
	assert.WithinDuration(t, time.Now(), *row.LastMeasuredAt, time.Minute)
}

// A project with no parcels yields a zero aggregate, not an error.
func TestQueryProjectAggregate_EmptyProject(t *testing.T) {
	svc, db := setupServiceTest(t)
	seedProject(t, db, 7, models.StatusActive)

	row, err := svc.QueryProjectAggregate(context.Background(), 7, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.ProjectID)
	assert.Zero(t, row.ParcelCount)
	assert.Zero(t, row.TotalAgb)
	assert.Zero(t, row.Co2Estimate)
	assert.Nil(t, row.LastMeasuredAt)
}

// sqlite views drop the timestamp column's affinity, so last_measured_at
// arrives as text; the scan must still produce a time.
func TestMeasuredAt_ScansAllDriverForms(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	var m measuredAt
	require.NoError(t, m.Scan(ts))
	require.NotNil(t, m.pointer())
	assert.True(t, m.pointer().Equal(ts))

	m = measuredAt{}
	require.NoError(t, m.Scan(ts.Format(time.RFC3339Nano)))
	require.NotNil(t, m.pointer())
	assert.True(t, m.pointer().Equal(ts))

	m = measuredAt{}
	require.NoError(t, m.Scan([]byte("2026-03-14 09:26:53.123456789-07:00")))
	assert.NotNil(t, m.pointer())

	m = measuredAt{}
	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m.pointer())

	m = measuredAt{}
	assert.Error(t, m.Scan("not a timestamp"))
}

func TestQueryProjectAggregate_UnknownProject(t *testing.T) {
	svc, _ := setupServiceTest(t)

	_, err := svc.QueryProjectAggregate(context.Background(), 999, Filters{})
	require.Error(t, err)
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, int64(999), notFound.ProjectID)
}

func TestQueryProjectAggregate_RejectsInvertedRange(t *testing.T) {
	svc, db := setupServiceTest(t)
	seedProject(t, db, 1, models.StatusActive, 1)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := svc.QueryProjectAggregate(context.Background(), 1, Filters{From: &from, To: &to})
	require.Error(t, err)
	var invalid *ValidationError
	assert.True(t, errors.As(err, &invalid))
}

func TestQueryGrowth_Delegates(t *testing.T) {
	svc, _ := setupServiceTest(t)

	samples, err := svc.QueryGrowth("Pine", 10)
	require.NoError(t, err)
	assert.Len(t, samples, 10)

	_, err = svc.QueryGrowth("kelp", 10)
	var unknown *growth.UnknownSpeciesError
	assert.True(t, errors.As(err, &unknown))
}

// Archived projects are excluded from the live set.
func TestListProjects_ExcludesArchived(t *testing.T) {
	svc, db := setupServiceTest(t)
	seedProject(t, db, 1, models.StatusActive)
	seedProject(t, db, 2, models.StatusArchived)
	seedProject(t, db, 3, models.StatusPaused)

	projects, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, int64(1), projects[0].ID)
	assert.Equal(t, int64(3), projects[1].ID)

	ids, err := svc.LiveProjectIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

// flakyCatalog fails its first few catalog lookups with a connection error,
// then behaves like the sqlite catalog.
type flakyCatalog struct {
	sqliteCatalog
	failures int
}

func (c *flakyCatalog) ViewExists(ctx context.Context, name safename.SafeName) (bool, error) {
	if c.failures > 0 {
		c.failures--
		return false, &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}
	}
	return c.sqliteCatalog.ViewExists(ctx, name)
}

// Connectivity failures while ensuring the view get the same retry treatment
// as plain reads: retried up to the ceiling, then surfaced as transient.
func TestQueryProjectAggregate_RetriesEnsure(t *testing.T) {
	svc, db := setupServiceTest(t)
	svc.RetryAttempts = 3
	seedProject(t, db, 8, models.StatusActive, 12.5)

	svc.Views = matviews.NewManager(db, &flakyCatalog{sqliteCatalog: sqliteCatalog{db: db}, failures: 2})
	row, err := svc.QueryProjectAggregate(context.Background(), 8, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.ParcelCount)

	seedProject(t, db, 9, models.StatusActive, 1)
	svc.Views = matviews.NewManager(db, &flakyCatalog{sqliteCatalog: sqliteCatalog{db: db}, failures: 100})
	_, err = svc.QueryProjectAggregate(context.Background(), 9, Filters{})
	require.Error(t, err)
	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}

// Transient failures are retried up to the ceiling, then wrapped.
func TestRetry_TransientBackoff(t *testing.T) {
	svc := &Service{RetryAttempts: 3}
	calls := 0
	err := svc.retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = svc.retry(context.Background(), func() error {
		calls++
		return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}

// Non-transient errors surface immediately, no retry.
func TestRetry_FatalNotRetried(t *testing.T) {
	svc := &Service{RetryAttempts: 3}
	calls := 0
	err := svc.retry(context.Background(), func() error {
		calls++
		return errors.New("syntax error")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var transient *TransientError
	assert.False(t, errors.As(err, &transient))
}
