package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"verdant-backend/internal/aggregates"
	growthsvc "verdant-backend/internal/growth"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/middleware"
	"verdant-backend/internal/models"
	"verdant-backend/internal/pkg/response"
	"verdant-backend/internal/safename"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// viewCatalog materializes plain sqlite views so the aggregate read path
// works against :memory:.
type viewCatalog struct {
	db *gorm.DB
}

func (c *viewCatalog) SourceExists(ctx context.Context) (bool, error) { return true, nil }

func (c *viewCatalog) ViewExists(ctx context.Context, name safename.SafeName) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = ?`, name.View).
		Scan(&count).Error
	return count > 0, err
}

func (c *viewCatalog) HasUniqueIndex(ctx context.Context, name safename.SafeName) (bool, error) {
	return true, nil
}

func (c *viewCatalog) CreateView(ctx context.Context, name safename.SafeName) error {
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

func (c *viewCatalog) RefreshView(ctx context.Context, name safename.SafeName, concurrently bool) error {
	return nil
}

func (c *viewCatalog) DropView(ctx context.Context, name safename.SafeName) error {
	return c.db.WithContext(ctx).Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", name.View)).Error
}

func setupProjectsTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Project{}, &models.Parcel{}, &models.ProjectView{}))

	svc := &aggregates.Service{
		DB:            db,
		Views:         matviews.NewManager(db, &viewCatalog{db: db}),
		Growth:        growthsvc.NewRegistry(600),
		RetryAttempts: 1,
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	h := &Handlers{Service: svc}
	app.Get("/api/v1/projects/:id/aggregate", h.GetAggregate)
	return app, db
}

func TestGetAggregate_OK(t *testing.T) {
	app, db := setupProjectsTest(t)
	require.NoError(t, db.Create(&models.Project{ID: 42, Name: "Rio Doce", Status: models.StatusActive, ProjectType: models.TypeReforestation}).Error)
	require.NoError(t, db.Create(&models.Parcel{ID: 1, ProjectID: 42, Agb: 12.5}).Error)
	require.NoError(t, db.Create(&models.Parcel{ID: 2, ProjectID: 42, Agb: 7.5}).Error)

	req := httptest.NewRequest("GET", "/api/v1/projects/42/aggregate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body response.SuccessBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(42), data["projectId"])
	assert.Equal(t, float64(2), data["parcelCount"])
	assert.InDelta(t, 20.0, data["totalAgb"].(float64), 1e-9)
	assert.NotNil(t, data["lastMeasuredAt"], "timestamp must survive the view round trip")
}

func TestGetAggregate_InvalidID(t *testing.T) {
	app, _ := setupProjectsTest(t)

	for _, id := range []string{"abc", "0", "-5", "1.5"} {
		req := httptest.NewRequest("GET", "/api/v1/projects/"+id+"/aggregate", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "id %q", id)
	}
}

func TestGetAggregate_UnknownProject(t *testing.T) {
	app, _ := setupProjectsTest(t)

	req := httptest.NewRequest("GET", "/api/v1/projects/999/aggregate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetAggregate_BadFilters(t *testing.T) {
	app, db := setupProjectsTest(t)
	require.NoError(t, db.Create(&models.Project{ID: 1, Name: "P", Status: models.StatusActive, ProjectType: models.TypeReforestation}).Error)

	req := httptest.NewRequest("GET", "/api/v1/projects/1/aggregate?from=yesterday", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/projects/1/aggregate?from=2026-02-01&to=2026-01-01", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
