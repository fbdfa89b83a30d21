// Package aggregates is the read façade over the per-project materialized
// views and the growth generator. Callers never touch view names or SQL;
// filters travel as bound parameters only.
package aggregates

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"verdant-backend/internal/growth"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Biomass-to-CO2 conversion: carbon fraction of dry AGB, then C -> CO2.
const (
	agbCarbonFraction = 0.47
	co2PerCarbon      = 44.0 / 12.0
)

// Filters narrows an aggregate read. Bounds apply to the view's
// last_measured_at column and are always bound, never interpolated.
type Filters struct {
	From *time.Time
	To   *time.Time
}

// AggregateRow is one project's aggregate as served to consumers.
type AggregateRow struct {
	ProjectID      int64      `gorm:"column:project_id" json:"projectId"`
	ParcelCount    int64      `gorm:"column:parcel_count" json:"parcelCount"`
	TotalAgb       float64    `gorm:"column:total_agb" json:"totalAgb"`
	Co2Estimate    float64    `gorm:"-" json:"co2Estimate"`
	LastMeasuredAt *time.Time `gorm:"column:last_measured_at" json:"lastMeasuredAt"`
}

// measuredAt scans the view's MAX("updatedAt") column. Postgres hands back a
// time.Time; view columns lose their affinity on sqlite (the test store) and
// come back as text, so both forms are accepted.
type measuredAt struct {
	t     time.Time
	valid bool
}

var measuredAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (m *measuredAt) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		m.valid = false
		return nil
	case time.Time:
		m.t, m.valid = v, true
		return nil
	case string:
		return m.parse(v)
	case []byte:
		return m.parse(string(v))
	}
	return fmt.Errorf("unsupported last_measured_at value of type %T", value)
}

func (m measuredAt) Value() (driver.Value, error) {
	if !m.valid {
		return nil, nil
	}
	return m.t, nil
}

func (m *measuredAt) parse(s string) error {
	for _, layout := range measuredAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			m.t, m.valid = t, true
			return nil
		}
	}
	return fmt.Errorf("unparseable last_measured_at value %q", s)
}

func (m measuredAt) pointer() *time.Time {
	if !m.valid {
		return nil
	}
	t := m.t
	return &t
}

// Service wires the growth registry and the view lifecycle manager behind a
// single query surface.
type Service struct {
	DB            *gorm.DB
	Views         *matviews.Manager
	Growth        *growth.Registry
	RetryAttempts int // transient-failure retry ceiling, >= 1
}

// QueryGrowth delegates to the growth registry.
func (s *Service) QueryGrowth(species string, horizonMonths int) ([]growth.Sample, error) {
	return s.Growth.Generate(species, horizonMonths)
}

// QueryProjectAggregate ensures the project's view exists (creating or
// refreshing as needed) and reads the aggregate row from it.
func (s *Service) QueryProjectAggregate(ctx context.Context, projectID int64, filters Filters) (*AggregateRow, error) {
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, &ValidationError{Reason: "filter 'from' must not be after 'to'"}
	}

	var count int64
	err := s.retry(ctx, func() error {
		return s.DB.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &NotFoundError{ProjectID: projectID}
	}

	// Ensure touches the bookkeeping table and the catalog, so its
	// connectivity failures get the same retry treatment as plain reads.
	var viewName string
	err = s.retry(ctx, func() error {
		viewName, err = s.Views.Ensure(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// viewName is derived from the validated integer id; only the filter
	// values are caller-supplied and they are bound below.
	query := fmt.Sprintf(
		`SELECT parcel_count, total_agb, last_measured_at
		 FROM %s
		 WHERE (? IS NULL OR last_measured_at >= ?)
		   AND (? IS NULL OR last_measured_at <= ?)`,
		viewName,
	)

	var scanned struct {
		ParcelCount    int64      `gorm:"column:parcel_count"`
		TotalAgb       float64    `gorm:"column:total_agb"`
		LastMeasuredAt measuredAt `gorm:"column:last_measured_at"`
	}
	err = s.retry(ctx, func() error {
		return s.DB.WithContext(ctx).Raw(query, filters.From, filters.From, filters.To, filters.To).Scan(&scanned).Error
	})
	if err != nil {
		return nil, err
	}
	row := AggregateRow{
		ProjectID:      projectID,
		ParcelCount:    scanned.ParcelCount,
		TotalAgb:       scanned.TotalAgb,
		Co2Estimate:    scanned.TotalAgb * agbCarbonFraction * co2PerCarbon,
		LastMeasuredAt: scanned.LastMeasuredAt.pointer(),
	}
	return &row, nil
}

// ListProjects returns the live project set (everything not archived),
// ordered by id. This is the synchronizer's fetch path.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.retry(ctx, func() error {
		return s.DB.WithContext(ctx).
			Where("status <> ?", models.StatusArchived).
			Order("id").
			Find(&projects).Error
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// LiveProjectIDs feeds the reconcile sweep with the authoritative id set.
func (s *Service) LiveProjectIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.retry(ctx, func() error {
		return s.DB.WithContext(ctx).Model(&models.Project{}).
			Where("status <> ?", models.StatusArchived).
			Order("id").
			Pluck("id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// retry runs fn, retrying connectivity failures with doubling backoff up to
// the configured attempt ceiling. Non-transient errors surface immediately.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	attempts := s.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := 100 * time.Millisecond
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Transient store failure; retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return &TransientError{Err: err}
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
