// Package matviews manages the per-project materialized views that back the
// aggregation read path: create on first use, refresh when stale, drop when
// the owning project disappears upstream.
package matviews

import (
	"context"
	"errors"
	"sync"
	"time"

	"verdant-backend/internal/models"
	"verdant-backend/internal/safename"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Manager owns the lifecycle of per-project views. Operations on the same
// project id are mutually exclusive; different ids run in parallel.
type Manager struct {
	DB      *gorm.DB
	Catalog Catalog

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	inflight map[int64]*ensureCall
}

type ensureCall struct {
	done chan struct{}
	view string
	err  error
}

func NewManager(db *gorm.DB, catalog Catalog) *Manager {
	return &Manager{
		DB:       db,
		Catalog:  catalog,
		locks:    make(map[int64]*sync.Mutex),
		inflight: make(map[int64]*ensureCall),
	}
}

func (m *Manager) lockFor(projectID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[projectID] = lock
	}
	return lock
}

// Ensure makes sure a fresh materialized view exists for projectID and
// returns its name. Idempotent: an existing non-stale view is returned as-is,
// a stale one is refreshed first. Concurrent calls for the same id collapse
// into a single materialization attempt; late callers wait for its result.
func (m *Manager) Ensure(ctx context.Context, projectID int64) (string, error) {
	name, err := safename.ForProject(projectID)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if call, ok := m.inflight[projectID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.view, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &ensureCall{done: make(chan struct{})}
	m.inflight[projectID] = call
	m.mu.Unlock()

	call.view, call.err = m.ensure(ctx, name)

	m.mu.Lock()
	delete(m.inflight, projectID)
	m.mu.Unlock()
	close(call.done)

	return call.view, call.err
}

func (m *Manager) ensure(ctx context.Context, name safename.SafeName) (string, error) {
	lock := m.lockFor(name.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	var rec models.ProjectView
	err := m.DB.WithContext(ctx).First(&rec, `"projectId" = ?`, name.ProjectID).Error
	switch {
	case err == nil:
		if !rec.Stale {
			return rec.ViewName, nil
		}
		return m.refresh(ctx, name)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return m.create(ctx, name)
	default:
		return "", err
	}
}

func (m *Manager) create(ctx context.Context, name safename.SafeName) (string, error) {
	exists, err := m.Catalog.ViewExists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		// Catalog object without a bookkeeping row: someone else made it.
		return "", &ConflictError{Name: name.View}
	}
	ok, err := m.Catalog.SourceExists(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &ViewCreationError{ProjectID: name.ProjectID, Err: errors.New("source table parcels does not exist")}
	}
	if err := m.Catalog.CreateView(ctx, name); err != nil {
		return "", &ViewCreationError{ProjectID: name.ProjectID, Err: err}
	}
	now := time.Now()
	rec := models.ProjectView{
		ProjectID:   name.ProjectID,
		ViewName:    name.View,
		IndexName:   name.Index,
		RefreshedAt: &now,
	}
	if err := m.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", err
	}
	log.Info().Int64("project_id", name.ProjectID).Str("view", name.View).Msg("Materialized view created")
	return name.View, nil
}

// refresh prefers REFRESH CONCURRENTLY (no visibility gap) when the unique
// index is in place; otherwise it drops and recreates, accepting a brief
// unavailability window, and logs the degraded refresh.
func (m *Manager) refresh(ctx context.Context, name safename.SafeName) (string, error) {
	hasIndex, err := m.Catalog.HasUniqueIndex(ctx, name)
	if err != nil {
		return "", err
	}
	if hasIndex {
		if err := m.Catalog.RefreshView(ctx, name, true); err != nil {
			return "", err
		}
	} else {
		log.Warn().Str("view", name.View).Msg("Unique index missing; degraded refresh via drop-and-recreate")
		if err := m.Catalog.DropView(ctx, name); err != nil {
			return "", err
		}
		if err := m.Catalog.CreateView(ctx, name); err != nil {
			return "", &ViewCreationError{ProjectID: name.ProjectID, Err: err}
		}
	}
	now := time.Now()
	err = m.DB.WithContext(ctx).Model(&models.ProjectView{}).
		Where(`"projectId" = ?`, name.ProjectID).
		Updates(map[string]interface{}{"stale": false, "refreshedAt": now}).Error
	if err != nil {
		return "", err
	}
	return name.View, nil
}

// MarkStale flags the view for refresh on next Ensure. Marking a project that
// has no view yet is a no-op.
func (m *Manager) MarkStale(ctx context.Context, projectID int64) error {
	if _, err := safename.ForProject(projectID); err != nil {
		return err
	}
	return m.DB.WithContext(ctx).Model(&models.ProjectView{}).
		Where(`"projectId" = ?`, projectID).
		Update("stale", true).Error
}

// Drop removes the view and its index atomically. Idempotent: dropping an
// absent view succeeds as a no-op.
func (m *Manager) Drop(ctx context.Context, projectID int64) error {
	name, err := safename.ForProject(projectID)
	if err != nil {
		return err
	}
	lock := m.lockFor(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.Catalog.DropView(ctx, name); err != nil {
		return err
	}
	if err := m.DB.WithContext(ctx).Delete(&models.ProjectView{}, `"projectId" = ?`, projectID).Error; err != nil {
		return err
	}
	log.Info().Int64("project_id", projectID).Str("view", name.View).Msg("Materialized view dropped")
	return nil
}

// Reconcile drops every managed view whose project id is not in liveIDs and
// returns the dropped view names for audit logging. This is the periodic
// garbage-collection sweep for projects deleted or archived upstream.
func (m *Manager) Reconcile(ctx context.Context, liveIDs []int64) ([]string, error) {
	live := make(map[int64]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}

	var recs []models.ProjectView
	if err := m.DB.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}

	var dropped []string
	var errs []error
	for _, rec := range recs {
		if _, ok := live[rec.ProjectID]; ok {
			continue
		}
		if err := m.Drop(ctx, rec.ProjectID); err != nil {
			errs = append(errs, err)
			continue
		}
		dropped = append(dropped, rec.ViewName)
	}
	if len(dropped) > 0 {
		log.Info().Strs("views", dropped).Msg("Reconcile sweep dropped orphan views")
	}
	return dropped, errors.Join(errs...)
}
