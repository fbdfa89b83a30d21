package admin

import (
	"strconv"

	"verdant-backend/internal/aggregates"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/pkg/response"
	"verdant-backend/internal/safename"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes operator actions on the view lifecycle. All routes sit
// behind the admin-key middleware.
type Handlers struct {
	Service *aggregates.Service
	Views   *matviews.Manager
}

// Reconcile handles POST /api/v1/admin/reconcile: runs the orphan-view sweep
// against the authoritative live id set and reports dropped names.
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	ids, err := h.Service.LiveProjectIDs(c.Context())
	if err != nil {
		return err
	}
	dropped, err := h.Views.Reconcile(c.Context(), ids)
	if err != nil {
		return err
	}
	if dropped == nil {
		dropped = []string{}
	}
	return response.Success(c, "Reconcile sweep finished", fiber.Map{
		"dropped": dropped,
	}, nil)
}

// RefreshView handles POST /api/v1/admin/projects/:id/refresh: marks the
// project's view stale and refreshes it immediately.
func (h *Handlers) RefreshView(c *fiber.Ctx) error {
	raw := c.Params("id")
	projectID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || projectID <= 0 {
		return &safename.InvalidIdentifierError{Input: raw, Reason: "project id must be a positive integer"}
	}
	if err := h.Views.MarkStale(c.Context(), projectID); err != nil {
		return err
	}
	view, err := h.Views.Ensure(c.Context(), projectID)
	if err != nil {
		return err
	}
	return response.Success(c, "View refreshed", fiber.Map{"view": view}, nil)
}
