package snapshots

import (
	"verdant-backend/internal/livesync"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the synchronizer's current snapshot to HTTP consumers.
// Streaming consumers subscribe in-process; this surface serves the map UI's
// initial load and resync requests.
type Handlers struct {
	Sync *livesync.Synchronizer
}

// GetSnapshot handles GET /api/v1/projects/snapshot.
func (h *Handlers) GetSnapshot(c *fiber.Ctx) error {
	snap, ok := h.Sync.Current()
	if !ok {
		return response.Error(c, "Snapshot not ready", fiber.StatusServiceUnavailable, nil)
	}
	return response.Success(c, "Current project snapshot", snap, fiber.Map{
		"state": h.Sync.State().String(),
	})
}
