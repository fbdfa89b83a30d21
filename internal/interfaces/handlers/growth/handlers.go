package growth

import (
	"verdant-backend/internal/aggregates"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves growth projection queries.
type Handlers struct {
	Service *aggregates.Service
}

// GetGrowthCurve handles GET /api/v1/growth?species=...&months=N.
// Validation and species lookup happen in the growth registry; typed errors
// are mapped by the global error handler.
func (h *Handlers) GetGrowthCurve(c *fiber.Ctx) error {
	species := c.Query("species")
	months := c.QueryInt("months", 0)

	samples, err := h.Service.QueryGrowth(species, months)
	if err != nil {
		return err
	}
	return response.Success(c, "Growth curve generated", fiber.Map{
		"species":       species,
		"horizonMonths": months,
		"samples":       samples,
	}, nil)
}
