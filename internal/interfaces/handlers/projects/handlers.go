package projects

import (
	"strconv"
	"time"

	"verdant-backend/internal/aggregates"
	"verdant-backend/internal/pkg/response"
	"verdant-backend/internal/safename"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves per-project aggregate queries.
type Handlers struct {
	Service *aggregates.Service
}

// GetAggregate handles GET /api/v1/projects/:id/aggregate?from=&to=.
func (h *Handlers) GetAggregate(c *fiber.Ctx) error {
	raw := c.Params("id")
	projectID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || projectID <= 0 {
		return &safename.InvalidIdentifierError{Input: raw, Reason: "project id must be a positive integer"}
	}

	filters, err := parseFilters(c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}

	row, err := h.Service.QueryProjectAggregate(c.Context(), projectID, filters)
	if err != nil {
		return err
	}
	return response.Success(c, "Project aggregate", row, nil)
}

// parseFilters accepts RFC 3339 timestamps or plain dates.
func parseFilters(from, to string) (aggregates.Filters, error) {
	var filters aggregates.Filters
	parse := func(value, field string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return &t, nil
			}
		}
		return nil, &aggregates.ValidationError{Reason: "filter '" + field + "' must be an RFC 3339 timestamp or YYYY-MM-DD date"}
	}

	var err error
	if filters.From, err = parse(from, "from"); err != nil {
		return filters, err
	}
	if filters.To, err = parse(to, "to"); err != nil {
		return filters, err
	}
	return filters, nil
}
