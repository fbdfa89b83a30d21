package middleware

import (
	"errors"

	"verdant-backend/internal/aggregates"
	"verdant-backend/internal/growth"
	"verdant-backend/internal/matviews"
	"verdant-backend/internal/pkg/response"
	"verdant-backend/internal/safename"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. It maps the typed domain errors
// onto the standard error envelope; anything unrecognized is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var (
		fiberErr     *fiber.Error
		invalidID    *safename.InvalidIdentifierError
		unknown      *growth.UnknownSpeciesError
		growthInput  *growth.ValidationError
		filterInput  *aggregates.ValidationError
		notFound     *aggregates.NotFoundError
		transient    *aggregates.TransientError
		conflict     *matviews.ConflictError
		viewCreation *matviews.ViewCreationError
	)

	switch {
	case errors.As(err, &fiberErr):
		code, message = fiberErr.Code, fiberErr.Message
	case errors.As(err, &invalidID):
		code, message = fiber.StatusBadRequest, invalidID.Error()
	case errors.As(err, &growthInput):
		code, message = fiber.StatusBadRequest, growthInput.Error()
	case errors.As(err, &filterInput):
		code, message = fiber.StatusBadRequest, filterInput.Error()
	case errors.As(err, &unknown):
		code, message = fiber.StatusNotFound, unknown.Error()
	case errors.As(err, &notFound):
		code, message = fiber.StatusNotFound, notFound.Error()
	case errors.As(err, &conflict):
		code, message = fiber.StatusConflict, conflict.Error()
	case errors.As(err, &viewCreation):
		code, message = fiber.StatusInternalServerError, viewCreation.Error()
	case errors.As(err, &transient):
		code, message = fiber.StatusServiceUnavailable, "Store temporarily unavailable"
	}

	return response.Error(c, message, code, map[string]interface{}{})
}
