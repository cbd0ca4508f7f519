package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/idempotency"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// errorResponse writes the JSON error body for err with the matching status.
func errorResponse(c *fiber.Ctx, err error) error {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": verr.Message, "field": verr.Field})
	case apperrors.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	case apperrors.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	case apperrors.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": err.Error()})
	default:
		log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Internal server error"})
	}
}

// bindJSON decodes the request body into dst. Malformed bodies are a 400.
func bindJSON(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return apperrors.Invalid("body", "request body is required")
	}
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Invalid("body", "malformed JSON body")
	}
	return nil
}

// idempotencyKey returns the trimmed Idempotency-Key header.
func idempotencyKey(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderIdempotencyKey))
}

// mutate runs fn through the idempotency guard when the request carries a
// key, and writes either the fresh or the replayed result.
func mutate(c *fiber.Ctx, guard *idempotency.Guard, payload any, fn idempotency.Handler) error {
	key := idempotencyKey(c)
	if key == "" || guard == nil {
		status, body, err := fn()
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(status).JSON(body)
	}

	op := c.Method() + " " + c.Path()
	rec, replayed, err := guard.Do(c.UserContext(), key, op, payload, fn)
	if err != nil {
		return errorResponse(c, err)
	}
	if replayed {
		c.Set(HeaderReplayed, "true")
	}
	return c.Status(rec.Status).Type("json").Send(rec.Body)
}
