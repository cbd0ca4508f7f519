package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/RulesService/internal/pkg/rules"
)

// EntitlementController serves merged entitlement snapshots.
type EntitlementController struct {
	rules *rules.Service
}

func NewEntitlementController(rules *rules.Service) *EntitlementController {
	return &EntitlementController{rules: rules}
}

// HandleGet returns the tenant's snapshot. A matching If-None-Match yields
// 304 without a body.
func (ec *EntitlementController) HandleGet(c *fiber.Ctx) error {
	res, err := ec.rules.Entitlements(c.UserContext(), c.Params("tenant_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	etag := fmt.Sprintf("%q", res.ETag)
	c.Set(fiber.HeaderETag, etag)
	// clients revalidate every read with If-None-Match
	c.Set(fiber.HeaderCacheControl, "no-cache")
	if etagMatches(c.Get(fiber.HeaderIfNoneMatch), res.ETag) {
		return c.SendStatus(fiber.StatusNotModified)
	}

	body, err := res.Snapshot.Canonical()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).Type("json").Send(body)
}

// etagMatches compares an If-None-Match header against the raw hex ETag.
// Quoted, weak and comma-separated forms are accepted.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}
