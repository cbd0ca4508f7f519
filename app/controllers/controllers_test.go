package controllers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/RulesService/app/controllers"
	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/catalog"
	"github.com/ManuelReschke/RulesService/internal/pkg/config"
	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
	"github.com/ManuelReschke/RulesService/internal/pkg/events"
	"github.com/ManuelReschke/RulesService/internal/pkg/idempotency"
	"github.com/ManuelReschke/RulesService/internal/pkg/ledger"
	"github.com/ManuelReschke/RulesService/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/RulesService/internal/pkg/pricing"
	"github.com/ManuelReschke/RulesService/internal/pkg/router"
	"github.com/ManuelReschke/RulesService/internal/pkg/rules"
	"github.com/ManuelReschke/RulesService/internal/pkg/snapshotcache"
	"github.com/ManuelReschke/RulesService/internal/pkg/tenants"
	"github.com/ManuelReschke/RulesService/internal/pkg/testhelpers"
)

const (
	serviceHeader = "X-Internal-Service"
	roleHeader    = "X-Internal-Role"
)

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{AdminRoleHeader: roleHeader, InternalServiceHeader: serviceHeader}
	repos := repository.NewRepositories(db)
	l := ledger.New(db)
	layer := snapshotcache.NewLayer(store, time.Minute)
	engine := entitlements.NewEngine(repos.Assignment, time.Minute)
	stats, err := counter.New()
	require.NoError(t, err)
	reader := snapshotcache.NewReader(layer, l, engine, stats)
	guard := idempotency.NewGuard(store, time.Hour, idempotency.ModeReexecute)
	publisher := events.LogPublisher{}

	rulesService := rules.NewService(repos, l, layer, reader, publisher, pricing.NewClient("", 0))

	app := fiber.New()
	router.InstallRouter(app, &router.Handlers{
		Config:       cfg,
		Entitlements: controllers.NewEntitlementController(rulesService),
		Assignments:  controllers.NewAssignmentController(rulesService, guard),
		Tenants:      controllers.NewTenantController(tenants.NewService(repos.Tenant, publisher), guard),
		Catalog:      controllers.NewAdminCatalogController(catalog.NewService(repos, layer)),
		Health:       controllers.NewHealthController(db, store, stats),
	})
	return &testServer{app: app, db: db}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func internal(extra map[string]string) map[string]string {
	h := map[string]string{serviceHeader: "booking"}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

var admin = map[string]string{roleHeader: "admin"}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, "ok", got["status"])
	assert.Contains(t, got, "stats")
}

func TestTenantCreate_IdempotentReplay(t *testing.T) {
	s := newServer(t)
	headers := internal(map[string]string{controllers.HeaderIdempotencyKey: "k1"})
	payload := `{"name":"Test Barbershop"}`

	first, firstBody := s.do(t, "POST", "/api/v1/tenants", payload, headers)
	require.Equal(t, fiber.StatusCreated, first.StatusCode, string(firstBody))
	second, secondBody := s.do(t, "POST", "/api/v1/tenants", payload, headers)
	require.Equal(t, fiber.StatusCreated, second.StatusCode)

	assert.JSONEq(t, string(firstBody), string(secondBody))
	assert.Equal(t, "true", second.Header.Get(controllers.HeaderReplayed))
	assert.Equal(t, "test-barbershop", decode(t, firstBody)["slug"])

	var count int64
	require.NoError(t, s.db.Model(&models.Tenant{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTenantCreate_RequiresIdempotencyKey(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, "POST", "/api/v1/tenants", `{"name":"Shop"}`, internal(nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, "validation_error", got["error"])
	assert.Equal(t, controllers.HeaderIdempotencyKey, got["field"])
}

func TestInternalEndpointsRequireServiceHeader(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, "GET", "/api/v1/entitlements/t1", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, "GET", "/api/v1/admin/plans", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/api/v1/admin/plans", "", map[string]string{roleHeader: "viewer"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/api/v1/admin/plans", "", admin)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestEntitlements_UnknownTenant(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, "GET", "/api/v1/entitlements/01HZZZZZZZZZZZZZZZZZZZZZZZ", "", internal(nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode(t, body)["error"])
}

func TestEntitlements_ETagFlow(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, "POST", "/api/v1/admin/plans",
		`{"code":"silver","name":"Silver","limits":{"stylists":5},"features":{"basic_reporting":true},"pricing_ref":"plan/silver"}`, admin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, "POST", "/api/v1/tenants", `{"name":"Shop"}`,
		internal(map[string]string{controllers.HeaderIdempotencyKey: "create-shop"}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	tenantID := decode(t, body)["tenant_id"].(string)

	resp, body = s.do(t, "PUT", "/api/v1/tenants/"+tenantID+"/plan", `{"plan_code":"silver"}`, internal(nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = s.do(t, "GET", "/api/v1/entitlements/"+tenantID, "", internal(nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	etag := resp.Header.Get(fiber.HeaderETag)
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderCacheControl))

	snap := decode(t, body)
	assert.Equal(t, "silver", snap["plan"])
	assert.EqualValues(t, 5, snap["limits"].(map[string]any)["stylists"])

	resp, body = s.do(t, "GET", "/api/v1/entitlements/"+tenantID, "", internal(map[string]string{fiber.HeaderIfNoneMatch: etag}))
	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Empty(t, body)

	resp, body = s.do(t, "PUT", "/api/v1/tenants/"+tenantID+"/overrides",
		`{"upsert":[{"key":"stylists","value":9}]}`, internal(nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = s.do(t, "GET", "/api/v1/entitlements/"+tenantID, "", internal(map[string]string{fiber.HeaderIfNoneMatch: etag}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEqual(t, etag, resp.Header.Get(fiber.HeaderETag))
	assert.EqualValues(t, 9, decode(t, body)["limits"].(map[string]any)["stylists"])

	_, body = s.do(t, "GET", "/health", "", nil)
	stats := decode(t, body)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats[counter.SnapshotHits])
	assert.EqualValues(t, 2, stats[counter.SnapshotMisses])
	assert.EqualValues(t, 2, stats[counter.SnapshotComputes])
}

func TestAssignments_ValidationErrors(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, "PUT", "/api/v1/tenants/t1/plan", `{"plan_code":`, internal(nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "body", decode(t, body)["field"])

	resp, _ = s.do(t, "PUT", "/api/v1/tenants/t1/plan", "", internal(nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, "GET", "/api/v1/tenants/t1/price-preview?stylists=abc", "", internal(nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "stylists", decode(t, body)["field"])
}

func TestAdminCatalog_CRUD(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, "POST", "/api/v1/admin/addons", `{"code":"kiosk","name":"Kiosk","effect":{"kiosk":true}}`, admin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/v1/admin/addons", `{"code":"kiosk","name":"Kiosk"}`, admin)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body := s.do(t, "GET", "/api/v1/admin/addons", "", admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, body)["addons"], 1)

	resp, body = s.do(t, "PUT", "/api/v1/admin/addons/kiosk", `{"code":"kiosk","name":"Kiosk Mode"}`, admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Kiosk Mode", decode(t, body)["name"])

	resp, _ = s.do(t, "DELETE", "/api/v1/admin/addons/kiosk", "", admin)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/v1/admin/addons/kiosk", "", admin)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, "GET", "/api/v1/nothing-here", "", internal(nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
