package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginetest "github.com/machshop/kitting/pkg/infrastructure/testing"
	"github.com/machshop/kitting/pkg/interfaces/rest"
)

func newAPI() (http.Handler, *enginetest.Scenario) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 5).
		AddBOMLine("A", "B", 2, 10).
		AddBOMLine("A", "C", 1, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final").
		AddStock("B", 10).
		AddStock("C", 10).
		AddLocation("STG-A", 5, 1)

	router := rest.NewRouter(s.Log, rest.RouterDeps{
		Service:        s.Service(),
		Shortages:      s.Shortages,
		Locations:      s.Locations,
		Events:         s.Events,
		AllowedOrigins: []string{"*"},
	})
	return router, s
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCreateKitEndpoint(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1",
		"stage":         "final",
		"actor":         "planner",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[struct {
		Kit       rest.KitView        `json:"kit"`
		Shortages []rest.ShortageView `json:"shortages"`
	}](t, rec)

	assert.Equal(t, "KIT-000001", resp.Kit.ID)
	assert.Equal(t, "Planned", resp.Kit.Status)
	assert.Len(t, resp.Kit.Items, 2)
	assert.Empty(t, resp.Shortages)
}

func TestCreateKitValidatesBody(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateKitUnknownWorkOrder(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-404",
		"stage":         "final",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListKitsByWorkOrder(t *testing.T) {
	api, _ := newAPI()
	doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1", "stage": "final",
	})

	rec := doJSON(t, api, http.MethodGet, "/api/v1/kits?work_order=WO-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kits := decode[[]rest.KitView](t, rec)
	require.Len(t, kits, 1)
	assert.Equal(t, "KIT-000001", kits[0].ID)

	rec = doJSON(t, api, http.MethodGet, "/api/v1/kits", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetKitNotFound(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodGet, "/api/v1/kits/KIT-404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKitLifecycleOverHTTP(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1", "stage": "final", "actor": "planner",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/stage", map[string]any{
		"capacity": "2", "actor": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	kit := decode[rest.KitView](t, rec)
	assert.Equal(t, "Staging", kit.Status)
	assert.Equal(t, "STG-A", kit.LocationID)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/scan", map[string]string{
		"part": "B", "quantity": "2", "condition": "Good", "actor": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/scan", map[string]string{
		"part": "C", "quantity": "1", "condition": "Good", "actor": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/complete", map[string]string{"actor": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	kit = decode[rest.KitView](t, rec)
	assert.Equal(t, "Staged", kit.Status)
	assert.NotNil(t, kit.StagedAt)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/issue", map[string]string{"actor": "supervisor"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/consume", map[string]string{"actor": "floor"})
	require.Equal(t, http.StatusOK, rec.Code)
	kit = decode[rest.KitView](t, rec)
	assert.Equal(t, "Consumed", kit.Status)
}

func TestStageRejectsBadCapacity(t *testing.T) {
	api, _ := newAPI()
	doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1", "stage": "final",
	})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/stage", map[string]any{
		"capacity": "0",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStageTwiceConflicts(t *testing.T) {
	api, _ := newAPI()
	doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1", "stage": "final",
	})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/stage", map[string]any{"capacity": "2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/stage", map[string]any{"capacity": "2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompleteBeforeScansConflicts(t *testing.T) {
	api, _ := newAPI()
	doJSON(t, api, http.MethodPost, "/api/v1/kits", map[string]string{
		"work_order_id": "WO-1", "stage": "final",
	})
	doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/stage", map[string]any{"capacity": "2"})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/kits/KIT-000001/complete", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryShortagesRejectsBadSeverity(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodGet, "/api/v1/shortages?severity=Catastrophic", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLocationsEndpoint(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodGet, "/api/v1/locations", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	locations := decode[[]rest.LocationView](t, rec)
	require.Len(t, locations, 1)
	assert.Equal(t, "STG-A", locations[0].ID)
	assert.Equal(t, "Available", locations[0].Status)
}

func TestHealthz(t *testing.T) {
	api, _ := newAPI()

	rec := doJSON(t, api, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
