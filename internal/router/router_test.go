package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse-battery"

type apiFixture struct {
	t      *testing.T
	store  *repositories.Store
	engine *gin.Engine
}

func newAPIFixture(t *testing.T, healthCheck func(context.Context) error) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repositories.NewMemoryStore()
	svc := services.New(store, services.Options{
		Tokens:           utils.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour),
		LedgerMaxRetries: 5,
		ExpiryWindowDays: 14,
	})
	engine := New(svc, Options{ServiceName: "test", AllowedOrigins: []string{"http://localhost:3000"}, HealthCheck: healthCheck})
	return &apiFixture{t: t, store: store, engine: engine}
}

func (a *apiFixture) seedUser(email string, role models.Role) {
	a.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(a.t, err)
	now := time.Now().UTC()
	require.NoError(a.t, a.store.Users.CreateUser(context.Background(), &models.User{
		ID: email, Email: email, Name: email, PasswordHash: string(hash), Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
}

func (a *apiFixture) seedStockMasterData() (productID, locationID string) {
	a.t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(a.t, a.store.Products.CreateProduct(ctx, &models.Product{
		ID: "prod-1", Code: "SKU-1", Name: "Widget", Unit: "pcs", UnitCost: decimal.NewFromInt(3), IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(a.t, a.store.Locations.CreateLocation(ctx, &models.Location{
		ID: "loc-1", Code: "BIN-1", Name: "Bin 1", Type: models.LocationBin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	return "prod-1", "loc-1"
}

func (a *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *apiFixture) login(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.AccessToken)
	return resp.AccessToken
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPIFixture(t, nil)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/ping", "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", "", nil).Code)

	down := newAPIFixture(t, func(context.Context) error { return errors.New("db down") })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/health", "", nil).Code)
}

func TestInboundThroughAPI(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("op@example.com", models.RoleFieldOperator)
	productID, locationID := api.seedStockMasterData()
	token := api.login("op@example.com")

	w := api.do(http.MethodPost, "/api/v1/stock/inbound", token, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 7, "reference": "PO-9",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/stock/"+productID+"/"+locationID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.EqualValues(t, 7, stock["quantity"])
	assert.EqualValues(t, 7, stock["available"])

	w = api.do(http.MethodPost, "/api/v1/stock/outbound", token, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 8, "reference": "SO-1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, utils.ErrCodeInsufficientStock, errorCode(t, w))

	w = api.do(http.MethodPost, "/api/v1/stock/outbound", token, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 0, "reference": "SO-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestsWithoutValidSessionAreRejected(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("op@example.com", models.RoleFieldOperator)

	w := api.do(http.MethodGet, "/api/v1/stock", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.ErrCodeUnauthorized, errorCode(t, w))

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/stock", "forged", nil).Code)

	w = api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "op@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := api.login("op@example.com")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/auth/me", token, nil).Code)
}

func TestViewerIsForbiddenFromWrites(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("viewer@example.com", models.RoleViewer)
	productID, locationID := api.seedStockMasterData()
	token := api.login("viewer@example.com")

	w := api.do(http.MethodPost, "/api/v1/stock/inbound", token, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 1, "reference": "PO-1",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.ErrCodeForbidden, errorCode(t, w))

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/products", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/audit", token, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/roles", token, nil).Code)
}

func TestAuditExportDownload(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("analyst@example.com", models.RoleAnalyst)
	token := api.login("analyst@example.com")

	w := api.do(http.MethodGet, "/api/v1/audit/export?action=login", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Regexp(t, `^attachment; filename="audit-\d+\.csv"$`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2, "header plus the login entry")
	assert.True(t, strings.HasPrefix(lines[0], "id,created_at,user_id,action"))

	w = api.do(http.MethodGet, "/api/v1/audit?action=EXPORT", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.Page[models.AuditLog]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	w = api.do(http.MethodGet, "/api/v1/audit?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStocktakingWorkflowOverAPI(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("op@example.com", models.RoleFieldOperator)
	api.seedUser("mgr@example.com", models.RoleInventoryManager)
	productID, locationID := api.seedStockMasterData()
	op := api.login("op@example.com")
	mgr := api.login("mgr@example.com")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/stock/inbound", op, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 10, "reference": "PO-1",
	}).Code)

	w := api.do(http.MethodPost, "/api/v1/stocktakings", op, map[string]string{"location_id": locationID, "scheduled_date": "2026-03-10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st models.Stocktaking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/stocktakings/"+st.ID+"/start", op, nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/v1/stocktakings/"+st.ID+"/items", op,
		map[string]interface{}{"product_id": productID, "actual_quantity": 12}).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/stocktakings/"+st.ID+"/submit", op, nil).Code)

	w = api.do(http.MethodPost, "/api/v1/stocktakings/"+st.ID+"/approve", op, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "the submitter cannot approve")

	w = api.do(http.MethodPost, "/api/v1/stocktakings/"+st.ID+"/approve", mgr, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/stocktakings/"+st.ID+"/reject", mgr, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.ErrCodeInvalidStateTransition, errorCode(t, w))

	w = api.do(http.MethodGet, "/api/v1/stock/"+productID+"/"+locationID, op, nil)
	var stock map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.EqualValues(t, 12, stock["quantity"])
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("op@example.com", models.RoleFieldOperator)

	w := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "op@example.com", "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.RefreshToken)

	w = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/auth/me", refreshed.AccessToken, nil).Code)

	w = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = api.do(http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.ErrCodeUnauthorized, errorCode(t, w))
}

func TestStockTotalsAndAnalyticsOverAPI(t *testing.T) {
	api := newAPIFixture(t, nil)
	api.seedUser("op@example.com", models.RoleFieldOperator)
	api.seedUser("analyst@example.com", models.RoleAnalyst)
	productID, locationID := api.seedStockMasterData()
	op := api.login("op@example.com")
	analyst := api.login("analyst@example.com")

	w := api.do(http.MethodPost, "/api/v1/stock/inbound", op, map[string]interface{}{
		"product_id": productID, "location_id": locationID, "quantity": 4, "reference": "PO-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/products/"+productID+"/stock", op, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var total models.ProductStockTotal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &total))
	assert.Equal(t, int64(4), total.Available)

	w = api.do(http.MethodGet, "/api/v1/analytics/slow-moving/"+locationID+"?days=30", analyst, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var slow models.SlowMovingReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slow))
	require.Len(t, slow.Items, 1)
	assert.Equal(t, "12.00", slow.Items[0].Value)

	w = api.do(http.MethodGet, "/api/v1/analytics/abc/"+locationID+"?days=abc", analyst, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/analytics/turnover/"+productID, op, nil).Code)
}
