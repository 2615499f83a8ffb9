package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetinventory/auth"
	"fleetinventory/config"
	"fleetinventory/db/dbtest"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gdb := dbtest.New(t)
	cfg := &config.Config{JWT: config.JWTConfig{SigningKey: "routes-test-key", ExpirationHours: 1}}

	app := fiber.New()
	hub := SetupRoutes(app, gdb, cfg, zap.NewNop())
	t.Cleanup(hub.Close)

	svc := auth.NewService(gdb, zap.NewNop(), cfg.JWT)
	_, err := svc.CreateUser(context.Background(), auth.CreateUserInput{Username: "clerk", Password: "correct-horse"})
	require.NoError(t, err)

	s := &testServer{t: t, app: app}
	resp, body := s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "clerk", "password": "correct-horse",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var login LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	s.token = login.Token
	return s
}

func (s *testServer) do(method, path string, payload any) (*http.Response, []byte) {
	s.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if s.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, out
}

// create posts payload, expects 201 and returns the new id.
func (s *testServer) create(path string, payload any) uint {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, path, payload)
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		ID uint `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(body, &out))
	return out.ID
}

func decodeTotal(t *testing.T, body []byte) decimal.Decimal {
	t.Helper()
	var out struct {
		TotalPrice decimal.Decimal `json:"total_price"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.TotalPrice
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)
	token := s.token
	s.token = ""

	resp, _ := s.do(http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "clerk", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	s.token = token
	resp, body := s.do(http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"username":"clerk"`)
	assert.NotContains(t, string(body), "password")
}

func TestOrderWorkflowOverHTTP(t *testing.T) {
	s := newServer(t)

	supplierID := s.create("/api/v1/suppliers", map[string]any{"name": "Acme"})
	productID := s.create("/api/v1/products", map[string]any{
		"name": "Oil filter", "reference": "REF001", "unit_price": "10.00",
	})
	orderID := s.create("/api/v1/orders", map[string]any{"supplier_id": supplierID})

	s.create("/api/v1/orderitems", map[string]any{"order_id": orderID, "product_id": productID, "quantity": 2})

	resp, body := s.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", orderID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decodeTotal(t, body).Equal(decimal.NewFromInt(20)), string(body))

	resp, body = s.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d/invoice", orderID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), fmt.Sprintf(`"invoice_number":"INV-%d"`, orderID))

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/v1/orders/%d", orderID), map[string]any{"is_delivered": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var order struct {
		Status              string  `json:"status"`
		DeliveryOrderNumber *string `json:"delivery_order_number"`
	}
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, "COMPLETED", order.Status)
	require.NotNil(t, order.DeliveryOrderNumber)
	assert.Len(t, *order.DeliveryOrderNumber, 8)

	resp, body = s.do(http.MethodGet, "/api/v1/orders?status=COMPLETED", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var completed []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Len(t, completed, 1)
}

func TestValidationErrorShape(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(http.MethodPost, "/api/v1/orderitems", map[string]any{"order_id": 1, "product_id": 1, "quantity": 0})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var out struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Validation failed", out.Error)
	assert.Equal(t, "must be at least 1", out.Details["quantity"])

	resp, _ = s.do(http.MethodGet, "/api/v1/orders?status=LOST", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/orders/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotFoundAndConflict(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(http.MethodGet, "/api/v1/orders/999", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	s.create("/api/v1/products", map[string]any{"name": "Bolt", "reference": "B-1", "unit_price": "1"})
	resp, _ = s.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "Nut", "reference": "B-1", "unit_price": "1"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestReparationWorkflowOverHTTP(t *testing.T) {
	s := newServer(t)

	vehicleID := s.create("/api/v1/vehicles", map[string]any{"name": "Truck 1", "license_plate": "12345-A-6"})
	filter := s.create("/api/v1/products", map[string]any{"name": "Air filter", "reference": "AF-10", "unit_price": "50.00"})
	oil := s.create("/api/v1/products", map[string]any{"name": "Engine oil", "reference": "EO-20", "unit_price": "20.00"})

	repID := s.create("/api/v1/reparations", map[string]any{
		"vehicle_id":    vehicleID,
		"date_repaired": "2024-03-01T10:00:00Z",
		"products":      []map[string]any{{"product_id": filter, "quantity": 2}},
	})

	resp, body := s.do(http.MethodPut, fmt.Sprintf("/api/v1/reparations/%d", repID), map[string]any{
		"vehicle_id": vehicleID,
		"products":   []map[string]any{{"product_id": oil, "quantity": 1}},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decodeTotal(t, body).Equal(decimal.NewFromInt(20)), string(body))

	resp, _ = s.do(http.MethodPost, "/api/v1/reparations", map[string]any{
		"vehicle_id":    vehicleID,
		"date_repaired": "2024-03-01T10:00:00Z",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodPost, fmt.Sprintf("/api/v1/reparations/%d/invoice", repID), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	resp, _ = s.do(http.MethodPost, fmt.Sprintf("/api/v1/reparations/%d/invoice", repID), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.do(http.MethodGet, fmt.Sprintf("/api/v1/vehicles/%d/reparations/latest", vehicleID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"driver_id":null`)

	resp, body = s.do(http.MethodGet, "/api/v1/reparations/export", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.NotEmpty(t, body)
}
