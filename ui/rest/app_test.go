package rest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	domainApp "github.com/keyquest/wa-gateway/domains/app"
	"github.com/keyquest/wa-gateway/domains/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppService struct {
	storeUp bool
}

func (f fakeAppService) Status(context.Context) (*domainApp.StatusResponse, error) {
	return &domainApp.StatusResponse{Status: session.StateReady, UptimeMinutes: 7}, nil
}

func (f fakeAppService) QR(context.Context) (*domainApp.QRResponse, error) {
	return &domainApp.QRResponse{}, nil
}

func (f fakeAppService) Logout(context.Context) (*session.LogoutDetails, error) {
	return &session.LogoutDetails{}, nil
}

func (f fakeAppService) StoreHealthy(context.Context) bool { return f.storeUp }

func healthBody(t *testing.T, storeUp bool) map[string]any {
	t.Helper()

	app := fiber.New()
	InitRestApp(app, fakeAppService{storeUp: storeUp}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthReportsStoreConnected(t *testing.T) {
	body := healthBody(t, true)

	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "CONNECTED", body["store"])
	assert.Equal(t, float64(7), body["uptime"])
}

func TestHealthReportsStoreError(t *testing.T) {
	body := healthBody(t, false)

	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ERROR", body["store"])
}
