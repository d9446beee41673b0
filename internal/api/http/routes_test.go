package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/misbar-ag/satwatch/internal/store"
)

type staticSource struct {
	metric monitor.Metric
	value  float64
}

func (s staticSource) Name() string           { return "static-" + string(s.metric) }
func (s staticSource) Metric() monitor.Metric { return s.metric }
func (s staticSource) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	return s.value, nil
}

func newTestApp(t *testing.T) (*fiber.App, *monitor.Service) {
	t.Helper()

	memStore := store.NewMemoryStore(store.DefaultSites(), 10, time.Hour)
	agg := monitor.NewAggregator(
		[]monitor.Source{staticSource{metric: monitor.MetricNDVI, value: 0.55}},
		nil,
		memStore,
		monitor.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, BackoffFactor: 2},
		nil,
	)
	svc := monitor.NewService(memStore, agg, 15*time.Minute)

	app := fiber.New()
	RegisterRoutes(app, svc, memStore)
	return app, svc
}

func TestSitesEndpointListsSeededSites(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sites", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Sites []monitor.Site `json:"sites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sites) != 4 {
		t.Fatalf("expected the 4 seeded sites, got %d", len(body.Sites))
	}
}

func TestResultEndpointBeforeAndAfterRefresh(t *testing.T) {
	app, svc := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/results/site1", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any refresh, got %d", resp.StatusCode)
	}

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/results/site1", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after refresh, got %d", resp.StatusCode)
	}

	var result monitor.SiteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SiteID != "site1" {
		t.Errorf("unexpected site id %q", result.SiteID)
	}
}

func TestStatusEndpointReportsIdle(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Refreshing      bool   `json:"refreshing"`
		RefreshInterval string `json:"refreshInterval"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Refreshing {
		t.Error("expected idle controller")
	}
	if body.RefreshInterval != "15m0s" {
		t.Errorf("unexpected interval %q", body.RefreshInterval)
	}
}

func TestRefreshEndpointAccepted(t *testing.T) {
	app, svc := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	// The detached cycle finishes quickly with static sources.
	deadline := time.After(2 * time.Second)
	for len(svc.Results()) == 0 {
		select {
		case <-deadline:
			t.Fatal("detached refresh never produced results")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestUpdateThresholdsValidation(t *testing.T) {
	app, svc := newTestApp(t)

	// Out-of-range NDVI floor is rejected.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/thresholds",
		strings.NewReader(`{"ndvi_low": 2.0, "cloud_cover_high": 30, "water_usage_high": 75}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range threshold, got %d", resp.StatusCode)
	}

	// A valid update is applied.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/thresholds",
		strings.NewReader(`{"ndvi_low": 0.25, "cloud_cover_high": 40, "water_usage_high": 80}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := svc.Thresholds(); got.NDVILow != 0.25 || got.CloudCoverHigh != 40 {
		t.Errorf("thresholds not applied: %+v", got)
	}
}

func TestThresholdsEndpointReturnsDefaults(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/thresholds", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got monitor.AlertThresholds
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != monitor.DefaultThresholds() {
		t.Errorf("expected defaults, got %+v", got)
	}
}
