package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(st *fakeStore, srcs []Source) *Service {
	agg := NewAggregator(srcs, nil, st, fastRetry, nil)
	return NewService(st, agg, 15*time.Minute)
}

func TestRefreshAllAggregatesEverySite(t *testing.T) {
	siteA := testSite()
	siteB := testSite()
	siteB.ID = "site2"
	siteB.Name = "Al-Kharj Agricultural Project"

	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.55}
	st := newFakeStore(siteA, siteB)
	svc := newTestService(st, []Source{src})

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := svc.Results()
	if len(results) != 2 {
		t.Fatalf("expected results for 2 sites, got %d", len(results))
	}
	for id, r := range results {
		if r.SiteID != id {
			t.Errorf("result keyed by %q carries site id %q", id, r.SiteID)
		}
	}

	stats := svc.Stats()
	if stats.TotalSites != 2 {
		t.Errorf("expected 2 total sites in stats, got %d", stats.TotalSites)
	}
	if len(st.stats) != 1 {
		t.Errorf("expected stats persisted once, got %d", len(st.stats))
	}
	if svc.Refreshing() {
		t.Error("controller must return to idle after the cycle")
	}
}

func TestRefreshAllEmptySiteListSkipsCycle(t *testing.T) {
	st := newFakeStore() // no sites
	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.5}
	svc := newTestService(st, []Source{src})

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.callCount() != 0 {
		t.Fatalf("expected no adapter calls with empty site list, got %d", src.callCount())
	}
	if svc.Refreshing() {
		t.Error("controller must remain idle")
	}
}

func TestRefreshAllRejectsConcurrentTrigger(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.5, blockCh: block}

	st := newFakeStore(testSite())
	svc := newTestService(st, []Source{src})

	done := make(chan error, 1)
	go func() {
		done <- svc.RefreshAll(context.Background())
	}()

	// Wait for the first cycle to be visibly in flight.
	deadline := time.After(2 * time.Second)
	for !svc.Refreshing() {
		select {
		case <-deadline:
			t.Fatal("first refresh never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := svc.RefreshAll(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Fatalf("expected ErrRefreshInProgress, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	// The rejected trigger must not have produced a second fan-out.
	if got := src.callCount(); got != 1 {
		t.Fatalf("expected a single adapter call, got %d", got)
	}
}

func TestRefreshAllIdempotentExceptTimestamp(t *testing.T) {
	byMetric := map[Metric]*fakeSource{
		MetricNDVI:        {name: "ndvi", metric: MetricNDVI, value: 0.62},
		MetricCloudCover:  {name: "cloud", metric: MetricCloudCover, value: 18},
		MetricTemperature: {name: "temp", metric: MetricTemperature, value: 27.4},
	}

	st := newFakeStore(testSite())
	svc := newTestService(st, allSources(byMetric))

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	first := svc.Results()["site1"]

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	second := svc.Results()["site1"]

	if first.Timestamp.After(second.Timestamp) {
		t.Error("second cycle must carry a newer timestamp")
	}

	first.Timestamp = time.Time{}
	second.Timestamp = time.Time{}

	for m, a := range first.Outcomes {
		b := second.Outcomes[m]
		if a.Status != b.Status || a.Provenance != b.Provenance || a.Error != b.Error {
			t.Errorf("%s outcome differs between cycles: %+v vs %+v", m, a, b)
		}
		if (a.Value == nil) != (b.Value == nil) || (a.Value != nil && *a.Value != *b.Value) {
			t.Errorf("%s value differs between cycles", m)
		}
	}
	if first.Rating != second.Rating || first.Composite != second.Composite {
		t.Errorf("derived fields differ between cycles")
	}
}

func TestRefreshAllSurfacesSiteListFailureAndRecovers(t *testing.T) {
	st := newFakeStore(testSite())
	st.sitesErr = errors.New("gateway unreachable")

	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.5}
	svc := newTestService(st, []Source{src})

	if err := svc.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected fleet-level error")
	}
	if svc.LastError() == nil {
		t.Fatal("expected error surfaced in controller state")
	}
	if svc.Refreshing() {
		t.Fatal("controller must return to idle after total failure")
	}

	// Gateway recovers; the next trigger works and clears the error.
	st.mu.Lock()
	st.sitesErr = nil
	st.mu.Unlock()

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh after recovery failed: %v", err)
	}
	if svc.LastError() != nil {
		t.Errorf("expected last error cleared, got %v", svc.LastError())
	}
}

func TestRefreshAllAccumulatesAlerts(t *testing.T) {
	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.1} // always breaching

	st := newFakeStore(testSite())
	svc := newTestService(st, []Source{src})

	for i := 0; i < 3; i++ {
		if err := svc.RefreshAll(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}

	if got := len(svc.Alerts()); got != 3 {
		t.Fatalf("expected alert log to accumulate 3 records, got %d", got)
	}
	if svc.Stats().TotalAlerts != 3 {
		t.Errorf("stats must count the accumulated log, got %d", svc.Stats().TotalAlerts)
	}
}

func TestUpdateThresholdsAppliesToNextCycle(t *testing.T) {
	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.25}

	st := newFakeStore(testSite())
	svc := newTestService(st, []Source{src})

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(svc.Alerts()); got != 1 {
		t.Fatalf("expected breach with default thresholds, got %d alerts", got)
	}

	// Lower the floor below the observed value; thresholds hot-reload from
	// the gateway on the next cycle.
	if err := svc.UpdateThresholds(context.Background(), AlertThresholds{
		NDVILow:        0.2,
		CloudCoverHigh: 30,
		WaterUsageHigh: 75,
	}); err != nil {
		t.Fatalf("update thresholds: %v", err)
	}

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(svc.Alerts()); got != 1 {
		t.Fatalf("expected no new alert under relaxed thresholds, got %d total", got)
	}

	if got := svc.Thresholds(); got.NDVILow != 0.2 {
		t.Errorf("thresholds not applied: %+v", got)
	}
}

// Guard against accidental sharing of the results map with callers.
func TestResultsReturnsCopy(t *testing.T) {
	src := &fakeSource{name: "ndvi", metric: MetricNDVI, value: 0.5}
	st := newFakeStore(testSite())
	svc := newTestService(st, []Source{src})

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	results := svc.Results()
	delete(results, "site1")

	if _, ok := svc.Result("site1"); !ok {
		t.Fatal("mutating the returned map must not affect controller state")
	}
}
