package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// ErrRefreshInProgress is returned when a trigger arrives while a refresh is
// already running. The in-flight refresh is never interrupted and a second
// fan-out is never started.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Service is the fleet refresh controller. It owns the current map of site
// results, the fleet statistics and the accumulated alert log for the
// session; the persistence gateway is a write-behind mirror, not the source
// of truth for an in-flight cycle.
type Service struct {
	store    Store
	agg      *Aggregator
	interval time.Duration

	mu         sync.RWMutex
	refreshing bool
	results    map[string]SiteResult
	fleet      FleetStats
	alerts     []AlertRecord
	thresholds AlertThresholds
	lastErr    error
}

// NewService creates the controller. interval is the configured refresh
// period the scheduler re-arms on.
func NewService(store Store, agg *Aggregator, interval time.Duration) *Service {
	return &Service{
		store:      store,
		agg:        agg,
		interval:   interval,
		results:    make(map[string]SiteResult),
		thresholds: DefaultThresholds(),
	}
}

// RefreshAll runs one full fleet refresh: loads sites and thresholds from
// the gateway, aggregates every site in parallel, recomputes and persists
// fleet statistics. Exactly one refresh runs at a time; a concurrent trigger
// gets ErrRefreshInProgress. The controller always returns to idle, even on
// total failure.
func (s *Service) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInProgress
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	sites, err := s.store.LoadSites(ctx)
	if err != nil {
		log.Printf("refresh: failed to load sites: %v", err)
		s.setLastError(err)
		return err
	}
	if len(sites) == 0 {
		log.Printf("refresh: no sites configured; skipping cycle")
		return nil
	}

	// Thresholds may have changed in the gateway between cycles.
	thresholds, err := s.store.LoadThresholds(ctx)
	if err != nil {
		log.Printf("refresh: failed to load thresholds, using current: %v", err)
		thresholds = s.Thresholds()
	} else {
		s.setThresholds(thresholds)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		results   = make(map[string]SiteResult, len(sites))
		newAlerts []AlertRecord
	)

	for _, site := range sites {
		site := site
		wg.Add(1)
		go func() {
			defer wg.Done()

			result, alerts := s.agg.Aggregate(ctx, site, thresholds)

			mu.Lock()
			results[site.ID] = result
			newAlerts = append(newAlerts, alerts...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.mu.Lock()
	s.results = results
	s.alerts = append(s.alerts, newAlerts...)
	s.fleet = computeFleetStats(results, len(s.alerts))
	s.lastErr = nil
	fleet := s.fleet
	s.mu.Unlock()

	if err := s.store.SaveStats(ctx, fleet); err != nil {
		log.Printf("refresh: failed to persist fleet stats: %v", err)
	}

	log.Printf("refresh: completed cycle for %d sites (%d new alerts)", len(sites), len(newAlerts))
	return nil
}

// Refreshing reports whether a refresh cycle is currently running.
func (s *Service) Refreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

// Results returns a copy of the most recent per-site results.
func (s *Service) Results() map[string]SiteResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]SiteResult, len(s.results))
	for id, r := range s.results {
		out[id] = r
	}
	return out
}

// Result returns the most recent record for one site.
func (s *Service) Result(siteID string) (SiteResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[siteID]
	return r, ok
}

// Stats returns the most recent fleet statistics.
func (s *Service) Stats() FleetStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fleet
}

// Alerts returns a copy of the accumulated alert log.
func (s *Service) Alerts() []AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AlertRecord, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Interval is the configured refresh period.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// LastError reports the most recent fleet-level failure, cleared by the next
// successful cycle.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Thresholds returns the thresholds currently in effect.
func (s *Service) Thresholds() AlertThresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// UpdateThresholds persists new thresholds to the gateway and applies them
// from the next cycle onward.
func (s *Service) UpdateThresholds(ctx context.Context, t AlertThresholds) error {
	if err := s.store.SaveThresholds(ctx, t); err != nil {
		return err
	}
	s.setThresholds(t)
	return nil
}

func (s *Service) setThresholds(t AlertThresholds) {
	s.mu.Lock()
	s.thresholds = t
	s.mu.Unlock()
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// computeFleetStats derives the fleet summary from one cycle's results.
func computeFleetStats(results map[string]SiteResult, totalAlerts int) FleetStats {
	fs := FleetStats{
		TotalSites:  len(results),
		TotalAlerts: totalAlerts,
		UpdatedAt:   time.Now().UTC(),
	}

	ndvi := make([]float64, 0, len(results))
	for _, r := range results {
		ndvi = append(ndvi, r.Composite.Average)

		if io, ok := r.Imagery[ProgramLandsat]; ok && io.Status == StatusSuccess {
			fs.SuccessfulLandsat++
		}
		if io, ok := r.Imagery[ProgramSentinel2]; ok && io.Status == StatusSuccess {
			fs.SuccessfulSentinel++
		}
		if r.Rating == RatingHigh {
			fs.HighQualitySites++
		}
		if lowCloud(r) {
			fs.LowCloudCover++
		}
	}

	if len(ndvi) > 0 {
		if mean, err := stats.Mean(ndvi); err == nil {
			fs.AverageNDVI = mean
		}
	}
	return fs
}

// lowCloud reports whether both programs saw the site under their excellent
// cloud-cover cut points.
func lowCloud(r SiteResult) bool {
	cutoffs := DefaultQualityCutoffs()
	for program, c := range cutoffs {
		io, ok := r.Imagery[program]
		if !ok || io.Report == nil || io.Report.CloudCover >= c.ExcellentBelow {
			return false
		}
	}
	return true
}
