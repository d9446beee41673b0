package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/misbar-ag/satwatch/internal/monitor"
)

var (
	// ErrNotFound is returned when no data is available for a given site.
	ErrNotFound = errors.New("no data for site")
)

// ResultHistory holds a time-ordered list of result records for a site.
type ResultHistory struct {
	Results []monitor.SiteResult
}

// ErrorEntry is one persisted pipeline error.
type ErrorEntry struct {
	Source    string    `json:"source"`
	Site      string    `json:"site"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryStore is a concurrency-safe in-memory persistence gateway, used for
// local development and tests. When constructed with seed sites it mirrors
// the remote gateway's behaviour of materializing defaults on first load.
type MemoryStore struct {
	mu sync.RWMutex

	sites      []monitor.Site
	thresholds *monitor.AlertThresholds

	// key: site id, value: history
	data map[string]*ResultHistory

	alerts    []monitor.AlertRecord
	errorLog  []ErrorEntry
	lastStats monitor.FleetStats

	// retention configuration
	maxHistory int           // max number of results per site
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional retention limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(seedSites []monitor.Site, maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		sites:      seedSites,
		data:       make(map[string]*ResultHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// LoadSites returns the configured sites.
func (s *MemoryStore) LoadSites(ctx context.Context) ([]monitor.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]monitor.Site, len(s.sites))
	copy(out, s.sites)
	return out, nil
}

// LoadThresholds returns the stored thresholds, materializing the defaults
// on first load.
func (s *MemoryStore) LoadThresholds(ctx context.Context) (monitor.AlertThresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.thresholds == nil {
		t := monitor.DefaultThresholds()
		s.thresholds = &t
	}
	return *s.thresholds, nil
}

// SaveThresholds replaces the stored thresholds.
func (s *MemoryStore) SaveThresholds(ctx context.Context, t monitor.AlertThresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = &t
	return nil
}

// SaveResult appends a new result for a site and enforces retention.
func (s *MemoryStore) SaveResult(ctx context.Context, result monitor.SiteResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[result.SiteID]
	if !ok {
		history = &ResultHistory{}
		s.data[result.SiteID] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results); i++ {
			if !history.Results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Results) {
			history.Results = history.Results[i:]
		}
	}

	return nil
}

// GetLatest returns the most recent result for a site.
func (s *MemoryStore) GetLatest(siteID string) (monitor.SiteResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteID]
	if !ok || len(history.Results) == 0 {
		return monitor.SiteResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// GetRange returns all results for a site between from and to (inclusive).
func (s *MemoryStore) GetRange(siteID string, from, to time.Time) ([]monitor.SiteResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteID]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}

	var result []monitor.SiteResult
	for _, r := range history.Results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// SaveStats records the latest fleet statistics.
func (s *MemoryStore) SaveStats(ctx context.Context, stats monitor.FleetStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStats = stats
	return nil
}

// AppendAlert appends to the alert collection.
func (s *MemoryStore) AppendAlert(ctx context.Context, alert monitor.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

// LogError appends to the error log.
func (s *MemoryStore) LogError(ctx context.Context, source, site, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, ErrorEntry{
		Source:    source,
		Site:      site,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Errors returns a copy of the persisted error log.
func (s *MemoryStore) Errors() []ErrorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ErrorEntry, len(s.errorLog))
	copy(out, s.errorLog)
	return out
}
