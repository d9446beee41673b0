package monitor

import (
	"context"
)

// Source abstracts one external observation service producing a single
// scalar metric for a site (e.g. Sentinel Hub NDVI, NASA POWER temperature).
// A Source must fail loudly when the service returns no usable value; it
// never substitutes historical defaults itself — the aggregator does that.
type Source interface {
	Name() string
	Metric() Metric
	Fetch(ctx context.Context, site Site) (float64, error)
}

// ImagerySource abstracts an imagery catalog (Landsat, Sentinel-2).
// Unlike a scalar Source, a catalog adapter can synthesize a degraded report
// from the site's fallback bundle when the catalog is unreachable: Historical
// returns that report, flagged Synthetic with a DataSource naming the archive,
// or false when the site carries no archive values for the program.
type ImagerySource interface {
	Name() string
	Program() Program
	Fetch(ctx context.Context, site Site) (ImageryReport, error)
	Historical(site Site) (ImageryReport, bool)
}

// Store is the persistence gateway contract: a remote document store the
// pipeline writes results, alerts, stats and errors to, and reads site
// definitions and thresholds from. Implementations must treat writes as
// best-effort; the refresh cycle never depends on them succeeding.
type Store interface {
	LoadSites(ctx context.Context) ([]Site, error)
	LoadThresholds(ctx context.Context) (AlertThresholds, error)
	SaveThresholds(ctx context.Context, t AlertThresholds) error
	SaveResult(ctx context.Context, result SiteResult) error
	SaveStats(ctx context.Context, stats FleetStats) error
	AppendAlert(ctx context.Context, alert AlertRecord) error
	LogError(ctx context.Context, source, site, message string) error
}
