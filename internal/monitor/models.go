package monitor

import (
	"time"
)

// Metric identifies one tracked observation for a site.
type Metric string

const (
	MetricNDVI         Metric = "ndvi"
	MetricCloudCover   Metric = "cloud_cover"
	MetricTemperature  Metric = "temperature"
	MetricSoilMoisture Metric = "soil_moisture"
	MetricWaterUsage   Metric = "water_usage"
)

// Metrics lists every scalar metric tracked per site, in display order.
var Metrics = []Metric{
	MetricNDVI,
	MetricCloudCover,
	MetricTemperature,
	MetricSoilMoisture,
	MetricWaterUsage,
}

// Program identifies an imagery catalog a site is addressed in.
type Program string

const (
	ProgramLandsat   Program = "landsat"
	ProgramSentinel2 Program = "sentinel-2"
)

// Status reports whether a live fetch for a metric succeeded.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Provenance distinguishes measured values from historical substitutes.
type Provenance string

const (
	ProvenanceLive       Provenance = "live"
	ProvenanceHistorical Provenance = "historical"
)

// FallbackBundle holds a site's last-known-good defaults, substituted
// when the corresponding live source is unavailable.
type FallbackBundle struct {
	NDVI         *float64 `json:"ndvi,omitempty"`
	CloudCover   *float64 `json:"cloudCover,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	SoilMoisture *float64 `json:"soilMoisture,omitempty"`
	WaterUsage   *float64 `json:"waterUsage,omitempty"`

	// Per-program archive values used by the imagery catalog adapters.
	HistoricalNDVI    map[Program]float64 `json:"historicalNdvi,omitempty"`
	TypicalCloudCover map[Program]float64 `json:"typicalCloudCover,omitempty"`
}

// Value returns the bundle's default for a scalar metric, if one is stored.
func (b FallbackBundle) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricNDVI:
		p = b.NDVI
	case MetricCloudCover:
		p = b.CloudCover
	case MetricTemperature:
		p = b.Temperature
	case MetricSoilMoisture:
		p = b.SoilMoisture
	case MetricWaterUsage:
		p = b.WaterUsage
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Site is immutable reference data for one monitored agricultural site.
type Site struct {
	ID   string  `json:"id" firestore:"-"`
	Name string  `json:"name" firestore:"name"`
	Lat  float64 `json:"lat" firestore:"lat"`
	Lng  float64 `json:"lng" firestore:"lng"`

	// Imagery addressing: WRS-2 path/row for Landsat, MGRS tile for Sentinel-2.
	LandsatPath  int    `json:"landsatPath" firestore:"landsat_path"`
	LandsatRow   int    `json:"landsatRow" firestore:"landsat_row"`
	SentinelTile string `json:"sentinelTile" firestore:"sentinel_tile"`

	Description string `json:"description,omitempty" firestore:"description"`
	Area        string `json:"area,omitempty" firestore:"area"`
	Established string `json:"established,omitempty" firestore:"established"`
	CropType    string `json:"cropType,omitempty" firestore:"crop_type"`
	WaterSource string `json:"waterSource,omitempty" firestore:"water_source"`

	Fallback FallbackBundle `json:"fallback" firestore:"fallback"`
}

// Outcome is the resolved observation for one metric of one site in one cycle:
// either a successful live value, or an error with the real failure reason and,
// when the site's fallback bundle carries a default, a historical substitute.
type Outcome struct {
	Status     Status     `json:"status"`
	Value      *float64   `json:"value"`
	Provenance Provenance `json:"provenance,omitempty"`
	Source     string     `json:"source,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ImageryReport is one imagery catalog's view of a site: latest scene metadata
// plus a derived NDVI. Synthetic reports are built from the site's fallback
// bundle and are always flagged as such.
type ImageryReport struct {
	Satellite       string  `json:"satellite"`
	SceneID         string  `json:"sceneId"`
	AcquisitionDate string  `json:"acquisitionDate"`
	CloudCover      float64 `json:"cloudCover"`
	NDVI            float64 `json:"ndvi"`
	RedBand         float64 `json:"redBand,omitempty"`
	NIRBand         float64 `json:"nirBand,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	Quality         int     `json:"quality,omitempty"`
	ProcessingLevel string  `json:"processingLevel,omitempty"`
	DataSource      string  `json:"dataSource"`
	Synthetic       bool    `json:"synthetic"`
}

// ImageryOutcome pairs a program's report with its fetch status.
type ImageryOutcome struct {
	Status Status         `json:"status"`
	Report *ImageryReport `json:"report"`
	Error  string         `json:"error,omitempty"`
}

// Rating is the derived overall data quality for a site in one cycle.
type Rating string

const (
	RatingHigh   Rating = "high"
	RatingMedium Rating = "medium"
	RatingLow    Rating = "low"
)

// ImageryRating buckets a single program's usefulness by cloud cover.
type ImageryRating string

const (
	ImageryExcellent   ImageryRating = "excellent"
	ImageryGood        ImageryRating = "good"
	ImageryMedium      ImageryRating = "medium"
	ImageryUnavailable ImageryRating = "unavailable"
)

// NDVIComposite compares the imagery programs' vegetation indices.
type NDVIComposite struct {
	Average     float64 `json:"average"`
	BestQuality Program `json:"bestQuality"`
}

// SiteResult is the aggregate record for one site at one refresh cycle.
// It is immutable once built; the next cycle supersedes it.
type SiteResult struct {
	SiteID    string    `json:"siteId"`
	SiteName  string    `json:"siteName"`
	Timestamp time.Time `json:"timestamp"` // always UTC

	Outcomes map[Metric]Outcome         `json:"outcomes"`
	Imagery  map[Program]ImageryOutcome `json:"imagery"`

	Composite      NDVIComposite             `json:"ndviComposite"`
	Rating         Rating                    `json:"rating"`
	ImageryRatings map[Program]ImageryRating `json:"imageryRatings"`
}

// LiveSuccesses counts scalar outcomes that resolved with a live value.
func (r SiteResult) LiveSuccesses() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// FleetStats summarizes the most recent cycle across all sites.
type FleetStats struct {
	TotalSites         int       `json:"totalSites"`
	SuccessfulLandsat  int       `json:"successfulLandsat"`
	SuccessfulSentinel int       `json:"successfulSentinel"`
	AverageNDVI        float64   `json:"averageNdvi"`
	HighQualitySites   int       `json:"highQualitySites"`
	LowCloudCover      int       `json:"lowCloudCover"`
	TotalAlerts        int       `json:"totalAlerts"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Severity of an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// AlertKind names the rule that fired.
type AlertKind string

const (
	AlertNDVILow        AlertKind = "ndvi_low"
	AlertCloudCoverHigh AlertKind = "cloud_cover_high"
	AlertWaterUsageHigh AlertKind = "water_usage_high"
)

// AlertRecord is emitted when a site's metric crosses a configured threshold.
type AlertRecord struct {
	ID        string    `json:"id"`
	Kind      AlertKind `json:"kind"`
	SiteID    string    `json:"siteId"`
	SiteName  string    `json:"siteName"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertThresholds is externally supplied per-metric alerting configuration.
// It may be hot-reloaded from the persistence gateway between cycles.
type AlertThresholds struct {
	NDVILow        float64 `json:"ndvi_low" firestore:"ndvi_low" validate:"gte=-1,lte=1"`
	CloudCoverHigh float64 `json:"cloud_cover_high" firestore:"cloud_cover_high" validate:"gte=0,lte=100"`
	WaterUsageHigh float64 `json:"water_usage_high" firestore:"water_usage_high" validate:"gte=0,lte=100"`
}

// DefaultThresholds are materialized into the gateway on first load.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		NDVILow:        0.3,
		CloudCoverHigh: 30,
		WaterUsageHigh: 75,
	}
}
