package monitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvaluateAlerts scans a completed site result against the configured
// thresholds and returns one record per breached rule. Rules fire
// independently; a metric that errored or was substituted from the fallback
// bundle never fires (absence is not a breach).
func EvaluateAlerts(site Site, result SiteResult, thresholds AlertThresholds) []AlertRecord {
	var alerts []AlertRecord
	now := time.Now().UTC()

	if v, ok := liveValue(result, MetricNDVI); ok && v < thresholds.NDVILow {
		alerts = append(alerts, AlertRecord{
			ID:        uuid.NewString(),
			Kind:      AlertNDVILow,
			SiteID:    site.ID,
			SiteName:  site.Name,
			Message:   fmt.Sprintf("low NDVI (%.2f) at %s", v, site.Name),
			Value:     v,
			Threshold: thresholds.NDVILow,
			Severity:  SeverityHigh,
			Timestamp: now,
		})
	}

	if v, ok := liveValue(result, MetricCloudCover); ok && v > thresholds.CloudCoverHigh {
		alerts = append(alerts, AlertRecord{
			ID:        uuid.NewString(),
			Kind:      AlertCloudCoverHigh,
			SiteID:    site.ID,
			SiteName:  site.Name,
			Message:   fmt.Sprintf("high cloud cover (%.0f%%) at %s", v, site.Name),
			Value:     v,
			Threshold: thresholds.CloudCoverHigh,
			Severity:  SeverityMedium,
			Timestamp: now,
		})
	}

	if v, ok := liveValue(result, MetricWaterUsage); ok && v > thresholds.WaterUsageHigh {
		alerts = append(alerts, AlertRecord{
			ID:        uuid.NewString(),
			Kind:      AlertWaterUsageHigh,
			SiteID:    site.ID,
			SiteName:  site.Name,
			Message:   fmt.Sprintf("high water usage (%.0f%%) at %s", v, site.Name),
			Value:     v,
			Threshold: thresholds.WaterUsageHigh,
			Severity:  SeverityHigh,
			Timestamp: now,
		})
	}

	return alerts
}

func liveValue(result SiteResult, m Metric) (float64, bool) {
	o, ok := result.Outcomes[m]
	if !ok || o.Status != StatusSuccess || o.Value == nil {
		return 0, false
	}
	return *o.Value, true
}
