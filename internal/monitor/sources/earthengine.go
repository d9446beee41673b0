package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/sony/gobreaker"
)

// EarthEngineWaterUsage estimates relative water consumption for a site from
// the FLDAS mean evapotranspiration around the point, normalized to a 0..100
// percentage of the regional reference rate.
type EarthEngineWaterUsage struct {
	BaseURL string
	APIKey  string

	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewEarthEngineWaterUsage(client *http.Client, apiKey string) *EarthEngineWaterUsage {
	return &EarthEngineWaterUsage{
		BaseURL: "https://earthengine.googleapis.com/v1/projects/earthengine-legacy/image:computePixels",
		APIKey:  apiKey,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuit("earthengine"),
	}
}

func (p *EarthEngineWaterUsage) Name() string           { return "earth-engine" }
func (p *EarthEngineWaterUsage) Metric() monitor.Metric { return monitor.MetricWaterUsage }

func (p *EarthEngineWaterUsage) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	if p.APIKey == "" {
		return 0, fmt.Errorf("earth engine api key is not configured")
	}

	expression := fmt.Sprintf(`
var dataset = ee.ImageCollection('NASA/FLDAS/NOAH01/C/GL/M/V001')
      .filter(ee.Filter.date('2023-01-01', '2023-12-31'));
var evapotranspiration = dataset.select('Evap_tavg');
var point = ee.Geometry.Point([%f, %f]);
var evapValue = evapotranspiration.mean().reduceRegion({
  reducer: ee.Reducer.mean(),
  geometry: point,
  scale: 30
});
return evapValue;`, site.Lng, site.Lat)

	body, err := json.Marshal(map[string]string{"expression": expression})
	if err != nil {
		return 0, err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, p.BaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return 0, fmt.Errorf("earth engine: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Properties struct {
			EvapTavg *float64 `json:"Evap_tavg"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	if payload.Properties.EvapTavg == nil {
		return 0, fmt.Errorf("%w: no evapotranspiration value for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}

	// Normalize against the reference evapotranspiration rate and clamp to
	// a displayable percentage.
	normalized := (*payload.Properties.EvapTavg / 10) * 100
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 100 {
		normalized = 100
	}
	return normalized, nil
}
