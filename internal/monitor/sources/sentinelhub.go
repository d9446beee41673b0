package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/sony/gobreaker"
)

// ndviEvalscript computes a per-pixel NDVI from the red (B04) and
// near-infrared (B08) Sentinel-2 bands.
const ndviEvalscript = `//VERSION=3
function setup() {
  return {
    input: ["B04", "B08", "dataMask"],
    output: [{ id: "ndvi", bands: 1 }]
  }
}
function evaluatePixel(sample) {
  return { ndvi: [(sample.B08 - sample.B04) / (sample.B08 + sample.B04)] };
}`

// SentinelHubClient talks to the Sentinel Hub APIs on behalf of the NDVI and
// cloud-cover sources. A fresh OAuth token is exchanged on every fetch; tokens
// are deliberately not cached across site calls.
type SentinelHubClient struct {
	ClientID     string
	ClientSecret string

	TokenURL      string
	StatisticsURL string
	CatalogURL    string

	WindowDays int

	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewSentinelHubClient creates a client against the production Sentinel Hub
// endpoints.
func NewSentinelHubClient(client *http.Client, clientID, clientSecret string) *SentinelHubClient {
	return &SentinelHubClient{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		TokenURL:      "https://services.sentinel-hub.com/oauth/token",
		StatisticsURL: "https://services.sentinel-hub.com/api/v1/statistics",
		CatalogURL:    "https://services.sentinel-hub.com/api/v1/catalog/search",
		WindowDays:    30,
		httpCfg:       HTTPClientConfig{Client: client},
		circuit:       newCircuit("sentinelhub"),
	}
}

// token exchanges client credentials for a short-lived bearer token.
func (c *SentinelHubClient) token(ctx context.Context) (string, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", fmt.Errorf("sentinel hub credentials are not configured")
	}

	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("client_id", c.ClientID)
		form.Set("client_secret", c.ClientSecret)

		req, err := http.NewRequest(http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := doRequest(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return "", fmt.Errorf("sentinel hub oauth: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("sentinel hub oauth: empty access token")
	}
	return payload.AccessToken, nil
}

func (c *SentinelHubClient) postJSON(ctx context.Context, endpoint, token string, body interface{}) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	return doRequest(ctx, c.httpCfg, c.circuit, buildRequest)
}

// SentinelHubNDVI produces a site's mean vegetation index over the trailing
// observation window.
type SentinelHubNDVI struct {
	client *SentinelHubClient
}

func NewSentinelHubNDVI(client *SentinelHubClient) *SentinelHubNDVI {
	return &SentinelHubNDVI{client: client}
}

func (s *SentinelHubNDVI) Name() string           { return "sentinelhub-ndvi" }
func (s *SentinelHubNDVI) Metric() monitor.Metric { return monitor.MetricNDVI }

func (s *SentinelHubNDVI) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	token, err := s.client.token(ctx)
	if err != nil {
		return 0, err
	}

	from, to := trailingWindow(s.client.WindowDays)

	body := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": map[string]interface{}{
					"type":        "Point",
					"coordinates": []float64{site.Lng, site.Lat},
				},
				"properties": map[string]interface{}{
					"crs": "http://www.opengis.net/def/crs/EPSG/0/4326",
				},
			},
			"data": []map[string]interface{}{
				{
					"type": "sentinel-2-l2a",
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": from,
							"to":   to,
						},
						"maxCloudCoverage": 20,
					},
				},
			},
		},
		"aggregation": map[string]interface{}{
			"timeRange": map[string]string{
				"from": from,
				"to":   to,
			},
			"aggregationInterval": map[string]string{"of": "P1D"},
			"evalscript":          ndviEvalscript,
		},
	}

	resp, err := s.client.postJSON(ctx, s.client.StatisticsURL, token, body)
	if err != nil {
		return 0, fmt.Errorf("sentinel hub statistics: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Data []struct {
			Outputs struct {
				NDVI struct {
					Bands []struct {
						Stats struct {
							Mean *float64 `json:"mean"`
						} `json:"stats"`
					} `json:"bands"`
				} `json:"ndvi"`
			} `json:"outputs"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	if len(payload.Data) == 0 {
		return 0, fmt.Errorf("%w: no ndvi intervals for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}

	var total float64
	var valid int
	for _, item := range payload.Data {
		bands := item.Outputs.NDVI.Bands
		if len(bands) == 0 || bands[0].Stats.Mean == nil {
			continue
		}
		v := *bands[0].Stats.Mean
		if math.IsNaN(v) {
			continue
		}
		total += v
		valid++
	}

	if valid == 0 {
		return 0, fmt.Errorf("%w: no valid ndvi values for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}
	return total / float64(valid), nil
}

// SentinelHubCloudCover produces the mean cloud-cover percentage over recent
// scenes covering a site.
type SentinelHubCloudCover struct {
	client *SentinelHubClient
}

func NewSentinelHubCloudCover(client *SentinelHubClient) *SentinelHubCloudCover {
	return &SentinelHubCloudCover{client: client}
}

func (s *SentinelHubCloudCover) Name() string           { return "sentinelhub-cloudcover" }
func (s *SentinelHubCloudCover) Metric() monitor.Metric { return monitor.MetricCloudCover }

func (s *SentinelHubCloudCover) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	token, err := s.client.token(ctx)
	if err != nil {
		return 0, err
	}

	from, to := trailingWindow(s.client.WindowDays)

	body := map[string]interface{}{
		"bbox": []float64{site.Lng - 0.1, site.Lat - 0.1, site.Lng + 0.1, site.Lat + 0.1},
		"time": fmt.Sprintf("%sT00:00:00Z/%sT23:59:59Z", from, to),
		"collections": []string{"sentinel-2-l2a"},
		"limit":       10,
		"fields": map[string]interface{}{
			"include": []string{"properties.cloudCover"},
		},
	}

	resp, err := s.client.postJSON(ctx, s.client.CatalogURL, token, body)
	if err != nil {
		return 0, fmt.Errorf("sentinel hub catalog: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Features []struct {
			Properties struct {
				CloudCover *float64 `json:"cloudCover"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	if len(payload.Features) == 0 {
		return 0, fmt.Errorf("%w: no scenes for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}

	var total float64
	var valid int
	for _, f := range payload.Features {
		if f.Properties.CloudCover == nil {
			continue
		}
		// Catalog reports a 0..1 fraction; normalize to percent.
		total += *f.Properties.CloudCover * 100
		valid++
	}

	if valid == 0 {
		return 0, fmt.Errorf("%w: no valid cloud cover values for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}
	return total / float64(valid), nil
}
