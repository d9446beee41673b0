package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/sony/gobreaker"
)

// NASAGraceSoilMoisture reads surface soil moisture from the NASA GRACE
// OPeNDAP endpoint, authenticated with Earthdata basic credentials on each
// call.
type NASAGraceSoilMoisture struct {
	BaseURL  string
	Username string
	Password string

	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNASAGraceSoilMoisture(client *http.Client, username, password string) *NASAGraceSoilMoisture {
	return &NASAGraceSoilMoisture{
		BaseURL:  "https://opendap.earthdata.nasa.gov/api/grace/soil_moisture",
		Username: username,
		Password: password,
		httpCfg:  HTTPClientConfig{Client: client},
		circuit:  newCircuit("nasagrace"),
	}
}

func (p *NASAGraceSoilMoisture) Name() string           { return "nasa-grace" }
func (p *NASAGraceSoilMoisture) Metric() monitor.Metric { return monitor.MetricSoilMoisture }

func (p *NASAGraceSoilMoisture) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	if p.Username == "" || p.Password == "" {
		return 0, fmt.Errorf("nasa earthdata credentials are not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", site.Lat))
		values.Set("lon", fmt.Sprintf("%f", site.Lng))

		u := fmt.Sprintf("%s?%s", p.BaseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(p.Username, p.Password)
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return 0, fmt.Errorf("nasa grace: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		SoilMoisture *float64 `json:"soil_moisture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	if payload.SoilMoisture == nil {
		return 0, fmt.Errorf("%w: no soil moisture value for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}

	// The service reports a 0..1 volumetric fraction; expose percent.
	return *payload.SoilMoisture * 100, nil
}
