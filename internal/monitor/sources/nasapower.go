package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/sony/gobreaker"
)

// noDataSentinel is NASA POWER's documented fill value for missing readings.
const noDataSentinel = -999

// NASAPowerTemperature reads daily 2-metre air temperature from the NASA
// POWER point API and reduces the trailing window to a mean. The API needs
// no authentication.
type NASAPowerTemperature struct {
	BaseURL    string
	WindowDays int

	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNASAPowerTemperature(client *http.Client) *NASAPowerTemperature {
	return &NASAPowerTemperature{
		BaseURL:    "https://power.larc.nasa.gov/api/temporal/daily/point",
		WindowDays: 30,
		httpCfg:    HTTPClientConfig{Client: client},
		circuit:    newCircuit("nasapower"),
	}
}

func (p *NASAPowerTemperature) Name() string           { return "nasa-power" }
func (p *NASAPowerTemperature) Metric() monitor.Metric { return monitor.MetricTemperature }

func (p *NASAPowerTemperature) Fetch(ctx context.Context, site monitor.Site) (float64, error) {
	buildRequest := func() (*http.Request, error) {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -p.WindowDays)

		values := url.Values{}
		values.Set("parameters", "T2M")
		values.Set("community", "AG")
		values.Set("longitude", fmt.Sprintf("%f", site.Lng))
		values.Set("latitude", fmt.Sprintf("%f", site.Lat))
		values.Set("start", start.Format("20060102"))
		values.Set("end", end.Format("20060102"))
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", p.BaseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return 0, fmt.Errorf("nasa power: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Properties struct {
			Parameter struct {
				T2M map[string]float64 `json:"T2M"`
			} `json:"parameter"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	if len(payload.Properties.Parameter.T2M) == 0 {
		return 0, fmt.Errorf("%w: no temperature readings for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}

	var total float64
	var valid int
	for _, v := range payload.Properties.Parameter.T2M {
		if v == noDataSentinel {
			continue
		}
		total += v
		valid++
	}

	if valid == 0 {
		return 0, fmt.Errorf("%w: all temperature readings were fill values for (%f, %f)", ErrNoData, site.Lat, site.Lng)
	}
	return total / float64(valid), nil
}
