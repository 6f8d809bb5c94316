// Package niwa fetches UV index forecasts from the NIWA UV API.
package niwa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
	"github.com/tmoana/uvwatch/internal/infra/httpx"
	"github.com/tmoana/uvwatch/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.niwa.co.nz/uv/data"

	productClearSky  = "clear_sky_uv_index"
	productCloudySky = "cloudy_sky_uv_index"
)

// Client fetches UV forecast series from NIWA.
type Client struct {
	baseURL string
	apiKey  string
	http    httpx.Config
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds an API client. The API key may be empty for tests
// against a local stub.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  apiKey,
		http: httpx.Config{
			Client:          &http.Client{Timeout: timeout},
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		breaker: httpx.NewBreaker("niwa"),
	}
}

// Fetch retrieves the clear-sky and cloudy-sky UV maxima for a coordinate.
func (c *Client) Fetch(ctx context.Context, coord exposure.Coordinate) (exposure.UVReading, error) {
	start := time.Now()
	reading, err := c.fetch(ctx, coord)
	metrics.ProviderLatency.WithLabelValues("niwa").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("niwa", "error").Inc()
		return exposure.UVReading{}, err
	}
	metrics.ProviderCallsTotal.WithLabelValues("niwa", "ok").Inc()
	return reading, nil
}

func (c *Client) fetch(ctx context.Context, coord exposure.Coordinate) (exposure.UVReading, error) {
	resp, err := httpx.Do(ctx, c.http, c.breaker, func() (*http.Request, error) {
		params := url.Values{}
		params.Set("lat", fmt.Sprintf("%f", coord.Lat))
		params.Set("long", fmt.Sprintf("%f", coord.Lon))
		endpoint := c.baseURL + "?" + params.Encode()

		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build uv request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("x-apikey", c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return exposure.UVReading{}, fmt.Errorf("uv request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return exposure.UVReading{}, fmt.Errorf("read uv response: %w", err)
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return exposure.UVReading{}, fmt.Errorf("decode uv response: %w", err)
	}

	return extractMaxima(raw.Products), nil
}

type apiResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Name   string  `json:"name"`
	Values []point `json:"values"`
}

type point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// extractMaxima reduces each forecast series to its maximum over
// strictly positive values. A series with no positive value yields nil,
// which downstream treats as missing data.
func extractMaxima(products []product) exposure.UVReading {
	var reading exposure.UVReading
	for _, p := range products {
		max := positiveMax(p.Values)
		switch p.Name {
		case productClearSky:
			reading.ClearSkyMax = max
		case productCloudySky:
			reading.CloudySkyMax = max
		}
	}
	return reading
}

func positiveMax(values []point) *float64 {
	var max *float64
	for _, v := range values {
		if v.Value <= 0 {
			continue
		}
		if max == nil || v.Value > *max {
			value := v.Value
			max = &value
		}
	}
	return max
}
