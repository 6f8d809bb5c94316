// Package openweather fetches current conditions from OpenWeatherMap.
package openweather

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

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Fallbacks for fields the API may omit.
const (
	unknownLocation    = "Unknown Location"
	unknownCondition   = "Unknown"
	unknownDescription = "No description"
)

// Client fetches current weather conditions.
type Client struct {
	baseURL string
	apiKey  string
	http    httpx.Config
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds an API client.
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
		breaker: httpx.NewBreaker("openweather"),
	}
}

// Fetch retrieves current conditions for a coordinate.
func (c *Client) Fetch(ctx context.Context, coord exposure.Coordinate) (*exposure.WeatherSnapshot, error) {
	start := time.Now()
	snapshot, err := c.fetch(ctx, coord)
	metrics.ProviderLatency.WithLabelValues("openweather").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("openweather", "error").Inc()
		return nil, err
	}
	metrics.ProviderCallsTotal.WithLabelValues("openweather", "ok").Inc()
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, coord exposure.Coordinate) (*exposure.WeatherSnapshot, error) {
	resp, err := httpx.Do(ctx, c.http, c.breaker, func() (*http.Request, error) {
		params := url.Values{}
		params.Set("lat", fmt.Sprintf("%f", coord.Lat))
		params.Set("lon", fmt.Sprintf("%f", coord.Lon))
		params.Set("appid", c.apiKey)
		params.Set("units", "metric")
		endpoint := c.baseURL + "?" + params.Encode()

		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build weather request: %w", err)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	snapshot := toSnapshot(raw)
	return &snapshot, nil
}

type apiResponse struct {
	Name   string `json:"name"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Weather []condition `json:"weather"`
	Sys     struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// toSnapshot normalizes the payload, substituting fallbacks for absent
// fields so callers never see empty descriptive strings.
func toSnapshot(raw apiResponse) exposure.WeatherSnapshot {
	snapshot := exposure.WeatherSnapshot{
		CloudIndex:           raw.Clouds.All,
		LocationName:         unknownLocation,
		ConditionMain:        unknownCondition,
		ConditionDescription: unknownDescription,
		ConditionIcon:        unknownCondition,
		Sunrise:              raw.Sys.Sunrise,
		Sunset:               raw.Sys.Sunset,
	}
	if strings.TrimSpace(raw.Name) != "" {
		snapshot.LocationName = raw.Name
	}
	if len(raw.Weather) > 0 {
		if raw.Weather[0].Main != "" {
			snapshot.ConditionMain = raw.Weather[0].Main
		}
		if raw.Weather[0].Description != "" {
			snapshot.ConditionDescription = raw.Weather[0].Description
		}
		if raw.Weather[0].Icon != "" {
			snapshot.ConditionIcon = raw.Weather[0].Icon
		}
	}
	return snapshot
}
