// Package geo holds the HTTP clients for the upstream geocoding and routing
// services. Both take an injectable http.Client and an overridable base URL so
// tests can point them at a local server.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"geoauth/internal/platform/metrics"
)

const geocodeResultLimit = 6

// Geocoder queries the BAN address search API.
type Geocoder struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	recorder   metrics.UpstreamRecorder
}

func NewGeocoder(httpClient *http.Client, logger *slog.Logger, baseURL string, recorder metrics.UpstreamRecorder) *Geocoder {
	return &Geocoder{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		recorder:   recorder,
	}
}

// Search forwards query to the address API and returns the raw features array.
// A response without features yields an empty array, not an error.
func (c *Geocoder) Search(ctx context.Context, query string) (json.RawMessage, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocode endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(geocodeResultLimit))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error", start)
		c.logger.Error("geocoding request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.record("error", start)
		c.logger.Error("geocoding service returned error status", slog.Int("http_status", resp.StatusCode))
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var payload struct {
		Features json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.record("error", start)
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	c.record("success", start)

	if payload.Features == nil {
		return json.RawMessage("[]"), nil
	}
	return payload.Features, nil
}

func (c *Geocoder) record(outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamCall("geocode", outcome, time.Since(start))
	}
}
