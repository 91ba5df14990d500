package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"geoauth/internal/common"
	"geoauth/internal/platform/metrics"
)

// Directions queries the OpenRouteService directions API.
type Directions struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	recorder   metrics.UpstreamRecorder
}

func NewDirections(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string, recorder metrics.UpstreamRecorder) *Directions {
	return &Directions{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
		recorder:   recorder,
	}
}

// Route fetches directions between start and end (lon, lat pairs) for the
// given travel mode and returns the raw upstream payload. A non-2xx upstream
// status surfaces as *common.UpstreamError.
func (c *Directions) Route(ctx context.Context, mode string, start, end [2]float64) (json.RawMessage, error) {
	reqURL, err := url.Parse(c.baseURL + "/" + url.PathEscape(mode))
	if err != nil {
		return nil, fmt.Errorf("parse directions endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("api_key", c.apiKey)
	q.Set("start", formatCoord(start))
	q.Set("end", formatCoord(end))
	q.Set("language", "fr")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build directions request: %w", err)
	}

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error", startedAt)
		c.logger.Error("routing request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.record("error", startedAt)
		c.logger.Error("routing service returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("mode", mode),
		)
		return nil, &common.UpstreamError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record("error", startedAt)
		return nil, fmt.Errorf("read routing response: %w", err)
	}
	c.record("success", startedAt)
	return json.RawMessage(body), nil
}

func (c *Directions) record(outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamCall("route", outcome, time.Since(start))
	}
}

func formatCoord(coord [2]float64) string {
	return strconv.FormatFloat(coord[0], 'f', -1, 64) + "," + strconv.FormatFloat(coord[1], 'f', -1, 64)
}
