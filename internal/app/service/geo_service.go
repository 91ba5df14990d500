package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"geoauth/internal/common"
	"geoauth/internal/platform/geo"
)

const (
	minSearchQueryLen = 3
	defaultTravelMode = "driving-car"
)

type GeoService struct {
	geocoder   *geo.Geocoder
	directions *geo.Directions
}

func NewGeoService(geocoder *geo.Geocoder, directions *geo.Directions) *GeoService {
	return &GeoService{geocoder: geocoder, directions: directions}
}

// Search returns matching address features. Queries shorter than three
// characters come back as an empty list without touching the upstream API.
func (s *GeoService) Search(ctx context.Context, query string) (json.RawMessage, error) {
	if utf8.RuneCountInString(query) < minSearchQueryLen {
		return json.RawMessage("[]"), nil
	}
	return s.geocoder.Search(ctx, query)
}

type RouteRequest struct {
	Start string
	End   string
	Mode  string
}

// Route validates the coordinates, calls the routing provider, and checks the
// payload actually contains a usable route before passing it through.
func (s *GeoService) Route(ctx context.Context, req RouteRequest) (json.RawMessage, error) {
	if req.Start == "" || req.End == "" {
		return nil, common.ErrMissingCoordinates
	}

	start, err := parseCoord(req.Start)
	if err != nil {
		return nil, fmt.Errorf("parse start point: %w", err)
	}
	end, err := parseCoord(req.End)
	if err != nil {
		return nil, fmt.Errorf("parse end point: %w", err)
	}

	mode := req.Mode
	if mode == "" {
		mode = defaultTravelMode
	}

	payload, err := s.directions.Route(ctx, mode, start, end)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Features []struct {
			Properties struct {
				Segments []json.RawMessage `json:"segments"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("decode routing response: %w", err)
	}
	if len(probe.Features) == 0 {
		return nil, common.ErrRouteNotFound
	}
	if len(probe.Features[0].Properties.Segments) == 0 {
		return nil, common.ErrRouteNoSegments
	}
	return payload, nil
}

func parseCoord(value string) ([2]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return [2]float64{}, fmt.Errorf("coordinate %q is not in lon,lat form", value)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("invalid latitude %q", parts[1])
	}
	return [2]float64{lon, lat}, nil
}
