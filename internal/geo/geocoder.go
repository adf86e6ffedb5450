package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tour-booking/models"
	"tour-booking/utils"
)

// Geocoder resolves a meeting point's map link or address to coordinates.
// Only the admin upsert path calls it; booking creation never does.
type Geocoder interface {
	Resolve(ctx context.Context, sourceLink string) (models.Coordinates, error)
}

type GeocoderConfig struct {
	BaseURL string `json:"baseUrl" mapstructure:"base_url"`
	APIKey  string `json:"apiKey" mapstructure:"api_key"`
}

// HTTPGeocoder calls the external geocoding service. A circuit breaker
// keeps a flapping geocoder from stalling every admin upsert behind the
// full client timeout.
type HTTPGeocoder struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	cb      *utils.CircuitBreaker
}

func NewHTTPGeocoder(cfg *GeocoderConfig) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},

		cb: utils.NewCircuitBreaker("geocoder"),
	}
}

func (g *HTTPGeocoder) Resolve(ctx context.Context, sourceLink string) (models.Coordinates, error) {
	result, err := g.cb.Execute(ctx, func() (any, error) {
		return g.resolve(ctx, sourceLink)
	})
	if err != nil {
		return models.Coordinates{}, err
	}
	return result.(models.Coordinates), nil
}

func (g *HTTPGeocoder) resolve(ctx context.Context, sourceLink string) (models.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/v1/geocode?link=%s", g.baseURL, url.QueryEscape(sourceLink))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.hc.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var reply struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode: json.Decode: %w", err)
	}

	coords := models.Coordinates{Lat: reply.Lat, Lng: reply.Lng}
	if !ValidCoordinates(&coords) {
		return models.Coordinates{}, fmt.Errorf("geocode: service returned unusable point for %q", sourceLink)
	}

	return coords, nil
}
