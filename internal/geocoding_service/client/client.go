// Package client talks to the external HTTP geocoder.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/casafacile/golang_services/internal/core_domain"
)

// ErrNoResults is returned when the geocoder finds no match for an address.
var ErrNoResults = errors.New("geocoder returned no results for address")

// Client is an HTTP client for the geocoding API. It authenticates with a
// lazily-initialized Credential and invalidates it when the API rejects the
// key, so a rotated key is picked up without a restart.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	credential *Credential
}

// NewClient creates a new geocoder client.
func NewClient(logger *slog.Logger, baseURL string, credential *Credential, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "geocoder_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		credential: credential,
	}
}

// geocodeResult is one candidate in the geocoder's response. Coordinates
// arrive as decimal strings.
type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address to coordinates, taking the first candidate the
// API returns. A 401/403 invalidates the credential and the request is
// retried once with a freshly fetched key.
func (c *Client) Geocode(ctx context.Context, address string) (*core_domain.Coordinates, error) {
	coords, retryable, err := c.geocodeOnce(ctx, address)
	if err != nil && retryable {
		c.logger.WarnContext(ctx, "Geocoder rejected API key, refreshing credential and retrying", "error", err)
		c.credential.Invalidate()
		coords, _, err = c.geocodeOnce(ctx, address)
	}
	return coords, err
}

func (c *Client) geocodeOnce(ctx context.Context, address string) (coords *core_domain.Coordinates, authRejected bool, err error) {
	key, err := c.credential.Get(ctx)
	if err != nil {
		return nil, false, err
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	if key != "" {
		q.Set("api_key", key)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create geocoder request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false, fmt.Errorf("failed to call geocoder: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read geocoder response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return nil, true, fmt.Errorf("geocoder rejected credential: status %d", httpResp.StatusCode)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("geocoder error: status %d, body: %s", httpResp.StatusCode, truncate(respBody, 200))
	}

	var results []geocodeResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, false, fmt.Errorf("failed to parse geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, false, ErrNoResults
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid latitude %q in geocoder response: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid longitude %q in geocoder response: %w", results[0].Lon, err)
	}

	c.logger.DebugContext(ctx, "Address geocoded", "address", address, "match", results[0].DisplayName)
	return &core_domain.Coordinates{Latitude: lat, Longitude: lon}, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
