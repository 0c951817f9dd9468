// Package geocode resolves coordinates to a display address and sub-city
// through a Nominatim compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Defaults for the public Nominatim service.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "CoffeeRoaster-ERP/1.0 (admin@example.com)"
	DefaultTimeout   = 10 * time.Second
	DefaultZoom      = 14
)

// subCityKeys are the address components tried for the sub-city, most
// specific first.
var subCityKeys = []string{"city_district", "suburb", "neighbourhood", "borough", "city", "town", "village"}

// Place is the reverse geocoding result.
type Place struct {
	DisplayName string `json:"display_name"`
	SubCity     string `json:"sub_city"`
}

// Reverser resolves coordinates.
type Reverser interface {
	Reverse(ctx context.Context, lat, lng float64) (Place, error)
}

// Client calls the Nominatim reverse endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	zoom       int
	httpClient *http.Client
}

var _ Reverser = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent header sent to the service.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		zoom:       DefaultZoom,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse looks up lat/lng and returns the display name and sub-city.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	endpoint, err := url.Parse(c.baseURL + "/reverse")
	if err != nil {
		return Place{}, fmt.Errorf("parse geocode url: %w", err)
	}
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("zoom", strconv.Itoa(c.zoom))
	params.Set("addressdetails", "1")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("reverse geocode returned %d", resp.StatusCode)
	}
	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Place{}, fmt.Errorf("decode geocode response: %w", err)
	}
	return Place{DisplayName: payload.DisplayName, SubCity: SubCity(payload.Address)}, nil
}

// SubCity picks the most specific populated address component.
func SubCity(address map[string]string) string {
	for _, k := range subCityKeys {
		if v := strings.TrimSpace(address[k]); v != "" {
			return v
		}
	}
	return ""
}
