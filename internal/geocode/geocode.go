package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var ErrGeocode = errors.New("reverse geocoding failed")

type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (string, error)
}

// NominatimResolver queries a Nominatim-compatible /reverse endpoint.
type NominatimResolver struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

func NewNominatimResolver(baseURL, userAgent string, timeout time.Duration) *NominatimResolver {
	return &NominatimResolver{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Timeout:   timeout,
	}
}

type nominatimResponse struct {
	Name    string `json:"name"`
	Address struct {
		Road         string `json:"road"`
		Suburb       string `json:"suburb"`
		CityDistrict string `json:"city_district"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		State        string `json:"state"`
	} `json:"address"`
}

func (r *NominatimResolver) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeocode, err)
	}

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))

	agent := fiber.Get(r.BaseURL + "/reverse?" + params.Encode())
	agent.UserAgent(r.UserAgent)
	agent.Timeout(r.Timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %v", ErrGeocode, errs[0])
	}
	if code != fiber.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrGeocode, code)
	}

	var resp nominatimResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeocode, err)
	}
	name := joinParts(
		resp.Name,
		resp.Address.Road,
		firstNonEmpty(resp.Address.Suburb, resp.Address.CityDistrict),
		firstNonEmpty(resp.Address.City, resp.Address.Town, resp.Address.Village),
		resp.Address.State,
	)
	if name == "" {
		return "", fmt.Errorf("%w: no address for %.6f, %.6f", ErrGeocode, lat, lng)
	}
	return name, nil
}

// CoordinateResolver labels a fix with its rounded coordinates.
type CoordinateResolver struct{}

func (CoordinateResolver) Resolve(_ context.Context, lat, lng float64) (string, error) {
	return fmt.Sprintf("Location at %.4f, %.4f", lat, lng), nil
}

func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
