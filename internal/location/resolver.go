// Package location resolves the coordinates submitted with attendance
// postings, using IP geolocation with a configured fallback.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// Resolver produces a usable coordinate pair. Resolve never fails: any lookup
// problem yields the configured fallback instead.
type Resolver interface {
	Resolve(ctx context.Context) domain.Location
}

// IPResolver implements Resolver against an IP geolocation service.
type IPResolver struct {
	cfg    config.LocationConfig
	client *http.Client
	logger logger.Interface
}

// NewResolver creates a Resolver with the given lookup settings.
func NewResolver(cfg config.LocationConfig, log logger.Interface) *IPResolver {
	return &IPResolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("location"),
	}
}

// lookupResponse is the geolocation service's JSON answer.
type lookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Resolve attempts IP geolocation and silently falls back to the configured
// coordinates on any error, timeout, or malformed response.
func (r *IPResolver) Resolve(ctx context.Context) domain.Location {
	detected, err := r.detect(ctx)
	if err != nil {
		r.logger.Warn("Location detection failed, using fallback coordinates",
			"error", err,
			"latitude", r.cfg.Latitude,
			"longitude", r.cfg.Longitude,
		)
		return r.fallback()
	}
	return detected
}

// fallback returns the configured coordinate pair. The values are validated at
// configuration time, so the pair is always well formed.
func (r *IPResolver) fallback() domain.Location {
	return domain.Location{
		Latitude:  r.cfg.Latitude,
		Longitude: r.cfg.Longitude,
	}
}

func (r *IPResolver) detect(ctx context.Context) (domain.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.LookupURL, http.NoBody)
	if err != nil {
		return domain.Location{}, fmt.Errorf("lookup request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Location{}, fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var result lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Location{}, fmt.Errorf("decode lookup response: %w", err)
	}

	if result.Status == "fail" {
		return domain.Location{}, fmt.Errorf("lookup service error: %s", result.Message)
	}
	if result.Lat == 0 && result.Lon == 0 {
		return domain.Location{}, fmt.Errorf("lookup returned no coordinates")
	}

	loc := domain.Location{
		Latitude:  formatCoordinate(result.Lat),
		Longitude: formatCoordinate(result.Lon),
	}

	r.logger.Info("Location detected",
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
		"city", result.City,
		"country", result.Country,
	)
	return loc, nil
}

// formatCoordinate renders a coordinate the way the portal expects it,
// a plain decimal string.
func formatCoordinate(v float64) string {
	return fmt.Sprintf("%g", v)
}
