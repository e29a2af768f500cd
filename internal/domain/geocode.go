package domain

import (
	"context"
	"log/slog"
)

// DescribeLocation returns a human-readable place for the coordinates, or ""
// when no geocoder is configured, the lookup fails, or nothing is found.
// Failures are logged and never returned (graceful degradation).
func DescribeLocation(ctx context.Context, lat, lon float64, geocoder Geocoder, logger *slog.Logger) string {
	if geocoder == nil {
		return ""
	}

	result, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		return ""
	}
	if result.FormattedAddress != "" {
		return result.FormattedAddress
	}
	return result.PlaceName
}
