package commands

import (
	"aide/internal/config"
	"aide/internal/geo"
)

// locationProvider picks where new tasks get their position from, in order:
// the --lat/--lon flags, LATITUDE/LONGITUDE settings, GEO_URL, or nothing.
func locationProvider(cfg *config.Config, lat, lon string) (geo.Provider, error) {
	if lat != "" || lon != "" {
		flags := config.Settings{Latitude: lat, Longitude: lon}
		if lat == "" || lon == "" {
			return nil, errFlagPair
		}
		la, lo, _, err := flags.Position()
		if err != nil {
			return nil, err
		}
		return geo.NewCache(geo.Fixed{Latitude: la, Longitude: lo}), nil
	}

	if la, lo, ok, err := cfg.Settings.Position(); err != nil {
		return nil, err
	} else if ok {
		return geo.NewCache(geo.Fixed{Latitude: la, Longitude: lo}), nil
	}

	if cfg.Settings.GeoURL != "" {
		return geo.NewCache(geo.HTTPLookup{URL: cfg.Settings.GeoURL}), nil
	}
	return geo.Unavailable{}, nil
}
