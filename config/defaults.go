package config

import (
	"time"
	"wildfire-viz/service"
	"wildfire-viz/usecase"
)

const (
	DefaultListenAddr       = "0.0.0.0"
	DefaultPort             = 8080
	DefaultBoundaryTimeout  = 30 * time.Second
	DefaultFirmsTimeout     = 10 * time.Second
	DefaultFlatMapWidth     = 1280
	DefaultFlatMapHeight    = 800
	DefaultTargetCountry    = "India"
	DefaultRefreshSchedule  = service.DefaultRefreshSchedule
	DefaultMinCountryPoints = usecase.DefaultMinCountryPoints
)

// defaultValues is registered with viper so every key is known to it, which
// is what lets FIREVIZ_* variables override keys absent from the file.
func defaultValues() map[string]any {
	return map[string]any{
		"server.listen_addr":         DefaultListenAddr,
		"server.port":                DefaultPort,
		"boundaries.countries_url":   service.NaturalEarthCountriesURL,
		"boundaries.states_url":      service.NaturalEarthStatesURL,
		"boundaries.timeout":         DefaultBoundaryTimeout,
		"labels.target_countries":    []string{DefaultTargetCountry},
		"labels.min_country_points":  DefaultMinCountryPoints,
		"camera.transition_duration": service.DefaultTransitionDuration,
		"camera.flat_zoom":           service.DefaultFlatZoom,
		"camera.globe_altitude":      service.DefaultGlobeAltitude,
		"firms.url":                  service.DefaultFireFeedURL,
		"firms.timeout":              DefaultFirmsTimeout,
		"firms.refresh_schedule":     DefaultRefreshSchedule,
		"log.debug":                  false,
		"flatmap.width":              DefaultFlatMapWidth,
		"flatmap.height":             DefaultFlatMapHeight,
	}
}

// ApplyDefaults fills zero-valued fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Boundaries.CountriesURL == "" {
		cfg.Boundaries.CountriesURL = service.NaturalEarthCountriesURL
	}
	if cfg.Boundaries.StatesURL == "" {
		cfg.Boundaries.StatesURL = service.NaturalEarthStatesURL
	}
	if cfg.Boundaries.Timeout == 0 {
		cfg.Boundaries.Timeout = DefaultBoundaryTimeout
	}
	if cfg.Labels.TargetCountries == nil {
		cfg.Labels.TargetCountries = []string{DefaultTargetCountry}
	}
	if cfg.Labels.MinCountryPoints == 0 {
		cfg.Labels.MinCountryPoints = DefaultMinCountryPoints
	}
	if cfg.Camera.TransitionDuration == 0 {
		cfg.Camera.TransitionDuration = service.DefaultTransitionDuration
	}
	if cfg.Camera.FlatZoom == 0 {
		cfg.Camera.FlatZoom = service.DefaultFlatZoom
	}
	if cfg.Camera.GlobeAltitude == 0 {
		cfg.Camera.GlobeAltitude = service.DefaultGlobeAltitude
	}
	if cfg.Firms.URL == "" {
		cfg.Firms.URL = service.DefaultFireFeedURL
	}
	if cfg.Firms.Timeout == 0 {
		cfg.Firms.Timeout = DefaultFirmsTimeout
	}
	if cfg.Firms.RefreshSchedule == "" {
		cfg.Firms.RefreshSchedule = DefaultRefreshSchedule
	}
	if cfg.FlatMap.Width == 0 {
		cfg.FlatMap.Width = DefaultFlatMapWidth
	}
	if cfg.FlatMap.Height == 0 {
		cfg.FlatMap.Height = DefaultFlatMapHeight
	}
}

// LabelRules converts the labels section.
func (c *Config) LabelRules() usecase.LabelRules {
	return usecase.LabelRules{
		MinCountryPoints: c.Labels.MinCountryPoints,
		TargetCountries:  append([]string(nil), c.Labels.TargetCountries...),
	}
}
