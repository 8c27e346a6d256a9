// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Port       int    `mapstructure:"port"`
}

// Addr is the host:port the HTTP server binds.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.ListenAddr, s.Port)
}

// BoundariesConfig points at the two Natural Earth collections. A value
// without a scheme is read as a local file.
type BoundariesConfig struct {
	CountriesURL string        `mapstructure:"countries_url"`
	StatesURL    string        `mapstructure:"states_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type LabelsConfig struct {
	TargetCountries  []string `mapstructure:"target_countries"`
	MinCountryPoints int      `mapstructure:"min_country_points"`
}

type CameraConfig struct {
	TransitionDuration time.Duration `mapstructure:"transition_duration"`
	FlatZoom           float64       `mapstructure:"flat_zoom"`
	GlobeAltitude      float64       `mapstructure:"globe_altitude"`
}

type FirmsConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

type FlatMapConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Boundaries BoundariesConfig `mapstructure:"boundaries"`
	Labels     LabelsConfig     `mapstructure:"labels"`
	Camera     CameraConfig     `mapstructure:"camera"`
	Firms      FirmsConfig      `mapstructure:"firms"`
	Log        LogConfig        `mapstructure:"log"`
	FlatMap    FlatMapConfig    `mapstructure:"flatmap"`
}

// Validate reports the first invalid field by its config key.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Boundaries.CountriesURL == "" {
		return fmt.Errorf("boundaries.countries_url is required")
	}
	if c.Boundaries.StatesURL == "" {
		return fmt.Errorf("boundaries.states_url is required")
	}
	if c.Boundaries.Timeout < 0 {
		return fmt.Errorf("boundaries.timeout must not be negative")
	}
	if c.Labels.MinCountryPoints < 0 {
		return fmt.Errorf("labels.min_country_points must not be negative")
	}
	for _, name := range c.Labels.TargetCountries {
		if name == "" {
			return fmt.Errorf("labels.target_countries must not contain empty names")
		}
	}
	if c.Camera.TransitionDuration <= 0 {
		return fmt.Errorf("camera.transition_duration must be positive")
	}
	if c.Camera.FlatZoom < 0 || c.Camera.FlatZoom > 19 {
		return fmt.Errorf("camera.flat_zoom must be in [0, 19], got %v", c.Camera.FlatZoom)
	}
	if c.Camera.GlobeAltitude <= 0 {
		return fmt.Errorf("camera.globe_altitude must be positive")
	}
	if c.Firms.URL == "" {
		return fmt.Errorf("firms.url is required")
	}
	if c.Firms.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Firms.RefreshSchedule); err != nil {
			return fmt.Errorf("firms.refresh_schedule: %w", err)
		}
	}
	if c.FlatMap.Width <= 0 || c.FlatMap.Height <= 0 {
		return fmt.Errorf("flatmap.width and flatmap.height must be positive")
	}
	return nil
}
