package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// Parse decodes, validates and defaults a raw YAML configuration document.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.ApplyDefaults()
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return AppConfig{}, err
	}
	if err := v.Struct(cfg.Stream); err != nil {
		return AppConfig{}, err
	}
	if err := v.Struct(cfg.Roster); err != nil {
		return AppConfig{}, err
	}
	if err := v.Struct(cfg.Map); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zeroed optional fields with built-in defaults.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 16180
	}
	if c.Stream.MaxBackoffMS == 0 {
		c.Stream.MaxBackoffMS = 60000
	}
	if c.Roster.RefreshIntervalMS == 0 {
		c.Roster.RefreshIntervalMS = 15000
	}
	m := &c.Map
	if m.CenterLng == 0 && m.CenterLat == 0 {
		// Vancouver, matching the widget's built-in start position.
		m.CenterLng, m.CenterLat = -123.1207, 49.2827
	}
	if m.Zoom == 0 {
		m.Zoom = 9
	}
	if m.ClusterRadius == 0 {
		m.ClusterRadius = 50
	}
	if m.ClusterMaxZoom == 0 {
		m.ClusterMaxZoom = 14
	}
	if m.SelectionZoomFloor == 0 {
		m.SelectionZoomFloor = 13
	}
	if m.FitPadding == 0 {
		m.FitPadding = 60
	}
	if m.FitMaxZoom == 0 {
		m.FitMaxZoom = 14
	}
	if m.FrameIntervalMS == 0 {
		m.FrameIntervalMS = 16
	}
}
