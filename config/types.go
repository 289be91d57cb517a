package config

// ServerConfig contains the monitor HTTP server configuration.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// StreamConfig contains the telemetry stream connection configuration.
type StreamConfig struct {
	URL          string `yaml:"url" validate:"required,url"`
	Reconnect    bool   `yaml:"reconnect"`
	MaxBackoffMS int    `yaml:"maxBackoffMS" validate:"gte=0"`
}

// RosterConfig contains the driver roster collaborator configuration.
type RosterConfig struct {
	BaseURL           string `yaml:"baseURL" validate:"required,url"`
	RefreshIntervalMS int    `yaml:"refreshIntervalMS" validate:"gte=0"`
}

// MapConfig contains map widget defaults. Zeroed fields take built-in
// defaults in ApplyDefaults.
type MapConfig struct {
	CenterLng          float64 `yaml:"centerLng"`
	CenterLat          float64 `yaml:"centerLat"`
	Zoom               float64 `yaml:"zoom" validate:"gte=0"`
	ClusterRadius      int     `yaml:"clusterRadius" validate:"gte=0"`
	ClusterMaxZoom     int     `yaml:"clusterMaxZoom" validate:"gte=0"`
	SelectionZoomFloor float64 `yaml:"selectionZoomFloor" validate:"gte=0"`
	FitPadding         int     `yaml:"fitPadding" validate:"gte=0"`
	FitMaxZoom         float64 `yaml:"fitMaxZoom" validate:"gte=0"`
	FrameIntervalMS    int     `yaml:"frameIntervalMS" validate:"gte=0"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server ServerConfig `yaml:"server" validate:"required"`
	Stream StreamConfig `yaml:"stream" validate:"required"`
	Roster RosterConfig `yaml:"roster" validate:"required"`
	Map    MapConfig    `yaml:"map"`
}
