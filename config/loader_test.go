package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
stream:
  url: ws://localhost:8080/ws
roster:
  baseURL: http://localhost:8080/api
`

// TestParse_AppliesDefaults verifies a minimal document picks up every
// built-in default.
func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != 16180 {
		t.Errorf("port = %d, want 16180", cfg.Server.Port)
	}
	if cfg.Stream.MaxBackoffMS != 60000 {
		t.Errorf("maxBackoffMS = %d, want 60000", cfg.Stream.MaxBackoffMS)
	}
	if cfg.Roster.RefreshIntervalMS != 15000 {
		t.Errorf("refreshIntervalMS = %d, want 15000", cfg.Roster.RefreshIntervalMS)
	}
	if cfg.Map.CenterLng != -123.1207 || cfg.Map.CenterLat != 49.2827 {
		t.Errorf("center = (%v,%v), want Vancouver", cfg.Map.CenterLng, cfg.Map.CenterLat)
	}
	if cfg.Map.ClusterRadius != 50 || cfg.Map.ClusterMaxZoom != 14 {
		t.Errorf("cluster = (%d,%d), want (50,14)", cfg.Map.ClusterRadius, cfg.Map.ClusterMaxZoom)
	}
	if cfg.Map.SelectionZoomFloor != 13 || cfg.Map.FitPadding != 60 || cfg.Map.FitMaxZoom != 14 {
		t.Errorf("camera defaults = %+v", cfg.Map)
	}
	if cfg.Map.FrameIntervalMS != 16 {
		t.Errorf("frameIntervalMS = %d, want 16", cfg.Map.FrameIntervalMS)
	}
}

func TestParse_ExplicitValuesWin(t *testing.T) {
	doc := minimalYAML + `
server:
  port: 9000
map:
  zoom: 11
  clusterRadius: 80
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Map.Zoom != 11 || cfg.Map.ClusterRadius != 80 {
		t.Errorf("map overrides lost: %+v", cfg.Map)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing stream url", "roster:\n  baseURL: http://localhost:8080/api\n"},
		{"bad stream url", "stream:\n  url: not-a-url\nroster:\n  baseURL: http://localhost:8080/api\n"},
		{"missing roster baseURL", "stream:\n  url: ws://localhost:8080/ws\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Error("parse succeeded, want error")
			}
		})
	}
}

func TestLoadAppConfig_FromFile(t *testing.T) {
	origConfig := Config
	origDir, _ := os.Getwd()
	defer func() {
		Config = origConfig
		_ = os.Chdir(origDir)
	}()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	if err := LoadAppConfig(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Config.Stream.URL != "ws://localhost:8080/ws" {
		t.Errorf("stream url = %q", Config.Stream.URL)
	}
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	origConfig := Config
	origDir, _ := os.Getwd()
	defer func() {
		Config = origConfig
		_ = os.Chdir(origDir)
	}()

	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := LoadAppConfig(); err == nil {
		t.Error("loading without config.yml succeeded, want error")
	}
}
