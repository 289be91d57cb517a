// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Map defaults (camera, clustering, frame pacing) fall back to built-in
// values when omitted.
package config
