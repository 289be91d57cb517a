// Package fleetmap assembles the live-map pipeline: a websocket
// telemetry stream feeds a frame-coalesced position store, a polled
// roster cache supplies driver metadata, and a map engine projects the
// joined state onto a widget. This package holds the session lifecycle
// and the monitoring surface; the moving parts live in the subpackages.
//
//	stream    websocket client and envelope decoding
//	telemetry position store and frame coalescer
//	roster    driver metadata cache
//	selection selected-agent state
//	mapsync   widget contract, styling and the sync engine
//	render    headless widget implementation
//	config    yaml configuration
package fleetmap
