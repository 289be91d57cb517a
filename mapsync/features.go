package mapsync

import (
	"sort"

	geojson "github.com/paulmach/go.geojson"

	"github.com/dispatchlab/fleetmap/roster"
	"github.com/dispatchlab/fleetmap/telemetry"
)

// BuildFeatureCollection joins live positions with roster metadata into
// the renderable point set. Every tracked agent yields one point feature
// whether or not its roster entry has arrived yet; the label falls back
// to the agent id and the status to delivering. Features are ordered by
// agent id so repeated builds over the same state are identical.
func BuildFeatureCollection(positions map[string]telemetry.AgentPosition, entries map[string]roster.Entry) *geojson.FeatureCollection {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		pos := positions[id]
		label := id
		status := roster.StatusDelivering
		vehicle := ""
		if e, ok := entries[id]; ok {
			if e.Name != "" {
				label = e.Name
			}
			if e.Status != "" {
				status = e.Status
			}
			vehicle = e.Vehicle
		}
		f := geojson.NewPointFeature([]float64{pos.Lng, pos.Lat})
		f.ID = id
		f.SetProperty("driverId", id)
		f.SetProperty("label", label)
		f.SetProperty("status", string(status))
		if vehicle != "" {
			f.SetProperty("vehicle", vehicle)
		}
		fc.AddFeature(f)
	}
	return fc
}

// boundsOf returns the bounding box of all positions and whether the box
// is degenerate (fewer than two distinct points). Fitting the camera to
// a degenerate box would zoom to the maximum; callers center instead.
func boundsOf(positions map[string]telemetry.AgentPosition) (Bounds, bool) {
	var b Bounds
	first := true
	for _, pos := range positions {
		if first {
			b.SW = LngLat{Lng: pos.Lng, Lat: pos.Lat}
			b.NE = b.SW
			first = false
			continue
		}
		if pos.Lng < b.SW.Lng {
			b.SW.Lng = pos.Lng
		}
		if pos.Lat < b.SW.Lat {
			b.SW.Lat = pos.Lat
		}
		if pos.Lng > b.NE.Lng {
			b.NE.Lng = pos.Lng
		}
		if pos.Lat > b.NE.Lat {
			b.NE.Lat = pos.Lat
		}
	}
	if first {
		return b, true
	}
	degenerate := b.SW.Lng == b.NE.Lng && b.SW.Lat == b.NE.Lat
	return b, degenerate
}
