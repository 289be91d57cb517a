package mapsync

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// LngLat is a point in longitude/latitude order, matching GeoJSON.
type LngLat struct {
	Lng float64
	Lat float64
}

// Bounds is a geographic bounding box.
type Bounds struct {
	SW LngLat
	NE LngLat
}

// SourceSpec declares a clustered GeoJSON source.
type SourceSpec struct {
	ID             string
	Cluster        bool
	ClusterRadius  int
	ClusterMaxZoom int
}

// LayerSpec declares one styled layer over a source. Paint and Layout
// carry declarative style properties; Filter is an expression in the
// widget's filter language.
type LayerSpec struct {
	ID     string
	Source string
	Type   string
	Filter []interface{}
	Paint  map[string]interface{}
	Layout map[string]interface{}
}

// CameraOptions parameterizes an ease-to camera move.
type CameraOptions struct {
	Center LngLat
	Zoom   float64
}

// FitOptions parameterizes a fit-to-bounds camera move.
type FitOptions struct {
	Padding int
	MaxZoom float64
}

// ClickEvent describes a click on a layer's feature.
type ClickEvent struct {
	LngLat    LngLat
	FeatureID string
	ClusterID int
	Props     map[string]interface{}
}

// PopupContent is the displayable payload of an agent popup.
type PopupContent struct {
	Title      string
	Status     string
	Vehicle    string
	Position   LngLat
	ObservedAt time.Time
}

// PopupHandle controls one open popup. Remove detaches it from the map;
// OnClose registers a callback fired when the widget closes the popup,
// whether by Remove or by user dismissal.
type PopupHandle interface {
	SetLngLat(LngLat)
	SetContent(PopupContent)
	OnClose(func())
	Remove()
}

// Widget is the map surface the engine drives. Implementations wrap a
// concrete rendering backend; the engine owns the widget it mounts and
// is the only writer of its sources, layers and camera.
type Widget interface {
	AddSource(SourceSpec) error
	AddLayer(LayerSpec) error
	SetSourceData(sourceID string, fc *geojson.FeatureCollection) error
	SetLayerFilter(layerID string, filter []interface{}) error

	// ClusterExpansionZoom resolves the zoom at which the given cluster
	// splits apart. Errors are expected (the cluster may already be gone).
	ClusterExpansionZoom(sourceID string, clusterID int) (float64, error)

	OnLayerClick(layerID string, handler func(ClickEvent))

	EaseTo(CameraOptions)
	FitBounds(b Bounds, opts FitOptions)
	Zoom() float64

	OpenPopup(at LngLat, content PopupContent) PopupHandle

	Destroy()
}
