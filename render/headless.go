// Package render provides widget implementations for the map engine.
// Headless is the server-side one: it records every instruction the
// engine issues so the resulting scene can be inspected or served.
package render

import (
	"fmt"
	"sync"

	geojson "github.com/paulmach/go.geojson"

	"github.com/dispatchlab/fleetmap/mapsync"
)

// Camera is the widget's last commanded camera state.
type Camera struct {
	Center mapsync.LngLat
	Zoom   float64
	// Fitted reports whether the last camera move was a fit-to-bounds.
	Fitted bool
	Bounds mapsync.Bounds
}

// Popup is one recorded popup instance.
type Popup struct {
	mu      sync.Mutex
	At      mapsync.LngLat
	Content mapsync.PopupContent
	Removed bool
	onClose []func()
}

// SetLngLat moves the popup.
func (p *Popup) SetLngLat(at mapsync.LngLat) {
	p.mu.Lock()
	p.At = at
	p.mu.Unlock()
}

// SetContent replaces the popup's payload.
func (p *Popup) SetContent(c mapsync.PopupContent) {
	p.mu.Lock()
	p.Content = c
	p.mu.Unlock()
}

// OnClose registers a close callback.
func (p *Popup) OnClose(fn func()) {
	p.mu.Lock()
	p.onClose = append(p.onClose, fn)
	p.mu.Unlock()
}

// Remove closes the popup and fires close callbacks, like a programmatic
// removal on a real map surface.
func (p *Popup) Remove() {
	p.close()
}

// Dismiss simulates the user closing the popup. Observable effects equal
// Remove; the distinction matters only to whoever registered the
// callbacks.
func (p *Popup) Dismiss() {
	p.close()
}

func (p *Popup) close() {
	p.mu.Lock()
	if p.Removed {
		p.mu.Unlock()
		return
	}
	p.Removed = true
	cbs := append([]func(){}, p.onClose...)
	p.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

// Snapshot returns the popup's position and content.
func (p *Popup) Snapshot() (mapsync.LngLat, mapsync.PopupContent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.At, p.Content, !p.Removed
}

// Headless implements mapsync.Widget without a display. Sources, layers,
// filters, data, camera moves and popups are all recorded; tests and the
// feature endpoint read them back.
type Headless struct {
	mu        sync.Mutex
	destroyed bool

	sources map[string]mapsync.SourceSpec
	layers  map[string]mapsync.LayerSpec
	order   []string
	data    map[string]*geojson.FeatureCollection
	filters map[string][]interface{}
	clicks  map[string][]func(mapsync.ClickEvent)

	camera   Camera
	easeTos  int
	fitCalls int

	popups []*Popup

	// expansionZooms answers ClusterExpansionZoom per cluster id; absent
	// ids error, mimicking a cluster that no longer exists.
	expansionZooms map[int]float64
}

// NewHeadless returns an empty headless widget.
func NewHeadless() *Headless {
	return &Headless{
		sources:        map[string]mapsync.SourceSpec{},
		layers:         map[string]mapsync.LayerSpec{},
		data:           map[string]*geojson.FeatureCollection{},
		filters:        map[string][]interface{}{},
		clicks:         map[string][]func(mapsync.ClickEvent){},
		expansionZooms: map[int]float64{},
	}
}

func (h *Headless) AddSource(s mapsync.SourceSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return fmt.Errorf("widget destroyed")
	}
	if _, ok := h.sources[s.ID]; ok {
		return fmt.Errorf("source %q already exists", s.ID)
	}
	h.sources[s.ID] = s
	return nil
}

func (h *Headless) AddLayer(l mapsync.LayerSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return fmt.Errorf("widget destroyed")
	}
	if _, ok := h.sources[l.Source]; !ok {
		return fmt.Errorf("layer %q references unknown source %q", l.ID, l.Source)
	}
	if _, ok := h.layers[l.ID]; ok {
		return fmt.Errorf("layer %q already exists", l.ID)
	}
	h.layers[l.ID] = l
	h.order = append(h.order, l.ID)
	if l.Filter != nil {
		h.filters[l.ID] = l.Filter
	}
	return nil
}

func (h *Headless) SetSourceData(sourceID string, fc *geojson.FeatureCollection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return fmt.Errorf("widget destroyed")
	}
	if _, ok := h.sources[sourceID]; !ok {
		return fmt.Errorf("unknown source %q", sourceID)
	}
	h.data[sourceID] = fc
	return nil
}

func (h *Headless) SetLayerFilter(layerID string, filter []interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return fmt.Errorf("widget destroyed")
	}
	if _, ok := h.layers[layerID]; !ok {
		return fmt.Errorf("unknown layer %q", layerID)
	}
	h.filters[layerID] = filter
	return nil
}

func (h *Headless) ClusterExpansionZoom(sourceID string, clusterID int) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	z, ok := h.expansionZooms[clusterID]
	if !ok {
		return 0, fmt.Errorf("cluster %d not found in source %q", clusterID, sourceID)
	}
	return z, nil
}

// SetExpansionZoom seeds the answer ClusterExpansionZoom gives for one
// cluster id.
func (h *Headless) SetExpansionZoom(clusterID int, zoom float64) {
	h.mu.Lock()
	h.expansionZooms[clusterID] = zoom
	h.mu.Unlock()
}

func (h *Headless) OnLayerClick(layerID string, handler func(mapsync.ClickEvent)) {
	h.mu.Lock()
	h.clicks[layerID] = append(h.clicks[layerID], handler)
	h.mu.Unlock()
}

// Click dispatches a click event to the handlers of one layer.
func (h *Headless) Click(layerID string, ev mapsync.ClickEvent) {
	h.mu.Lock()
	handlers := append([]func(mapsync.ClickEvent){}, h.clicks[layerID]...)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func (h *Headless) EaseTo(c mapsync.CameraOptions) {
	h.mu.Lock()
	h.camera = Camera{Center: c.Center, Zoom: c.Zoom}
	h.easeTos++
	h.mu.Unlock()
}

func (h *Headless) FitBounds(b mapsync.Bounds, opts mapsync.FitOptions) {
	h.mu.Lock()
	center := mapsync.LngLat{
		Lng: (b.SW.Lng + b.NE.Lng) / 2,
		Lat: (b.SW.Lat + b.NE.Lat) / 2,
	}
	// No projection math here: a fit lands at the box center and clamps
	// zoom to the cap, which is all the callers observe.
	h.camera = Camera{Center: center, Zoom: opts.MaxZoom, Fitted: true, Bounds: b}
	h.fitCalls++
	h.mu.Unlock()
}

func (h *Headless) Zoom() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.camera.Zoom
}

func (h *Headless) OpenPopup(at mapsync.LngLat, content mapsync.PopupContent) mapsync.PopupHandle {
	p := &Popup{At: at, Content: content}
	h.mu.Lock()
	h.popups = append(h.popups, p)
	h.mu.Unlock()
	return p
}

func (h *Headless) Destroy() {
	h.mu.Lock()
	popups := append([]*Popup{}, h.popups...)
	h.destroyed = true
	h.mu.Unlock()
	for _, p := range popups {
		p.close()
	}
}

// Destroyed reports whether Destroy has run.
func (h *Headless) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// SourceData returns the last data pushed to a source.
func (h *Headless) SourceData(sourceID string) *geojson.FeatureCollection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data[sourceID]
}

// LayerFilter returns the current filter of a layer.
func (h *Headless) LayerFilter(layerID string) []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.filters[layerID]
}

// LayerOrder returns layer ids in declaration order.
func (h *Headless) LayerOrder() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.order...)
}

// CameraState returns the last commanded camera along with how many
// ease and fit moves have run.
func (h *Headless) CameraState() (Camera, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.camera, h.easeTos, h.fitCalls
}

// OpenPopups returns the popups that are still open.
func (h *Headless) OpenPopups() []*Popup {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*Popup
	for _, p := range h.popups {
		if _, _, open := p.Snapshot(); open {
			out = append(out, p)
		}
	}
	return out
}
