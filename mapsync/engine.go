package mapsync

import (
	"log"
	"sync"

	"github.com/dispatchlab/fleetmap/roster"
	"github.com/dispatchlab/fleetmap/selection"
	"github.com/dispatchlab/fleetmap/telemetry"
)

// Options parameterizes the engine's source and camera behavior.
type Options struct {
	Center             LngLat
	Zoom               float64
	ClusterRadius      int
	ClusterMaxZoom     int
	SelectionZoomFloor float64
	FitPadding         int
	FitMaxZoom         float64
}

// popupState is the engine's popup lifecycle. The popup is either closed
// or open for exactly one agent; there is never more than one popup.
type popupState struct {
	open    bool
	agentID string
	handle  PopupHandle
}

// Engine owns a mounted widget and keeps it in sync with the position
// store, the roster cache and the selection. All widget mutation flows
// through the engine; nothing else touches the widget after Mount.
type Engine struct {
	opts      Options
	store     *telemetry.Store
	roster    *roster.Cache
	selection *selection.Store

	mu      sync.Mutex
	widget  Widget
	mounted bool
	fitted  bool

	popup popupState
	// dismissed suppresses popup resurrection after the user closes it,
	// until the next explicit selection action.
	dismissed bool

	unsubs []func()
}

// NewEngine returns an unmounted engine over the given collaborators.
func NewEngine(opts Options, store *telemetry.Store, rc *roster.Cache, sel *selection.Store) *Engine {
	return &Engine{opts: opts, store: store, roster: rc, selection: sel}
}

// Mount takes ownership of the widget: declares the source and layer
// stack, pushes the current state, wires click handlers and subscribes
// to the collaborators. The camera starts at the configured center.
func (e *Engine) Mount(w Widget) error {
	e.mu.Lock()
	if e.mounted {
		e.mu.Unlock()
		return nil
	}
	e.widget = w
	if err := w.AddSource(agentSource(e.opts.ClusterRadius, e.opts.ClusterMaxZoom)); err != nil {
		e.widget = nil
		e.mu.Unlock()
		return err
	}
	for _, layer := range agentLayers() {
		if err := w.AddLayer(layer); err != nil {
			e.widget = nil
			e.mu.Unlock()
			return err
		}
	}
	w.EaseTo(CameraOptions{Center: e.opts.Center, Zoom: e.opts.Zoom})
	w.OnLayerClick(LayerPoints, e.handlePointClick)
	w.OnLayerClick(LayerClusters, e.handleClusterClick)
	e.mounted = true
	e.pushDataLocked()
	e.mu.Unlock()

	e.unsubs = append(e.unsubs,
		e.store.Subscribe(e.onDataChanged),
		e.roster.Subscribe(e.onDataChanged),
		e.selection.Subscribe(e.onSelectionAction),
	)
	return nil
}

// Unmount detaches from the collaborators and destroys the widget. The
// engine can be mounted again afterwards.
func (e *Engine) Unmount() {
	for _, un := range e.unsubs {
		un()
	}
	e.unsubs = nil

	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	stale := e.takePopupLocked()
	w := e.widget
	e.widget = nil
	e.mounted = false
	e.fitted = false
	e.dismissed = false
	e.mu.Unlock()

	if stale != nil {
		stale.Remove()
	}
	w.Destroy()
}

// onDataChanged rebuilds the point set from the current snapshots and
// replaces the source data wholesale. The first non-empty snapshot also
// frames the camera, exactly once.
func (e *Engine) onDataChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	e.pushDataLocked()
}

func (e *Engine) pushDataLocked() {
	positions := e.store.Snapshot()
	entries := e.roster.Snapshot()
	fc := BuildFeatureCollection(positions, entries)
	if err := e.widget.SetSourceData(SourceAgents, fc); err != nil {
		log.Printf("[mapsync] warn: set source data: %v", err)
		return
	}

	if !e.fitted && len(positions) > 0 {
		b, degenerate := boundsOf(positions)
		if degenerate {
			e.widget.EaseTo(CameraOptions{Center: b.SW, Zoom: e.opts.Zoom})
		} else {
			e.widget.FitBounds(b, FitOptions{Padding: e.opts.FitPadding, MaxZoom: e.opts.FitMaxZoom})
		}
		e.fitted = true
	}

	if e.popup.open {
		e.refreshPopupLocked(positions, entries)
		return
	}
	// A selection made before the agent's first position arrives opens
	// its popup here, once data exists. A user dismissal holds it closed.
	if e.dismissed {
		return
	}
	if agentID, ok := e.selection.Selected(); ok {
		if pos, havePos := positions[agentID]; havePos {
			e.openPopupLocked(agentID, pos)
		}
	}
}

// onSelectionAction reacts to an explicit selection action. A fresh
// selection always clears popup dismissal, even when the id is
// unchanged.
func (e *Engine) onSelectionAction() {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	e.dismissed = false

	agentID, ok := e.selection.Selected()
	if !ok {
		if err := e.widget.SetLayerFilter(LayerSelectionHalo, noneFilter()); err != nil {
			log.Printf("[mapsync] warn: halo filter: %v", err)
		}
		stale := e.takePopupLocked()
		e.mu.Unlock()
		if stale != nil {
			stale.Remove()
		}
		return
	}

	if err := e.widget.SetLayerFilter(LayerSelectionHalo, haloFilter(agentID)); err != nil {
		log.Printf("[mapsync] warn: halo filter: %v", err)
	}

	pos, havePos := e.store.Get(agentID)
	if havePos {
		zoom := e.opts.SelectionZoomFloor
		if current := e.widget.Zoom(); current > zoom {
			zoom = current
		}
		e.widget.EaseTo(CameraOptions{Center: LngLat{Lng: pos.Lng, Lat: pos.Lat}, Zoom: zoom})
	}

	var stale PopupHandle
	if e.popup.open && e.popup.agentID != agentID {
		stale = e.takePopupLocked()
	}
	if havePos {
		if e.popup.open {
			e.refreshPopupLocked(e.store.Snapshot(), e.roster.Snapshot())
		} else {
			e.openPopupLocked(agentID, pos)
		}
	}
	e.mu.Unlock()
	if stale != nil {
		stale.Remove()
	}
}

func (e *Engine) handlePointClick(ev ClickEvent) {
	id, _ := ev.Props["driverId"].(string)
	if id == "" {
		id = ev.FeatureID
	}
	if id == "" {
		return
	}
	e.selection.Select(id)
}

// handleClusterClick eases the camera to the zoom at which the clicked
// cluster splits. A failed lookup is a no-op; the cluster has likely
// re-formed under fresher data and the click is simply stale.
func (e *Engine) handleClusterClick(ev ClickEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	zoom, err := e.widget.ClusterExpansionZoom(SourceAgents, ev.ClusterID)
	if err != nil {
		return
	}
	e.widget.EaseTo(CameraOptions{Center: ev.LngLat, Zoom: zoom})
}

func (e *Engine) openPopupLocked(agentID string, pos telemetry.AgentPosition) {
	content := e.popupContentFrom(agentID, pos, e.roster.Snapshot())
	handle := e.widget.OpenPopup(LngLat{Lng: pos.Lng, Lat: pos.Lat}, content)
	e.popup = popupState{open: true, agentID: agentID, handle: handle}
	handle.OnClose(func() { e.onPopupClosed(handle) })
}

// refreshPopupLocked moves and restyles the open popup in place. The
// handle is reused; recreating it would discard widget-side state such
// as anchor placement.
func (e *Engine) refreshPopupLocked(positions map[string]telemetry.AgentPosition, entries map[string]roster.Entry) {
	pos, ok := positions[e.popup.agentID]
	if !ok {
		return
	}
	e.popup.handle.SetLngLat(LngLat{Lng: pos.Lng, Lat: pos.Lat})
	e.popup.handle.SetContent(e.popupContentFrom(e.popup.agentID, pos, entries))
}

// takePopupLocked detaches the current popup handle from the engine's
// state and returns it. The caller removes it after releasing the lock;
// its close callback then finds a different (or no) popup installed and
// records nothing, which is what separates engine-initiated removal from
// user dismissal.
func (e *Engine) takePopupLocked() PopupHandle {
	if !e.popup.open {
		return nil
	}
	h := e.popup.handle
	e.popup = popupState{}
	return h
}

// onPopupClosed fires from the widget whenever a popup closes. If the
// closing handle is still the installed one, the engine did not remove
// it, so the user dismissed it: suppress reopening until the next
// selection action.
func (e *Engine) onPopupClosed(h PopupHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.popup.open || e.popup.handle != h {
		return
	}
	e.popup = popupState{}
	e.dismissed = true
}

func (e *Engine) popupContentFrom(agentID string, pos telemetry.AgentPosition, entries map[string]roster.Entry) PopupContent {
	title := agentID
	status := roster.StatusDelivering
	vehicle := ""
	if entry, ok := entries[agentID]; ok {
		if entry.Name != "" {
			title = entry.Name
		}
		if entry.Status != "" {
			status = entry.Status
		}
		vehicle = entry.Vehicle
	}
	return PopupContent{
		Title:      title,
		Status:     string(status),
		Vehicle:    vehicle,
		Position:   LngLat{Lng: pos.Lng, Lat: pos.Lat},
		ObservedAt: pos.ObservedAt,
	}
}
