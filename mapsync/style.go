package mapsync

import "github.com/dispatchlab/fleetmap/roster"

// Source and layer ids owned by the engine.
const (
	SourceAgents       = "agents"
	LayerClusters      = "clusters"
	LayerClusterCounts = "cluster-counts"
	LayerPoints        = "points"
	LayerSelectionHalo = "selection-halo"
	LayerPointLabels   = "point-labels"
)

const (
	colorCluster       = "#2563eb"
	colorPointStroke   = "#064e3b"
	colorDelivering    = "#10b981"
	colorPaused        = "#9ca3af"
	colorIdle          = "#3b82f6"
	colorAlarm         = "#ef4444"
	colorSelectionHalo = "#f59e0b"
)

// statusColor maps a roster status to its point color. Unknown statuses
// fall back to the delivering color.
func statusColor(s roster.Status) string {
	switch s {
	case roster.StatusPaused:
		return colorPaused
	case roster.StatusIdle:
		return colorIdle
	case roster.StatusAlarm:
		return colorAlarm
	default:
		return colorDelivering
	}
}

// statusColorExpression is the declarative form of statusColor, evaluated
// by the widget per feature.
func statusColorExpression() []interface{} {
	return []interface{}{
		"match", []interface{}{"get", "status"},
		string(roster.StatusPaused), colorPaused,
		string(roster.StatusIdle), colorIdle,
		string(roster.StatusAlarm), colorAlarm,
		colorDelivering,
	}
}

// noneFilter matches no feature. Used for the halo layer while nothing
// is selected.
func noneFilter() []interface{} {
	return []interface{}{"==", []interface{}{"get", "driverId"}, ""}
}

func haloFilter(agentID string) []interface{} {
	return []interface{}{"==", []interface{}{"get", "driverId"}, agentID}
}

func agentSource(clusterRadius, clusterMaxZoom int) SourceSpec {
	return SourceSpec{
		ID:             SourceAgents,
		Cluster:        true,
		ClusterRadius:  clusterRadius,
		ClusterMaxZoom: clusterMaxZoom,
	}
}

// agentLayers is the full layer stack, bottom to top. The halo sits
// under the points so the selected marker stays visible.
func agentLayers() []LayerSpec {
	return []LayerSpec{
		{
			ID:     LayerClusters,
			Source: SourceAgents,
			Type:   "circle",
			Filter: []interface{}{"has", "point_count"},
			Paint: map[string]interface{}{
				"circle-color":  colorCluster,
				"circle-radius": 18,
			},
		},
		{
			ID:     LayerClusterCounts,
			Source: SourceAgents,
			Type:   "symbol",
			Filter: []interface{}{"has", "point_count"},
			Layout: map[string]interface{}{
				"text-field": []interface{}{"get", "point_count_abbreviated"},
				"text-size":  12,
			},
			Paint: map[string]interface{}{
				"text-color": "#ffffff",
			},
		},
		{
			ID:     LayerSelectionHalo,
			Source: SourceAgents,
			Type:   "circle",
			Filter: noneFilter(),
			Paint: map[string]interface{}{
				"circle-color":        colorSelectionHalo,
				"circle-radius":       12,
				"circle-opacity":      0.5,
				"circle-stroke-width": 2,
				"circle-stroke-color": colorSelectionHalo,
			},
		},
		{
			ID:     LayerPoints,
			Source: SourceAgents,
			Type:   "circle",
			Filter: []interface{}{"!", []interface{}{"has", "point_count"}},
			Paint: map[string]interface{}{
				"circle-color":        statusColorExpression(),
				"circle-radius":       7,
				"circle-stroke-width": 1.5,
				"circle-stroke-color": colorPointStroke,
			},
		},
		{
			ID:     LayerPointLabels,
			Source: SourceAgents,
			Type:   "symbol",
			Filter: []interface{}{"!", []interface{}{"has", "point_count"}},
			Layout: map[string]interface{}{
				"text-field":  []interface{}{"get", "label"},
				"text-size":   11,
				"text-offset": []interface{}{0, 1.2},
				"text-anchor": "top",
			},
			Paint: map[string]interface{}{
				"text-color": "#111827",
			},
		},
	}
}
