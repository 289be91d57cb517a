// Package mapsync projects fleet state onto a map widget.
//
// The engine is the single writer of the widget it mounts. It joins the
// live position store with the roster cache into one GeoJSON point set,
// replaces the widget's source data wholesale on every change, and
// drives the camera, the selection halo and the agent popup. Sources
// and layers are declared once at mount; afterwards only data, filters
// and the camera move.
//
// The popup lifecycle is deliberately narrow: at most one popup exists,
// it follows its agent's position without being recreated, and a user
// dismissal keeps it closed until the next explicit selection action.
package mapsync
