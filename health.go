package fleetmap

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status         string   `json:"status"`
	LastEventEpoch int64    `json:"last_event_epoch"`
	TrackedAgents  int      `json:"tracked_agents"`
	Recent         []string `json:"recent,omitempty"`
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok"}
	if m.Session != nil {
		if last := m.Session.LastEventAt(); !last.IsZero() {
			resp.LastEventEpoch = last.Unix()
		}
		resp.Recent = m.Session.Recent()
	}
	if m.Store != nil {
		resp.TrackedAgents = m.Store.Len()
	}
	_ = json.NewEncoder(w).Encode(resp)
}
