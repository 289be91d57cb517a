package stream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wire kinds consumed by this client.
const (
	KindHello = "hello"
	KindGPS   = "gps"
)

// Envelope is the versioned wrapper around every stream message.
type Envelope struct {
	V    int             `json:"v"`
	Type string          `json:"type"`
	TS   string          `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// HelloData is the payload of a "hello" greeting frame.
type HelloData struct {
	Msg string `json:"msg"`
}

// GPSPing is the payload of a "gps" frame.
type GPSPing struct {
	DriverID string  `json:"driverId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Event is a decoded envelope handed to the connection handler. Exactly
// one of Hello and GPS is set for recognized kinds; unrecognized kinds
// carry only the raw envelope.
type Event struct {
	Kind     string
	SentAt   time.Time
	Envelope Envelope
	Hello    *HelloData
	GPS      *GPSPing
}

// Handler receives every successfully decoded stream event.
type Handler func(Event)

// decodeEvent parses one raw frame into an Event. A frame that is not a
// valid envelope, or a recognized kind with a malformed payload, returns
// an error and must be dropped by the caller.
func decodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("envelope: %w", err)
	}
	if env.Type == "" {
		return Event{}, fmt.Errorf("envelope: missing type")
	}
	sentAt, err := time.Parse(time.RFC3339, env.TS)
	if err != nil {
		return Event{}, fmt.Errorf("envelope ts %q: %w", env.TS, err)
	}
	ev := Event{Kind: env.Type, SentAt: sentAt, Envelope: env}
	switch env.Type {
	case KindHello:
		var hello HelloData
		if err := json.Unmarshal(env.Data, &hello); err != nil {
			return Event{}, fmt.Errorf("hello payload: %w", err)
		}
		ev.Hello = &hello
	case KindGPS:
		var ping GPSPing
		if err := json.Unmarshal(env.Data, &ping); err != nil {
			return Event{}, fmt.Errorf("gps payload: %w", err)
		}
		if ping.DriverID == "" {
			return Event{}, fmt.Errorf("gps payload: missing driverId")
		}
		ev.GPS = &ping
	}
	return ev, nil
}
