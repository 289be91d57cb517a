package stream

import (
	"testing"
	"time"
)

func TestDecodeEvent_GPS(t *testing.T) {
	raw := []byte(`{"v":1,"type":"gps","ts":"2026-08-30T12:00:00Z","data":{"driverId":"drv-001","lat":49.28,"lng":-123.12}}`)
	ev, err := decodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindGPS {
		t.Errorf("kind = %q, want %q", ev.Kind, KindGPS)
	}
	if ev.GPS == nil {
		t.Fatal("GPS payload missing")
	}
	if ev.GPS.DriverID != "drv-001" || ev.GPS.Lat != 49.28 || ev.GPS.Lng != -123.12 {
		t.Errorf("payload = %+v", *ev.GPS)
	}
	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if !ev.SentAt.Equal(want) {
		t.Errorf("SentAt = %v, want %v", ev.SentAt, want)
	}
}

func TestDecodeEvent_Hello(t *testing.T) {
	raw := []byte(`{"v":1,"type":"hello","ts":"2026-08-30T12:00:00Z","data":{"msg":"feed online"}}`)
	ev, err := decodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Hello == nil || ev.Hello.Msg != "feed online" {
		t.Errorf("hello payload = %+v", ev.Hello)
	}
}

// TestDecodeEvent_UnknownKindPassesThrough verifies that frames of a
// kind this client does not understand still decode; the session decides
// what to do with them.
func TestDecodeEvent_UnknownKindPassesThrough(t *testing.T) {
	raw := []byte(`{"v":1,"type":"battery","ts":"2026-08-30T12:00:00Z","data":{"level":40}}`)
	ev, err := decodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != "battery" {
		t.Errorf("kind = %q, want battery", ev.Kind)
	}
	if ev.Hello != nil || ev.GPS != nil {
		t.Error("unknown kind must not populate typed payloads")
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing type", `{"v":1,"ts":"2026-08-30T12:00:00Z","data":{}}`},
		{"bad timestamp", `{"v":1,"type":"gps","ts":"yesterday","data":{"driverId":"d","lat":1,"lng":2}}`},
		{"gps missing driverId", `{"v":1,"type":"gps","ts":"2026-08-30T12:00:00Z","data":{"lat":1,"lng":2}}`},
		{"gps payload wrong shape", `{"v":1,"type":"gps","ts":"2026-08-30T12:00:00Z","data":"nope"}`},
		{"hello payload wrong shape", `{"v":1,"type":"hello","ts":"2026-08-30T12:00:00Z","data":[1,2]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeEvent([]byte(tc.raw)); err == nil {
				t.Errorf("decode succeeded, want error")
			}
		})
	}
}
