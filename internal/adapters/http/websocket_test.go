package http_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttputil"

	handler "github.com/samirrijal/darshanam/internal/adapters/http"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/usecases"
)

func TestApplyFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr string
		check   func(t *testing.T, r *usecases.IngestResult)
	}{
		{
			name:  "heading facing the guide",
			frame: `{"type":"heading","heading":234}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if !r.Snapshot.Aligned {
					t.Error("expected aligned")
				}
				if len(r.Events) != 1 || r.Events[0].Type != domain.EventAlignmentEntered {
					t.Errorf("expected entered event, got %+v", r.Events)
				}
			},
		},
		{
			name:  "heading needing calibration",
			frame: `{"type":"heading","heading":234,"accuracy":-1}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if !r.Snapshot.Calibrating || r.Snapshot.Heading != nil {
					t.Errorf("expected calibrating without heading, got %+v", r.Snapshot)
				}
			},
		},
		{
			name:  "heading unavailable",
			frame: `{"type":"heading","unavailable":true}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if r.Snapshot.Tracking != domain.TrackingIdle {
					t.Errorf("expected idle, got %s", r.Snapshot.Tracking)
				}
			},
		},
		{
			name:  "location fix",
			frame: `{"type":"location","latitude":12.9716,"longitude":77.5946}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if r.Snapshot.Observer == nil || *r.Snapshot.Observer != bengaluru {
					t.Errorf("expected observer set, got %v", r.Snapshot.Observer)
				}
				if r.Snapshot.Cardinal != "SW" {
					t.Errorf("expected SW, got %q", r.Snapshot.Cardinal)
				}
			},
		},
		{
			name:  "location lost",
			frame: `{"type":"location","lost":true}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if r.Snapshot.Observer != nil || r.Snapshot.Bearing != nil {
					t.Errorf("expected no observer or bearing, got %+v", r.Snapshot)
				}
			},
		},
		{name: "location without coordinates", frame: `{"type":"location"}`, wantErr: "latitude and longitude are required"},
		{name: "location out of range", frame: `{"type":"location","latitude":95,"longitude":0}`, wantErr: "invalid coordinate"},
		{
			name:  "tilt",
			frame: `{"type":"tilt","beta":40,"gamma":0}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if !r.Snapshot.TiltExcessive {
					t.Error("expected tilt warning")
				}
			},
		},
		{
			name:  "threshold",
			frame: `{"type":"threshold","threshold_degrees":40}`,
			check: func(t *testing.T, r *usecases.IngestResult) {
				if r.Snapshot.Threshold != 40 {
					t.Errorf("expected threshold 40, got %v", r.Snapshot.Threshold)
				}
			},
		},
		{name: "threshold out of range", frame: `{"type":"threshold","threshold_degrees":0}`, wantErr: "threshold_degrees must be in (0, 180]"},
		{name: "unknown type", frame: `{"type":"spin"}`, wantErr: "unknown frame type: spin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := makeDeps()
			seedGuide(t, deps, mysuru)
			ctx := context.Background()
			start, err := deps.Tracking.Start(ctx, usecases.StartOptions{Observer: &bengaluru})
			if err != nil {
				t.Fatalf("start: %v", err)
			}

			r, err := handler.ApplyFrame(ctx, deps.Tracking, start.Snapshot.SessionID, tt.frame)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestApplyFrame_UnknownSession(t *testing.T) {
	deps, _ := makeDeps()
	_, err := handler.ApplyFrame(context.Background(), deps.Tracking, "missing", `{"type":"heading","heading":10}`)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestWebSocket_ThresholdQuery(t *testing.T) {
	app := setupApp(func() *handler.Dependencies { d, _ := makeDeps(); return d }())
	upgrade := []string{
		"Connection", "Upgrade",
		"Upgrade", "websocket",
		"Sec-WebSocket-Version", "13",
		"Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==",
	}

	status, _, _ := doJSON(t, app, http.MethodGet, "/ws?threshold=500", "", upgrade...)
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range threshold, got %d", status)
	}
	status, _, _ = doJSON(t, app, http.MethodGet, "/ws?threshold=abc", "", upgrade...)
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric threshold, got %d", status)
	}
	status, _, _ = doJSON(t, app, http.MethodGet, "/ws", "")
	if status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426 without upgrade headers, got %d", status)
	}
}

type wsMessage struct {
	Type  string                    `json:"type"`
	State *domain.AlignmentSnapshot `json:"state"`
	Event *domain.AlignmentEvent    `json:"event"`
	Error string                    `json:"error"`
}

func dialWS(t *testing.T, deps *handler.Dependencies, path string) *websocket.Conn {
	t.Helper()
	app := setupApp(deps)
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	dialer := websocket.Dialer{
		NetDial:          func(network, addr string) (net.Conn, error) { return ln.Dial() },
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.Dial("ws://darshanam.test"+path, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return m
}

func sendWS(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestWebSocket_SessionLifecycle(t *testing.T) {
	deps, _ := makeDeps()
	seedGuide(t, deps, mysuru)
	conn := dialWS(t, deps, "/ws?threshold=20")

	m := readWS(t, conn)
	if m.Type != "state" || m.State == nil {
		t.Fatalf("expected initial state frame, got %+v", m)
	}
	if m.State.Threshold != 20 {
		t.Errorf("expected threshold from query, got %v", m.State.Threshold)
	}
	if deps.Tracking.Count() != 1 {
		t.Fatalf("expected one session, got %d", deps.Tracking.Count())
	}

	sendWS(t, conn, `{"type":"location","latitude":12.9716,"longitude":77.5946}`)
	if m := readWS(t, conn); m.Type != "state" || m.State.Bearing == nil {
		t.Fatalf("expected state with bearing, got %+v", m)
	}

	sendWS(t, conn, `{"type":"heading","heading":234}`)
	if m := readWS(t, conn); m.Type != "event" || m.Event.Type != domain.EventAlignmentEntered {
		t.Fatalf("expected entered event frame, got %+v", m)
	}
	if m := readWS(t, conn); m.Type != "state" || !m.State.Aligned {
		t.Fatalf("expected aligned state frame, got %+v", m)
	}

	sendWS(t, conn, `not json`)
	if m := readWS(t, conn); m.Type != "error" || m.Error != "invalid JSON" {
		t.Errorf("expected invalid JSON error frame, got %+v", m)
	}
	sendWS(t, conn, `{"type":"spin"}`)
	if m := readWS(t, conn); m.Type != "error" || m.Error != "unknown frame type: spin" {
		t.Errorf("expected unknown type error frame, got %+v", m)
	}

	// A guide update turns the target due north: the socket sees the exit.
	north := domain.GuideLocation{Location: domain.GeoCoordinate{Latitude: 13.9716, Longitude: 77.5946}}
	if err := deps.Tracking.Retarget(context.Background(), &north); err != nil {
		t.Fatalf("retarget: %v", err)
	}
	if m := readWS(t, conn); m.Type != "event" || m.Event.Type != domain.EventAlignmentExited {
		t.Fatalf("expected exited event frame after retarget, got %+v", m)
	}
	if m := readWS(t, conn); m.Type != "state" || m.State.Aligned || m.State.Cardinal != "N" {
		t.Fatalf("expected unaligned state facing north, got %+v", m.State)
	}

	// Sessions owned by a socket outlive the reaper.
	if n := deps.Tracking.Reap(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("expected socket session kept, reaped %d", n)
	}

	_ = conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for deps.Tracking.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not stopped after the socket closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
