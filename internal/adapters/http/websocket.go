package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/usecases"
	"github.com/samirrijal/darshanam/internal/pkg/metrics"
)

// wsFrame is sent by the client. Type selects which fields are read.
type wsFrame struct {
	Type string `json:"type"` // "heading" | "location" | "tilt" | "threshold"

	Heading     *float64 `json:"heading"`
	Accuracy    *float64 `json:"accuracy"`
	Unavailable bool     `json:"unavailable"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lost      bool     `json:"lost"`

	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`

	ThresholdDegrees float64 `json:"threshold_degrees"`
}

type wsOut struct {
	Type  string                    `json:"type"` // "state" | "event" | "error"
	State *domain.AlignmentSnapshot `json:"state,omitempty"`
	Event *domain.AlignmentEvent    `json:"event,omitempty"`
	Error string                    `json:"error,omitempty"`
}

// WebSocketHandler runs one tracking session per connection. The client
// streams sensor frames and receives the new state after each frame, plus
// one "event" frame per alignment transition, including transitions caused
// by guide location updates. The session is exempt from reaping and is
// stopped when the socket closes.
func WebSocketHandler(tracking *usecases.TrackingService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v wsOut) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		writeResult := func(res *usecases.IngestResult) error {
			for i := range res.Events {
				if err := writeJSON(wsOut{Type: "event", Event: &res.Events[i]}); err != nil {
					return err
				}
			}
			return writeJSON(wsOut{Type: "state", State: &res.Snapshot})
		}

		opts := usecases.StartOptions{
			Owned: true,
			// Guide retargets arrive from the NATS subscriber goroutine.
			OnUpdate: func(res *usecases.IngestResult) { _ = writeResult(res) },
		}
		if v, ok := c.Locals("threshold").(float64); ok {
			opts.ThresholdDegrees = v
		}
		start, err := tracking.Start(ctx, opts)
		if err != nil {
			_ = writeJSON(wsOut{Type: "error", Error: err.Error()})
			return
		}
		id := start.Snapshot.SessionID
		log := slog.Default().With("session_id", id, "remote", c.RemoteAddr().String())
		log.Info("ws session opened")
		defer func() {
			_ = tracking.Stop(context.Background(), id)
			log.Info("ws session closed")
		}()
		_ = writeJSON(wsOut{Type: "state", State: &start.Snapshot})

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var f wsFrame
			if err := json.Unmarshal(msg, &f); err != nil {
				_ = writeJSON(wsOut{Type: "error", Error: "invalid JSON"})
				continue
			}

			res, err := applyFrame(ctx, tracking, id, &f)
			if err != nil {
				_ = writeJSON(wsOut{Type: "error", Error: err.Error()})
				continue
			}
			if err := writeResult(res); err != nil {
				return
			}
		}
	}
}

type wsError string

func (e wsError) Error() string { return string(e) }

func applyFrame(ctx context.Context, tracking *usecases.TrackingService, id string, f *wsFrame) (*usecases.IngestResult, error) {
	switch f.Type {
	case "heading":
		if f.Unavailable {
			return tracking.ClearHeading(ctx, id)
		}
		return tracking.IngestHeading(ctx, id, f.Heading, f.Accuracy)
	case "location":
		if f.Lost {
			return tracking.IngestObserver(ctx, id, nil)
		}
		observer, err := optionalCoord(f.Latitude, f.Longitude)
		if err != nil {
			return nil, err
		}
		if observer == nil {
			return nil, wsError("latitude and longitude are required unless lost is set")
		}
		return tracking.IngestObserver(ctx, id, observer)
	case "tilt":
		return tracking.IngestTilt(ctx, id, f.Beta, f.Gamma)
	case "threshold":
		if f.ThresholdDegrees <= 0 || f.ThresholdDegrees > 180 {
			return nil, wsError("threshold_degrees must be in (0, 180]")
		}
		return tracking.SetThreshold(ctx, id, f.ThresholdDegrees)
	default:
		return nil, wsError("unknown frame type: " + f.Type)
	}
}
