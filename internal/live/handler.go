package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/sereno-care/practice-platform/internal/events"
	"github.com/sereno-care/practice-platform/internal/scheduling"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Snapshotter loads the appointment list used to seed a new connection.
type Snapshotter interface {
	List(ctx context.Context, orgID string, from, to time.Time) ([]scheduling.Appointment, error)
}

// Handler streams calendar changes to connected clients over WebSocket.
// Each connection keeps its own projection of the org's appointment list,
// maintained through the scheduling reducer, so a client can ask for the
// current state at any point with a sync frame.
type Handler struct {
	bus       *events.Bus
	snapshots Snapshotter
	logger    *logging.Logger

	// snapshot horizon around now, seeds new connections
	lookBehind time.Duration
	lookAhead  time.Duration

	now func() time.Time
}

// InboundFrame is what a feed client sends.
type InboundFrame struct {
	Type string `json:"type"` // "ping", "sync"
}

// Frame is what the feed sends to clients.
type Frame struct {
	Type         string                   `json:"type"` // "snapshot", "upserted", "removed", "reloaded", "pong", "error"
	Appointments []scheduling.Appointment `json:"appointments,omitempty"`
	RemovedID    string                   `json:"removed_id,omitempty"`
	Text         string                   `json:"text,omitempty"`
}

// NewHandler creates a live feed handler.
func NewHandler(bus *events.Bus, snapshots Snapshotter, logger *logging.Logger) *Handler {
	if bus == nil {
		panic("live: event bus is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		bus:        bus,
		snapshots:  snapshots,
		logger:     logger,
		lookBehind: 30 * 24 * time.Hour,
		lookAhead:  120 * 24 * time.Hour,
		now:        time.Now,
	}
}

// HandleWebSocket upgrades to WebSocket and streams calendar changes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		_ = websocket.JSON.Send(conn, Frame{Type: "error", Text: "missing org parameter"})
		return
	}

	ch, cancel := h.bus.Subscribe(orgID)
	defer cancel()

	projection := h.loadSnapshot(r.Context(), orgID)
	_ = websocket.JSON.Send(conn, Frame{Type: "snapshot", Appointments: projection})

	h.logger.Info("live: feed opened", "org_id", orgID, "appointments", len(projection))

	// Reader goroutine handles pings and sync requests and signals close.
	inbound := make(chan InboundFrame)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg InboundFrame
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case env := <-ch:
			frame, ev, ok := frameFor(env)
			if !ok {
				continue
			}
			projection = scheduling.Reduce(projection, ev)
			if err := websocket.JSON.Send(conn, frame); err != nil {
				h.logger.Debug("live: feed closed", "org_id", orgID, "error", err)
				return
			}
		case msg := <-inbound:
			switch msg.Type {
			case "ping":
				_ = websocket.JSON.Send(conn, Frame{Type: "pong"})
			case "sync":
				_ = websocket.JSON.Send(conn, Frame{Type: "snapshot", Appointments: projection})
			}
		case <-done:
			h.logger.Debug("live: feed closed", "org_id", orgID)
			return
		}
	}
}

func (h *Handler) loadSnapshot(ctx context.Context, orgID string) []scheduling.Appointment {
	if h.snapshots == nil {
		return nil
	}
	now := h.now()
	appts, err := h.snapshots.List(ctx, orgID, now.Add(-h.lookBehind), now.Add(h.lookAhead))
	if err != nil {
		h.logger.Error("live: snapshot load failed", "error", err, "org_id", orgID)
		return nil
	}
	return appts
}

// frameFor converts a bus envelope into an outbound frame and the reducer
// event that keeps the connection's projection current.
func frameFor(env events.Envelope) (Frame, scheduling.ListEvent, bool) {
	switch p := env.Payload.(type) {
	case scheduling.Upserted:
		return Frame{Type: "upserted", Appointments: p.Appointments}, p, true
	case scheduling.Removed:
		return Frame{Type: "removed", RemovedID: p.ID}, p, true
	case scheduling.Reloaded:
		return Frame{Type: "reloaded", Appointments: p.Appointments}, p, true
	}
	return Frame{}, nil, false
}

// HandleSnapshot is the HTTP fallback for clients that cannot hold a socket.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		http.Error(w, "org parameter required", http.StatusBadRequest)
		return
	}

	appts := h.loadSnapshot(r.Context(), orgID)
	if appts == nil {
		appts = []scheduling.Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"appointments": appts})
}
