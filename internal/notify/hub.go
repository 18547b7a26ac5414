// Package notify implements the server-push side of the dashboard:
// every connected client holds an open SSE stream and receives typed
// refresh events whenever a domain service mutates state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventConnected         EventType = "CONNECTED"
	EventOrdersUpdated     EventType = "ORDERS_UPDATED"
	EventProductsUpdated   EventType = "PRODUCTS_UPDATED"
	EventCategoriesUpdated EventType = "CATEGORIES_UPDATED"
	EventSalesUpdated      EventType = "SALES_UPDATED"
	EventInvoicesUpdated   EventType = "INVOICES_UPDATED"
	EventSettingsUpdated   EventType = "SETTINGS_UPDATED"
)

type event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	mu      sync.Mutex // serializes writes between broadcasts and heartbeat
	w       http.ResponseWriter
	flusher http.Flusher
	types   map[EventType]struct{} // empty means all types
}

// wants reports whether the client's filter matches the event type.
// The synthetic CONNECTED event is never filtered out.
func (c *client) wants(t EventType) bool {
	if len(c.types) == 0 || t == EventConnected {
		return true
	}
	_, ok := c.types[t]
	return ok
}

func (c *client) send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(frame); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// Hub is the in-memory registry of open SSE connections. A single Hub
// is created at startup and shared by every request handler, so all
// registry access is guarded by a mutex.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	heartbeat time.Duration
	now       func() time.Time
	closeOnce sync.Once
	done      chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		heartbeat: 30 * time.Second,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Close releases every open stream. Server.Shutdown waits for in-flight
// requests but does not cancel their contexts, so without this the
// streams would hold shutdown open until its deadline.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Serve upgrades the request to an SSE stream and blocks until the
// client disconnects. types restricts which events the client will
// receive; an empty slice subscribes to everything.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, types []EventType) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("notify: response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	c := &client{
		w:       w,
		flusher: flusher,
		types:   make(map[EventType]struct{}, len(types)),
	}
	for _, t := range types {
		c.types[t] = struct{}{}
	}

	if _, err := w.Write([]byte("retry: 10000\n\n")); err != nil {
		return fmt.Errorf("notify: failed to write retry hint: %w", err)
	}
	flusher.Flush()

	h.add(c)
	defer h.remove(c)

	if err := c.send(h.frame(EventConnected)); err != nil {
		return fmt.Errorf("notify: failed to send connected event: %w", err)
	}

	log.Debug().Int("clients", h.Clients()).Msg("SSE client connected")

	select {
	case <-r.Context().Done():
		log.Debug().Msg("SSE client disconnected")
	case <-h.done:
		log.Debug().Msg("SSE stream released for shutdown")
	}
	return nil
}

// Broadcast fans an event out to every subscriber whose filter matches.
// Delivery is best-effort: a client whose write fails is dropped on the
// spot rather than waiting for its close handler.
func (h *Hub) Broadcast(t EventType) {
	frame := h.frame(t)

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(t) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(frame); err != nil {
			log.Warn().Err(err).Str("event", string(t)).Msg("Dropping unwritable SSE client")
			h.remove(c)
		}
	}

	log.Debug().Str("event", string(t)).Int("subscribers", len(targets)).Msg("Event broadcast")
}

// Run emits a heartbeat comment to every open stream until ctx is
// cancelled, keeping idle connections alive through proxies.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-ticker.C:
			h.mu.Lock()
			targets := make([]*client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.Unlock()

			for _, c := range targets {
				if err := c.send([]byte(": heartbeat\n\n")); err != nil {
					h.remove(c)
				}
			}
		}
	}
}

// Clients returns the number of currently registered streams.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) frame(t EventType) []byte {
	payload, err := json.Marshal(event{Type: t, Timestamp: h.now().UTC()})
	if err != nil {
		// event is a fixed struct, this cannot fail at runtime
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return []byte("data: {}\n\n")
	}
	return []byte("data: " + string(payload) + "\n\n")
}

// ParseTypes converts the comma-separated types query parameter into
// event types, ignoring empty entries.
func ParseTypes(raw string) []EventType {
	if raw == "" {
		return nil
	}
	var out []EventType
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, EventType(s))
		}
	}
	return out
}
