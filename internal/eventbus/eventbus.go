// Package eventbus implements the Event Bus (C10): a typed, publish-only
// real-time notification fabric. Subscribers join rooms keyed by
// "client_<id>" (and the legacy "client-<id>" alias) or "summaries-<id>";
// delivery is best-effort, at-most-once per subscriber, non-durable, and
// ordered only within one room.
package eventbus

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/platform/metrics"
)

// Stable event type names, per the engine's mutation points.
const (
	EventAPISaved          = "net-reduction:api-saved"
	EventIOTSaved          = "net-reduction:iot-saved"
	EventM3ManualSaved     = "net-reduction:m3-manual-saved"
	EventManualUpdated     = "net-reduction:manual-updated"
	EventManualDeleted     = "net-reduction:manual-deleted"
	EventCSVProcessed      = "net-reduction:csv-processed"
	EventSummaryUpdated    = "net-reduction-summary-updated" // per-period summary engine completion
	EventClientSummaryDone = "net-reduction:summary-updated" // legacy cross-period summary doc
)

// Event is the typed payload published to a room.
type Event struct {
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	ClientID  string         `json:"clientId"`
	Payload   map[string]any `json:"-"`
}

// MarshalJSON flattens Payload's keys alongside the envelope fields, so
// e.g. {entryId, projectId, netReduction} sit next to eventType/timestamp.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"eventType": e.EventType,
		"timestamp": e.Timestamp.Format(time.RFC3339),
		"clientId":  e.ClientID,
	}
	for k, v := range e.Payload {
		out[k] = v
	}
	return json.Marshal(out)
}

// ClientRoom returns the canonical room name for client-scoped events.
func ClientRoom(clientID string) string { return "client_" + clientID }

// LegacyClientRoom returns the legacy room alias kept for older subscribers.
func LegacyClientRoom(clientID string) string { return "client-" + clientID }

// SummariesRoom returns the room name for summary-only subscribers.
func SummariesRoom(clientID string) string { return "summaries-" + clientID }

// Publisher is the narrow interface the engine depends on; every
// component that emits events only needs Publish.
type Publisher interface {
	Publish(room string, event Event)
}

// subscriber is one joined websocket connection with a bounded outbox;
// a full outbox drops the event rather than blocking the publisher,
// matching the bus's best-effort, at-most-once contract.
type subscriber struct {
	conn   *websocket.Conn
	outbox chan Event
}

// Bus is the in-process room-based pub/sub hub. Subscribers are
// gorilla/websocket connections; Register starts a per-connection writer
// goroutine that drains its outbox.
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
	log   *logrus.Logger
}

// New returns an empty Bus.
func New(log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{rooms: make(map[string]map[*subscriber]struct{}), log: log}
}

// Register joins conn to room and returns an unregister function.
func (b *Bus) Register(room string, conn *websocket.Conn) func() {
	sub := &subscriber{conn: conn, outbox: make(chan Event, 32)}

	b.mu.Lock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[*subscriber]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	go b.writeLoop(sub, done)

	return func() {
		b.mu.Lock()
		delete(b.rooms[room], sub)
		b.mu.Unlock()
		close(sub.outbox)
		<-done
	}
}

func (b *Bus) writeLoop(sub *subscriber, done chan struct{}) {
	defer close(done)
	for ev := range sub.outbox {
		if err := sub.conn.WriteJSON(ev); err != nil {
			b.log.WithError(err).Debug("eventbus: dropping subscriber after write failure")
			return
		}
	}
}

// Publish sends event to every subscriber currently in room, best-effort:
// a subscriber whose outbox is full is skipped rather than blocking the
// publisher or the other subscribers. Publishing to the canonical
// "client_<id>" room also reaches subscribers still joined under the
// legacy "client-<id>" alias (see LegacyClientRoom), so both names stay
// live rather than the legacy one being a dead string nobody publishes to.
func (b *Bus) Publish(room string, event Event) {
	metrics.RecordEventPublished(event.EventType)

	b.deliver(room, event)
	if alias, ok := legacyAlias(room); ok {
		b.deliver(alias, event)
	}
}

// legacyAlias returns room's legacy "client-<id>" counterpart when room is
// the canonical "client_<id>" form.
func legacyAlias(room string) (string, bool) {
	const prefix = "client_"
	if !strings.HasPrefix(room, prefix) {
		return "", false
	}
	return "client-" + strings.TrimPrefix(room, prefix), true
}

func (b *Bus) deliver(room string, event Event) {
	b.mu.RLock()
	subs := b.rooms[room]
	targets := make([]*subscriber, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.outbox <- event:
		default:
			b.log.Debug("eventbus: outbox full, dropping event for subscriber")
		}
	}
}

// Descriptor advertises the bus's placement to /system/descriptors.
func (b *Bus) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "event-bus",
		Domain:       "net-reduction",
		Layer:        core.LayerIngress,
		Capabilities: []string{"websocket", "pub-sub"},
	}
}

var _ Publisher = (*Bus)(nil)
