package relay

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/rtc-relay-demo/events"
)

// Module wraps the relay engine in the module lifecycle. It forwards
// accepted chat messages onto the event bus and reacts to RoomCreated
// events by re-announcing the room list to every connection.
type Module struct {
	engine   *Engine
	eventBus mono.EventBus
	cancel   context.CancelFunc
	opts     Options
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ EventSink                  = (*Module)(nil)
)

// NewModule creates a new relay module on top of the given store.
func NewModule(store Store) *Module {
	m := &Module{opts: optionsFromEnv()}
	m.engine = NewEngine(store, m, m.opts)
	return m
}

// optionsFromEnv reads the engine's tuning knobs from the environment.
func optionsFromEnv() Options {
	opts := Options{HistoryLimit: 50}
	if v := os.Getenv("CHAT_ECHO_SENDER"); v != "" {
		if echo, err := strconv.ParseBool(v); err == nil {
			opts.EchoSender = echo
		} else {
			slog.Warn("ignoring invalid CHAT_ECHO_SENDER value", "value", v)
		}
	}
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			opts.HistoryLimit = limit
		} else {
			slog.Warn("ignoring invalid HISTORY_LIMIT value", "value", v)
		}
	}
	return opts
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Engine exposes the engine for the transport module.
func (m *Module) Engine() *Engine {
	return m.engine
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to RoomCreated events so that rooms
// created over any surface announce to every live connection.
func (m *Module) RegisterEventConsumers(reg mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		reg, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	log.Println("[relay] Registered event consumers: RoomCreated")
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	log.Printf("[relay] Announcing new room to all clients: %s", event.Name)
	m.engine.AnnounceRooms()
	return nil
}

// MessageSent publishes an accepted chat message for persistence.
func (m *Module) MessageSent(room, username, content string, ts time.Time) {
	if m.eventBus == nil {
		return
	}
	ev := events.MessageSentEvent{
		Room:      room,
		Username:  username,
		Content:   content,
		Timestamp: ts,
	}
	if err := events.MessageSentV1.Publish(m.eventBus, ev, nil); err != nil {
		slog.Warn("failed to publish MessageSent event",
			"room", room, "username", username, "error", err)
	}
}

// Start launches the engine loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.engine.Run(ctx)
	log.Printf("[relay] Module started - engine running (echoSender=%v historyLimit=%d)",
		m.opts.EchoSender, m.opts.HistoryLimit)
	return nil
}

// Stop shuts the engine down and waits for the loop to drain.
func (m *Module) Stop(_ context.Context) error {
	connCount := m.engine.ConnectionCount()
	if m.cancel != nil {
		m.cancel()
		m.engine.Wait()
	}
	log.Printf("[relay] Module stopped - %d clients were connected", connCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.engine.ConnectionCount(),
			"live_rooms":        m.engine.RoomCount(),
			"messages_relayed":  m.engine.MessageCount(),
		},
	}
}
