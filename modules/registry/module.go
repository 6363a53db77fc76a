package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/rtc-relay-demo/domain/chat"
	"github.com/example/rtc-relay-demo/events"
)

// defaultRoom is registered at startup so a fresh deployment is never an
// empty directory.
const defaultRoom = "lobby"

// Module is the persistent store adapter: the durable room registry and
// the append-only chat log, backed by GORM + SQLite.
type Module struct {
	db       *gorm.DB
	repo     *Repository
	eventBus mono.EventBus
	dbPath   string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new registry module.
func NewModule() *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "relay.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "registry"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to chat messages accepted by the relay
// engine and persists them. Signaling payloads never reach this path.
func (m *Module) RegisterEventConsumers(reg mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		reg, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	log.Println("[registry] Registered event consumers: MessageSent")
	return nil
}

// handleMessageSent appends an accepted chat message to the room history.
// A store write failure is retried once and then dropped with a warning;
// it must never take down a connection or the event loop.
func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	err := m.repo.AppendMessage(event.Room, event.Username, event.Content, event.Timestamp)
	if err != nil {
		err = m.repo.AppendMessage(event.Room, event.Username, event.Content, event.Timestamp)
	}
	if err != nil {
		slog.Warn("dropping chat message after failed append",
			"room", event.Room, "username", event.Username, "error", err)
	}
	return nil
}

// RegisterServices registers the request-reply services used by the REST
// discovery API.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRegister, json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegister, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.handleList,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceList, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceHistory, json.Unmarshal, json.Marshal, m.handleHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceHistory, err)
	}

	log.Printf("[registry] Registered services: services.registry.{register,list,history}")
	return nil
}

func (m *Module) handleRegister(_ context.Context, req *RegisterRoomRequest, _ *mono.Msg) (*RegisterRoomResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	created, err := m.RegisterRoom(context.Background(), req.Name)
	if err != nil {
		return nil, err
	}
	return &RegisterRoomResponse{
		Room:    chat.Room{Name: req.Name, CreatedAt: time.Now()},
		Created: created,
	}, nil
}

func (m *Module) handleList(_ context.Context, _ *ListRoomsRequest, _ *mono.Msg) (*ListRoomsResponse, error) {
	rooms, err := m.repo.ListRooms()
	if err != nil {
		return nil, err
	}
	return &ListRoomsResponse{Rooms: rooms}, nil
}

func (m *Module) handleHistory(_ context.Context, req *HistoryRequest, _ *mono.Msg) (*HistoryResponse, error) {
	if req.Room == "" {
		return nil, fmt.Errorf("room name is required")
	}
	msgs, err := m.repo.History(req.Room, req.Limit)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Messages: msgs}, nil
}

// Start opens the SQLite database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[registry] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&RoomRecord{}, &MessageRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)

	if _, err := m.repo.RegisterRoom(defaultRoom); err != nil {
		return fmt.Errorf("failed to register default room: %w", err)
	}

	log.Println("[registry] Module started successfully")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[registry] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[registry] Database connection closed")
	return nil
}

// Health performs a database ping.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// RegisterRoom registers a room durably and announces genuinely new rooms
// on the event bus. Duplicate names are success with created=false and no
// announcement.
func (m *Module) RegisterRoom(_ context.Context, name string) (bool, error) {
	created, err := m.repo.RegisterRoom(name)
	if err != nil {
		return false, err
	}
	if created && m.eventBus != nil {
		ev := events.RoomCreatedEvent{Name: name, Timestamp: time.Now()}
		if err := events.RoomCreatedV1.Publish(m.eventBus, ev, nil); err != nil {
			slog.Warn("failed to publish RoomCreated event", "room", name, "error", err)
		}
	}
	return created, nil
}

// ListRooms returns every registered room name in creation order.
func (m *Module) ListRooms(_ context.Context) ([]string, error) {
	rooms, err := m.repo.ListRooms()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		names = append(names, room.Name)
	}
	return names, nil
}

// History returns up to limit recent messages for a room, oldest first.
func (m *Module) History(_ context.Context, room string, limit int) ([]chat.Message, error) {
	return m.repo.History(room, limit)
}
