package wsserver

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/rtc-relay-demo/modules/registry"
	"github.com/example/rtc-relay-demo/modules/relay"
)

const maxHistoryLimit = 100

// Handlers contains HTTP and WebSocket handlers.
type Handlers struct {
	engine   *relay.Engine
	registry registry.Port
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(engine *relay.Engine, reg registry.Port) *Handlers {
	return &Handlers{
		engine:   engine,
		registry: reg,
		logger:   slog.Default(),
	}
}

// wsStream adapts a websocket connection to the engine's transport
// abstraction. Only the connection's write loop touches it, so writes
// need no locking.
type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Send(payload []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// HandleWebSocket owns one client connection: it hands the stream to the
// engine, then pumps inbound frames until the client goes away. Malformed
// frames are the engine's problem; only read errors end the loop.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	conn := h.engine.Connect(&wsStream{conn: c})
	defer h.engine.Disconnect(conn)

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read error", "id", conn.ID(), "error", err)
			}
			return
		}
		h.engine.HandleFrame(conn, frame)
	}
}

// REST Handlers

// ListRooms handles room listing requests (GET /api/v1/rooms).
func (h *Handlers) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.registry.ListRooms(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list rooms")
	}
	return c.JSON(fiber.Map{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// CreateRoom handles room creation requests (POST /api/v1/rooms).
// Duplicate names return the existing room with 200 instead of an error.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	var req registry.RegisterRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Room name is required",
		})
	}

	room, created, err := h.registry.RegisterRoom(c.UserContext(), req.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create room")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"room":    room,
		"created": created,
	})
}

// GetRoomHistory handles room history requests
// (GET /api/v1/rooms/:name/history).
func (h *Handlers) GetRoomHistory(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Room name is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.registry.History(c.UserContext(), name, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load history")
	}
	return c.JSON(fiber.Map{
		"room":     name,
		"messages": messages,
		"total":    len(messages),
	})
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "rtc-relay",
	})
}
