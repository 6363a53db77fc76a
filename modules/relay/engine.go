package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/example/rtc-relay-demo/domain/chat"
)

// Store is the engine's narrow view of the durable registry. Every call
// is a suspension point: the engine invokes it from short-lived goroutines
// and consumes the result as a completion event on its own queue.
type Store interface {
	RegisterRoom(ctx context.Context, name string) (created bool, err error)
	ListRooms(ctx context.Context) ([]string, error)
	History(ctx context.Context, room string, limit int) ([]chat.Message, error)
}

// EventSink receives domain events produced by the engine. The relay
// module forwards them to the application event bus.
type EventSink interface {
	MessageSent(room, username, content string, ts time.Time)
}

// Options is the engine's static configuration.
type Options struct {
	// EchoSender controls the chat recipient policy: false broadcasts to
	// everyone in the room except the author (clients echo locally), true
	// includes the author (server is the authoritative echo).
	EchoSender bool
	// HistoryLimit caps how many messages are replayed on join.
	HistoryLimit int
}

const queueDepth = 512

// Engine owns the room directory and every connection's mutable state.
// One goroutine drains a single FIFO queue of events; all membership and
// naming mutations happen there, so the directory needs no locks and two
// events can never interleave mid-handler. Outbound sends and store calls
// never block the loop.
type Engine struct {
	store Store
	sink  EventSink
	opts  Options
	log   *slog.Logger

	queue chan event
	dir   *directory
	conns map[*Conn]struct{}

	ctx  context.Context
	done chan struct{}

	connCount    atomic.Int64
	roomCount    atomic.Int64
	messageCount atomic.Int64
}

// Queue events. Completion events carry results of suspended store calls
// back into the loop.
type (
	evConnect    struct{ c *Conn }
	evDisconnect struct{ c *Conn }
	evRequest    struct {
		c   *Conn
		req Request
	}
	evBadFrame struct{ c *Conn }
	evAnnounce struct{}

	evRoomsListed struct {
		target *Conn // nil means every connection
		rooms  []string
		err    error
	}
	evRegistered struct {
		c       *Conn
		room    string
		created bool
		err     error
	}
	evHistoryLoaded struct {
		c    *Conn
		room string
		msgs []chat.Message
		err  error
	}
)

type event any

// NewEngine creates an engine. Run must be called before connections are
// handled.
func NewEngine(store Store, sink EventSink, opts Options) *Engine {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Engine{
		store: store,
		sink:  sink,
		opts:  opts,
		log:   slog.Default(),
		queue: make(chan event, queueDepth),
		dir:   newDirectory(),
		conns: make(map[*Conn]struct{}),
		done:  make(chan struct{}),
	}
}

// Run drains the event queue until ctx is cancelled. It is the only
// goroutine that touches the directory or any connection's name and room.
func (e *Engine) Run(ctx context.Context) {
	e.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case ev := <-e.queue:
			e.handle(ev)
		}
	}
}

// Wait blocks until the engine has stopped.
func (e *Engine) Wait() {
	<-e.done
}

// Connect registers a new transport stream and returns its connection.
func (e *Engine) Connect(stream Stream) *Conn {
	c := newConn(stream)
	go c.writeLoop()
	e.queue <- evConnect{c: c}
	return c
}

// Disconnect ends a connection. Safe to call after a read error from
// either endpoint; the connection's identity is never reused.
func (e *Engine) Disconnect(c *Conn) {
	e.queue <- evDisconnect{c: c}
}

// HandleFrame decodes one inbound frame and schedules it. Decode errors
// drop the frame and tell the sender; they never end the connection.
func (e *Engine) HandleFrame(c *Conn, data []byte) {
	req, err := DecodeRequest(data)
	if err != nil {
		e.queue <- evBadFrame{c: c}
		return
	}
	e.queue <- evRequest{c: c, req: req}
}

// AnnounceRooms pushes a fresh durable room list to every connection.
// Invoked when a RoomCreated event arrives on the bus, so REST-created
// rooms announce exactly like socket-created ones.
func (e *Engine) AnnounceRooms() {
	e.queue <- evAnnounce{}
}

// ConnectionCount reports the number of live connections.
func (e *Engine) ConnectionCount() int {
	return int(e.connCount.Load())
}

// RoomCount reports the number of rooms referenced this process lifetime.
func (e *Engine) RoomCount() int {
	return int(e.roomCount.Load())
}

// MessageCount reports how many chat messages have been relayed.
func (e *Engine) MessageCount() int {
	return int(e.messageCount.Load())
}

func (e *Engine) handle(ev event) {
	switch ev := ev.(type) {
	case evConnect:
		e.handleConnect(ev.c)
	case evDisconnect:
		e.handleDisconnect(ev.c)
	case evRequest:
		e.handleRequest(ev.c, ev.req)
	case evBadFrame:
		e.sendJSON(ev.c, newNotificationPush("Invalid message format"))
	case evAnnounce:
		e.fetchRooms(nil)
	case evRoomsListed:
		e.handleRoomsListed(ev)
	case evRegistered:
		e.handleRegistered(ev)
	case evHistoryLoaded:
		e.handleHistoryLoaded(ev)
	}
}

func (e *Engine) handleConnect(c *Conn) {
	e.conns[c] = struct{}{}
	e.connCount.Add(1)
	e.log.Info("client connected", "id", c.id, "username", c.name)
	e.fetchRooms(c)
}

func (e *Engine) handleDisconnect(c *Conn) {
	if _, ok := e.conns[c]; !ok {
		return
	}
	if room, ok := e.dir.leave(c); ok {
		e.broadcastJSON(room, newNotificationPush(c.name+" left the room"), c)
		e.pushRoster(room, nil)
	}
	delete(e.conns, c)
	e.connCount.Add(-1)
	close(c.out)
	e.log.Info("client disconnected", "id", c.id, "username", c.name)
}

func (e *Engine) handleRequest(c *Conn, req Request) {
	if _, ok := e.conns[c]; !ok {
		return // raced with disconnect
	}
	switch req := req.(type) {
	case ChangeUsername:
		e.handleRename(c, req.Username)
	case CreateRoom:
		e.handleCreateRoom(c, req.Room)
	case JoinRoom:
		e.handleJoin(c, req.Room)
	case Chat:
		e.handleChat(c, req.Text)
	case Signal:
		e.handleSignal(c, req.Payload)
	}
}

func (e *Engine) handleRename(c *Conn, username string) {
	c.name = username
	if c.room != "" {
		e.pushRoster(c.room, nil)
	}
}

// handleCreateRoom registers a room without joining it. The live entry is
// created immediately; durable registration is a suspension point and its
// failure must not undo the in-memory room.
func (e *Engine) handleCreateRoom(c *Conn, room string) {
	e.ensureRoom(room)
	go func() {
		created, err := e.store.RegisterRoom(e.ctx, room)
		if err != nil {
			// One retry, then give up and surface it.
			created, err = e.store.RegisterRoom(e.ctx, room)
		}
		e.queue <- evRegistered{c: c, room: room, created: created, err: err}
	}()
}

func (e *Engine) handleRegistered(ev evRegistered) {
	if ev.err != nil {
		e.log.Warn("room registration failed", "room", ev.room, "error", ev.err)
		e.sendJSON(ev.c, newNotificationPush("Could not create room '"+ev.room+"'."))
		return
	}
	if !ev.created {
		// Already registered: success with no new entry, nothing to say.
		return
	}
	e.sendJSON(ev.c, newNotificationPush("Room '"+ev.room+"' created."))
	// The registry's RoomCreated event triggers the global room-list push.
}

func (e *Engine) handleJoin(c *Conn, room string) {
	e.ensureRoom(room)
	prev := e.dir.join(c, room)
	if prev != "" && prev != room {
		e.pushRoster(prev, nil)
	}

	e.broadcastJSON(room, newNotificationPush(c.name+" joined the room"), c)
	// The joiner's roster snapshot follows the history replay.
	e.pushRoster(room, c)

	go func() {
		msgs, err := e.store.History(e.ctx, room, e.opts.HistoryLimit)
		e.queue <- evHistoryLoaded{c: c, room: room, msgs: msgs, err: err}
	}()
}

func (e *Engine) handleHistoryLoaded(ev evHistoryLoaded) {
	if _, ok := e.conns[ev.c]; !ok || ev.c.room != ev.room {
		return // left or switched rooms while the read was in flight
	}
	if ev.err != nil {
		e.log.Warn("history load failed", "room", ev.room, "error", ev.err)
	} else {
		e.sendJSON(ev.c, newHistoryPush(ev.msgs))
	}
	e.sendJSON(ev.c, newUserListPush(e.dir.roster(ev.room)))
}

func (e *Engine) handleChat(c *Conn, text string) {
	if c.room == "" {
		e.log.Debug("dropping chat from roomless connection", "id", c.id)
		return
	}
	e.messageCount.Add(1)
	e.sink.MessageSent(c.room, c.name, text, time.Now())

	push := newChatPush(c.name, text)
	if e.opts.EchoSender {
		e.broadcastJSON(c.room, push, nil)
	} else {
		e.broadcastJSON(c.room, push, c)
	}
}

func (e *Engine) handleSignal(c *Conn, payload []byte) {
	if c.room == "" {
		e.log.Debug("dropping signal from roomless connection", "id", c.id)
		return
	}
	// Verbatim relay, sender always excluded, never persisted.
	for _, member := range e.dir.members(c.room) {
		if member == c {
			continue
		}
		member.send(payload)
	}
}

func (e *Engine) handleRoomsListed(ev evRoomsListed) {
	if ev.err != nil {
		e.log.Warn("room list load failed", "error", ev.err)
		return
	}
	payload, err := json.Marshal(newRoomListPush(ev.rooms))
	if err != nil {
		e.log.Error("failed to marshal room list", "error", err)
		return
	}
	if ev.target != nil {
		if _, ok := e.conns[ev.target]; ok {
			ev.target.send(payload)
		}
		return
	}
	for c := range e.conns {
		c.send(payload)
	}
}

// ensureRoom creates the live member set and tracks the room counter.
func (e *Engine) ensureRoom(name string) {
	if _, ok := e.dir.rooms[name]; !ok {
		e.dir.ensure(name)
		e.roomCount.Add(1)
	}
}

// fetchRooms loads the durable room list and pushes it to target, or to
// everyone when target is nil.
func (e *Engine) fetchRooms(target *Conn) {
	go func() {
		rooms, err := e.store.ListRooms(e.ctx)
		e.queue <- evRoomsListed{target: target, rooms: rooms, err: err}
	}()
}

// pushRoster sends a fresh roster snapshot to every member of room except
// the given connection. Recomputed on every membership or name change; no
// batching.
func (e *Engine) pushRoster(room string, except *Conn) {
	e.broadcastJSON(room, newUserListPush(e.dir.roster(room)), except)
}

func (e *Engine) broadcastJSON(room string, v any, except *Conn) {
	payload, err := json.Marshal(v)
	if err != nil {
		e.log.Error("failed to marshal broadcast", "error", err)
		return
	}
	for _, member := range e.dir.members(room) {
		if member == except {
			continue
		}
		member.send(payload)
	}
}

func (e *Engine) sendJSON(c *Conn, v any) {
	if _, ok := e.conns[c]; !ok {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		e.log.Error("failed to marshal message", "error", err)
		return
	}
	c.send(payload)
}

func (e *Engine) shutdown() {
	for c := range e.conns {
		close(c.out)
	}
	e.conns = make(map[*Conn]struct{})
	e.connCount.Store(0)
	close(e.done)
}
