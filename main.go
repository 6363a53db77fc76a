package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/rtc-relay-demo/modules/registry"
	"github.com/example/rtc-relay-demo/modules/relay"
	"github.com/example/rtc-relay-demo/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== RTC Relay - WebSocket Signaling + Chat ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	registryModule := registry.NewModule()
	relayModule := relay.NewModule(registryModule)
	wsModule := wsserver.NewModule()

	// Inject the relay engine into the transport module
	// (done manually because the engine is not exposed via ServiceContainer)
	wsModule.SetEngine(relayModule.Engine())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - registry: durable room registry + chat log (SQLite)
	// - relay: connection engine + event emitter/consumer
	// - ws-server: driving adapter (Fiber HTTP/WebSocket, depends on registry)
	app.Register(registryModule)
	app.Register(relayModule)
	app.Register(wsModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "relay.db"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Store: GORM + SQLite (rooms + chat history)")
	log.Printf("  - Database: %s", dbPath)
	log.Println("")
	log.Println("Event flow:")
	log.Println("  - MessageSent events -> registry module -> chat log")
	log.Println("  - RoomCreated events -> relay module -> roomList push to all clients")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                     - Health check")
	log.Println("  GET    /api/v1/rooms               - List all rooms")
	log.Println("  POST   /api/v1/rooms               - Create a room")
	log.Println("  GET    /api/v1/rooms/:name/history - Get message history")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Actions: changeUsername, createRoom, joinRoom")
	log.Println("  Frames:  chat messages (type=chat), sdp/candidate signaling")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
