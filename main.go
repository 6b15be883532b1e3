package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/room-relay-demo/modules/broadcast"
	"github.com/example/room-relay-demo/modules/gateway"
	"github.com/example/room-relay-demo/modules/registry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Room Relay - real-time room-based messaging ===")

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
	broadcastModule := broadcast.NewModule()
	gatewayModule := gateway.NewModule()

	// Inject broadcast hub into the gateway module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	gatewayModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - registry: identity + room state machine (ServiceProvider + EventEmitter)
	// - broadcast: event consumer fanning registry events out to WebSocket clients
	// - gateway: driving adapter (Fiber HTTP/WebSocket server, depends on registry)
	app.Register(registryModule)
	app.Register(broadcastModule)
	app.Register(gatewayModule)

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
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event-Driven Relay:")
	log.Println("  - MessageSent events -> broadcast module -> room members")
	log.Println("  - UserJoined/UserLeft events -> broadcast module -> room members")
	log.Println("  - RoomListUpdated events -> broadcast module -> all clients")
	log.Println("")
	log.Printf("REST Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health          - Health check")
	log.Println("  GET    /api/v1/rooms    - List public rooms")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Request types: register, createRoom, joinRoom, leaveRoom, getPublicRooms, message")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
