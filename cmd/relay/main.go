package main

import (
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal arrives.
// Returning instead of exiting lets deferred cleanup run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Relay state
	monitor := observability.NewRelayMonitor(logger)
	relay := runtime.NewRelay(logger, monitor)
	lifecycle := relay.Lifecycle

	// 3. HTTP surface
	relayServer := ws.NewRelayServer(logger, lifecycle, ws.Options{
		OutboundQueueSize: config.OutboundQueueSize,
		WriteTimeout:      config.WriteTimeout,
		PingInterval:      config.PingInterval,
		PongWait:          config.PongWait,
		MaxMessageSize:    config.MaxMessageSize,
	}, config.SocketBufferSize)

	mux := http.NewServeMux()
	mux.Handle(config.WebsocketPath, relayServer)
	var stats internal.StatsProvider
	if config.EnableDebug {
		stats = lifecycle.Snapshot
		logger.Info("Debug stats available", "url", fmt.Sprintf("http://%s%s", config.Address(), internal.StatsEndpoint))
	}
	internal.RegisterDebugRoutes(mux, logger, stats)

	// 4. Supervision
	httpWorker := workers.NewHTTPServerWorker(logger, config.Address(), mux, config.ShutdownTimeout)
	if err := httpWorker.Listen(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Listening", "address", httpWorker.Addr().String())

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		httpWorker,
		workers.NewHealthMonitoringWorker(logger, monitor, config.MetricInterval),
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("Starting relay", "address", config.Address(), "path", config.WebsocketPath)
		sup.Run(ctx)
	}()

	// 6. Wait for Stop
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// 7. Graceful shutdown: stop accepting, then release every live socket.
	sup.Stop()
	lifecycle.CloseAll()
	<-done
	logger.Info("Relay stopped cleanly")

	return exitOK, nil
}
