package main

import (
	"chatroom/auth"
	"chatroom/internal"
	"chatroom/runtime"
	"chatroom/runtime/workers"
	"chatroom/services"
	"chatroom/transport"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Presence terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal error.
// Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the process environment wins anyway.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	joinPolicy, err := runtime.ParseJoinPolicy(config.JoinPolicy)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Membership source & chat metadata
	store, err := openStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer store.close()

	chatCache, closeCache, err := openCache(ctx, config)
	if err != nil {
		return exitRuntime, err
	}
	defer closeCache()

	// 4. Presence core & transport
	hub := transport.NewHub(logger)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(logger, registry, auth.NewResolver([]byte(config.JWTSecret)),
		store.membership, hub, joinPolicy)
	directory := services.NewChatDirectory(logger, store.chats, chatCache, config.ChatCacheTTL)
	handler := transport.NewHandler(logger, hub, router, transport.HandlerConfig{
		BufferSize:     config.ConnectionBufferSize,
		ConnectTimeout: config.ConnectTimeout,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           transport.NewRoutes(logger, handler, directory, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Hijacked websocket connections are closed by the hub, not the server.
	httpServer.RegisterOnShutdown(hub.Shutdown)

	// 5. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(logger, httpServer, config.ShutdownTimeout),
		workers.NewResyncWorker(logger, router, config.ResyncInterval, config.ResyncTimeout),
		workers.NewHeartbeatWorker(logger, registry, config.HeartbeatInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 6. gRPC health endpoint
	address := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		sup.Stop()
		<-supervisorDone
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting gRPC server", "address", address, "at", time.Now().UTC())
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup
	// Health flips first so load balancers stop routing new sockets here.
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	sup.Stop()
	<-supervisorDone
	s.GracefulStop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}
