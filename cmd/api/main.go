package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/auth"
	"github.com/PaulBabatuyi/realtime-chat/internal/chat"
	"github.com/PaulBabatuyi/realtime-chat/internal/config"
	"github.com/PaulBabatuyi/realtime-chat/internal/middleware"
	"github.com/PaulBabatuyi/realtime-chat/internal/presence"
	"github.com/PaulBabatuyi/realtime-chat/internal/realtime"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal or a server failure.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing store")
		_ = st.close(context.Background())
	}()

	jwtMgr, err := newJWTManager(cfg)
	if err != nil {
		return err
	}

	// Small burst to allow a couple of quick retries on register/login.
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer limiterStore.Stop()

	chatSvc := chat.NewService(st.chats, st.msgs, st.users, log)
	registry := presence.NewRegistry()
	origins := cfg.Origins()
	hub := realtime.NewHub(registry, lastSeenWriter{users: st.users}, chatSvc, messageLookup{chats: chatSvc}, log, realtime.Options{
		PongWait:    cfg.PongWait(),
		CheckOrigin: middleware.OriginAllowed(origins),
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	srv := newServer(st.users, chatSvc, jwtMgr, registry, hub, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(limiterStore, origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcOpts []grpc.ServerOption
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("failed to load TLS certs: %w", err)
		}
		grpcOpts = append(grpcOpts, grpc.Creds(creds))
	}
	reporter := newHealthReporter(st.ping, 15*time.Second, log)
	healthServer := newHealthServer(reporter, grpcOpts...)
	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go reporter.run(healthCtx)

	healthLis, err := net.Listen("tcp", cfg.HealthAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HealthAddr(), err)
	}

	errChan := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "address", cfg.Addr(), "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Info("starting gRPC health server", "address", cfg.HealthAddr())
		if err := healthServer.Serve(healthLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case runErr = <-errChan:
		log.Error("server failed, shutting down", "error", runErr)
	}

	stopHealth()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes them and flushes pending last-seen writes.
	stopHub()
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		log.Warn("hub did not stop in time")
	}
	healthServer.GracefulStop()

	log.Info("program stopped cleanly")
	return runErr
}

// newJWTManager prefers JWT_KEYS so token signing keys can be rotated, and
// falls back to the single JWT_SECRET.
func newJWTManager(cfg config.Config) (*auth.JWTManager, error) {
	if cfg.JWTKeys == "" {
		return auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), nil
	}
	keys, err := auth.ParseKeys(cfg.JWTKeys)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_KEYS: %w", err)
	}
	return auth.NewJWTManagerFromKeys(keys, cfg.JWTActiveKid, cfg.TokenTTL), nil
}

