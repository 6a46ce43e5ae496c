package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cwrk-planet/session-service/config"
	"github.com/cwrk-planet/session-service/internal/call"
	"github.com/cwrk-planet/session-service/internal/postgres"
	"github.com/cwrk-planet/session-service/internal/registry"
	"github.com/cwrk-planet/session-service/internal/service"
	grpcx "github.com/cwrk-planet/session-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/session-service/internal/transport/http"
	"github.com/cwrk-planet/session-service/internal/transport/ws"
	"github.com/cwrk-planet/session-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	defer func() { _ = logger.Sync() }()
	lg.Info("starting session-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version,
		"grace", cfg.Presence.GracePeriod, "journal", cfg.JournalEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bg sync.WaitGroup
	bgCtx, stopBg := context.WithCancel(context.Background())

	// --- journal (optional) ---
	var (
		journal       service.Journal
		journalReader httpx.JournalReader
	)
	if cfg.JournalEnabled() {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			lg.Error("postgres", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		repo := postgres.NewJournalRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			lg.Error("postgres schema", "err", err)
			os.Exit(1)
		}
		writer := postgres.NewJournalWriter(repo, postgres.WriterOptions{
			QueueSize:  cfg.Postgres.QueueSize,
			BatchSize:  cfg.Postgres.BatchSize,
			FlushEvery: cfg.Postgres.FlushEvery,
		}, lg)
		bg.Add(1)
		go func() {
			defer bg.Done()
			_ = writer.Run(bgCtx)
		}()
		journal, journalReader = writer, repo
	}

	// --- core ---
	reg := registry.New()
	hub := ws.NewHub(lg)
	calls := service.NewCallService(call.NewManager(time.Now), hub, journal, lg)
	members := service.NewMemberService(service.Deps{
		Registry: reg,
		Calls:    calls,
		Notifier: hub,
		Journal:  journal,
		Logger:   lg,
	})
	members.SetGracePeriod(cfg.Presence.GracePeriod)
	router := service.NewSignalRouter(reg, calls, hub, lg)
	reaper := service.NewReaper(members, cfg.Presence.SweepInterval, lg)

	bg.Add(1)
	go func() {
		defer bg.Done()
		_ = reaper.Run(bgCtx)
	}()

	// --- WS & HTTP ---
	wsServer := ws.NewServer(hub, members, router, ws.Options{
		PingEvery: cfg.WS.PingEvery,
		ReadLimit: cfg.WS.ReadLimit,
		SendQueue: cfg.Presence.SendQueue,
	}, lg)
	handler := httpx.NewHandler(members, calls, journalReader)
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpx.NewRouter(httpx.RouterDeps{
			Handler:        handler,
			WS:             wsServer.HandleWS,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Logger:         lg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- gRPC ---
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(lg)),
		grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor(lg)),
	)
	grpcx.Register(grpcServer, grpcx.NewServer(members, calls, reaper))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(grpcx.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		lg.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		lg.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		lg.Info("shutdown signal")
	case err := <-errCh:
		lg.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.Shutdown()
	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		lg.Warn("http shutdown", "err", err)
	}

	// журнал досбрасывается после того, как транспорт перестал писать
	stopBg()
	bg.Wait()
	lg.Info("stopped")
}
