package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/config"
	"github.com/wecube/server/internal/database"
	"github.com/wecube/server/internal/push"
	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository"
	"github.com/wecube/server/internal/repository/postgres"
	"github.com/wecube/server/internal/repository/sqlite"
	"github.com/wecube/server/internal/service"
	"github.com/wecube/server/internal/transport/http/handlers"
	"github.com/wecube/server/internal/transport/http/middleware"
	"github.com/wecube/server/internal/transport/ws"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	broker := realtime.NewBroker()

	// Store
	var store repository.Store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		store = postgres.NewStore(pool)
		jww.INFO.Printf("connected to postgres %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

		// Fan realtime changes out to the other instances sharing this database.
		broker.SetRelay(postgres.NewRelay(pool, cfg.InstanceID))
		listener := postgres.NewListener(pool, cfg.InstanceID, broker)
		g.Go(func() error { return listener.Run(ctx) })

	case config.DriverSQLite:
		s, err := sqlite.OpenPath(cfg.SQLitePath)
		if err != nil {
			return err
		}
		store = s
		jww.INFO.Printf("opened sqlite store at %s", cfg.SQLitePath)
	}
	defer func() {
		if err := store.Close(); err != nil {
			jww.WARN.Printf("closing store: %v", err)
		}
	}()

	// Services
	authService := service.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTTTL)
	conversationService := service.NewConversationService(
		store.Conversations(), store.Messages(), store.Users(), store.Blocks(), broker)
	messageService := service.NewMessageService(
		store.Conversations(), store.Messages(), store.Blocks(), broker)

	if cfg.Push.Enabled {
		dispatcher := push.NewDispatcher(store.Users(), push.NewExpoClient(cfg.Push.Endpoint, cfg.Push.Timeout))
		pipeline := push.NewPipeline(dispatcher, cfg.Push)
		messageService.SetNotifier(pipeline)
		g.Go(func() error { return pipeline.Run(ctx) })
	} else {
		jww.INFO.Printf("push notifications disabled")
	}

	svc := handlers.Services{
		Auth:          authService,
		Users:         service.NewUserService(store.Users(), store.Blocks()),
		Blocks:        service.NewBlockService(store.Blocks(), store.Users(), broker),
		Conversations: conversationService,
		Messages:      messageService,
		Listings:      service.NewListingService(store.Listings(), store.Users(), conversationService),
	}

	// WebSocket hub
	hub := ws.NewHub(messageService, conversationService)
	g.Go(func() error { return hub.Run(ctx) })

	router := handlers.NewRouter(svc, ws.ServeWS(hub, authService, cfg.CORSOrigins))
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.CORS(cfg.CORSOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		jww.INFO.Printf("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		jww.INFO.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
