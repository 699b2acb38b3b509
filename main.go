package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/bramble/config"
	archetyperepo "github.com/Ramsey-B/bramble/internal/repositories/archetype"
	characterrepo "github.com/Ramsey-B/bramble/internal/repositories/character"
	relationshiprepo "github.com/Ramsey-B/bramble/internal/repositories/relationship"
	"github.com/Ramsey-B/bramble/pkg/characters"
	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/logging"
	"github.com/Ramsey-B/bramble/pkg/mcp"
	"github.com/Ramsey-B/bramble/pkg/middleware"
	"github.com/Ramsey-B/bramble/pkg/profiles"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/relationships"
	archetyperoutes "github.com/Ramsey-B/bramble/pkg/routes/archetype"
	characterroutes "github.com/Ramsey-B/bramble/pkg/routes/character"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
	relationshiproutes "github.com/Ramsey-B/bramble/pkg/routes/relationship"
	"github.com/Ramsey-B/bramble/pkg/startup"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush := logging.New(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	var (
		db          database.DB
		producer    *kafka.Producer
		graphClient *graph.Client
		server      *echo.Echo
		checker     *health.Checker
		mcpDone     chan error
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&startup.FuncDependency{
		Name: "postgres",
		StartFunc: func(ctx context.Context) error {
			var err error
			db, err = database.Connect(ctx, cfg, logger)
			return err
		},
		StopFunc: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})

	boot.AddDependency(&startup.FuncDependency{
		Name:  "migrations",
		Needs: []string{"postgres"},
		StartFunc: func(ctx context.Context) error {
			return database.RunMigrations(cfg, db, logger)
		},
	})

	apiNeeds := []string{"migrations"}

	if cfg.KafkaEventsEnabled {
		boot.AddDependency(&startup.FuncDependency{
			Name: "kafka-producer",
			StartFunc: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaCharacterTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeoutMS) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
				}, logger)
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
		apiNeeds = append(apiNeeds, "kafka-producer")
	}

	if cfg.GraphSyncEnabled {
		boot.AddDependency(&startup.FuncDependency{
			Name: "graph-db",
			StartFunc: func(ctx context.Context) error {
				var err error
				graphClient, err = graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				return graphClient.VerifyConnectivity(ctx)
			},
			StopFunc: func(ctx context.Context) error {
				if graphClient == nil {
					return nil
				}
				return graphClient.Close(ctx)
			},
		})
		apiNeeds = append(apiNeeds, "graph-db")
	}

	boot.AddDependency(&startup.FuncDependency{
		Name:  "api-server",
		Needs: apiNeeds,
		StartFunc: func(ctx context.Context) error {
			characterRepo := characterrepo.NewRepository(db, logger)
			relationshipRepo := relationshiprepo.NewRepository(db, logger)
			archetypeRepo := archetyperepo.NewRepository(db, logger)

			emitter := events.NewEmitter(producer, logger)
			projector := graph.NewProjector(graphClient, logger)

			engine := relationships.NewEngine(relationshipRepo, characterRepo, emitter, projector, cfg, logger)
			service := characters.NewService(characterRepo, archetypeRepo, relationshipRepo, emitter, projector, logger)
			generator := profiles.NewGenerator(profiles.NewLLMClient(cfg), registry.NewClient(cfg, logger), cfg, logger)

			server = echo.New()
			server.HideBanner = true
			server.HidePort = true
			server.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
			server.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
			server.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
			server.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
			server.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

			server.Use(middleware.Context())
			server.Use(middleware.Logger(logger))
			server.Use(otelecho.Middleware(cfg.AppName))
			server.Use(echomw.CORSWithConfig(echomw.CORSConfig{
				AllowOrigins: cfg.AllowOrigins,
				AllowMethods: cfg.AllowMethods,
			}))
			server.HTTPErrorHandler = middleware.Error(logger)

			api := server.Group("/api/v1")
			characterroutes.NewHandler(service, engine, logger).RegisterRoutes(api.Group("/characters"))
			relationshiproutes.NewHandler(engine, logger).RegisterRoutes(api.Group("/relationships"))
			archetyperoutes.NewHandler(archetypeRepo, logger).RegisterRoutes(api.Group("/archetypes"))

			checker = health.NewChecker(db, graphClient, version)
			checker.RegisterRoutes(server)

			server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				logger.WithField("addr", addr).Infof("API server listening on %s", addr)
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.WithError(err).Error("API server stopped unexpectedly")
					stop()
				}
			}()

			if cfg.MCPEnabled {
				mcpSrv := mcp.NewServer(service, engine, generator, logger)
				mcpDone = make(chan error, 1)
				go func() {
					logger.Info("MCP server listening on stdio")
					mcpDone <- mcpserver.ServeStdio(mcpSrv.MCPServer())
				}()
			}

			checker.SetReady(true)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			if server == nil {
				return nil
			}
			return server.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		flush()
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-mcpDoneOrNever(mcpDone):
		if err != nil {
			logger.WithError(err).Error("MCP server stopped unexpectedly")
		} else {
			logger.Info("MCP client disconnected, shutting down")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to flush traces")
	}
}

// mcpDoneOrNever returns ch, or a channel that never fires when the MCP
// server was not started.
func mcpDoneOrNever(ch chan error) <-chan error {
	if ch == nil {
		return make(chan error)
	}
	return ch
}
