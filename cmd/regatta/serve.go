package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	competitionrepo "github.com/rowstack/regatta/internal/repositories/competition"
	entityrepo "github.com/rowstack/regatta/internal/repositories/entity"
	leaguerepo "github.com/rowstack/regatta/internal/repositories/league"
	participantrepo "github.com/rowstack/regatta/internal/repositories/participant"
	penaltyrepo "github.com/rowstack/regatta/internal/repositories/penalty"
	racerepo "github.com/rowstack/regatta/internal/repositories/race"
	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/decision"
	"github.com/rowstack/regatta/pkg/events"
	"github.com/rowstack/regatta/pkg/kafka"
	clubroutes "github.com/rowstack/regatta/pkg/routes/club"
	competitionroutes "github.com/rowstack/regatta/pkg/routes/competition"
	"github.com/rowstack/regatta/pkg/routes/health"
	leagueroutes "github.com/rowstack/regatta/pkg/routes/league"
	raceroutes "github.com/rowstack/regatta/pkg/routes/race"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the read API and the scraped race consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)
	tracing.SetTracer(otel.Tracer(a.cfg.AppName))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	if err := registerDependencies(a); err != nil {
		return err
	}

	e := newEcho(a)
	checker := health.NewChecker(a.sqlxDB, version)
	checker.RegisterRoutes(e)

	var consumer *kafka.Consumer
	var producer *kafka.Producer
	if a.cfg.KafkaConsumerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      a.cfg.KafkaBrokers,
			Topic:        a.cfg.KafkaOutputTopic,
			BatchSize:    a.cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: a.cfg.KafkaRequiredAcks,
			Compression:  a.cfg.KafkaCompression,
		}, a.logger)
		emitter := events.NewEmitter(producer, a.logger)

		runner := a.runner(serveChannel(a)).WithNotifier(emitter)
		consumer = kafka.NewConsumer(a.cfg, a.logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			return runner.Process(ctx, *msg.ScrapedRace)
		})
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", a.cfg.Port))
	}()
	checker.SetReady(true)
	a.logger.WithFields(map[string]any{"port": a.cfg.Port}).Info("Server started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	checker.SetReady(false)
	if consumer != nil {
		_ = consumer.Stop()
	}
	if producer != nil {
		_ = producer.Close()
	}
	return e.Shutdown(shutdownCtx)
}

// serveChannel never prompts: unattended ingestion can approve or decline
// merges, not answer questions.
func serveChannel(a *app) decision.Channel {
	if a.cfg.DecisionMode == "accept" {
		return decision.AcceptAll()
	}
	return decision.RejectAll()
}

func registerDependencies(a *app) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}

	if err := ectoinject.RegisterInstance[*entityrepo.Repository](container, a.entities); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*leaguerepo.Repository](container, a.leagues); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*competitionrepo.Repository](container, a.competitions); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*racerepo.Repository](container, a.races); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*participantrepo.Repository](container, a.participants); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*penaltyrepo.Repository](container, a.penalties)
}

func newEcho(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))

	api := e.Group("/api/v1")
	raceroutes.Register(api.Group("/races"))
	competitionroutes.Register(api.Group("/competitions"))
	leagueroutes.Register(api.Group("/leagues"))
	clubroutes.Register(api.Group("/clubs"))
	return e
}
