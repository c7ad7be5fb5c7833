package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"apim-analytics-backend/config"
	"apim-analytics-backend/database"
	_ "apim-analytics-backend/docs"
	"apim-analytics-backend/internal/auth"
	"apim-analytics-backend/internal/channel"
	"apim-analytics-backend/internal/controller"
	"apim-analytics-backend/internal/elasticsearch"
	"apim-analytics-backend/internal/filestate"
	"apim-analytics-backend/internal/kafka"
	"apim-analytics-backend/internal/locale"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/parser"
	"apim-analytics-backend/internal/repository"
	"apim-analytics-backend/internal/scheduler"
	"apim-analytics-backend/internal/service"
	"apim-analytics-backend/internal/store"
	"apim-analytics-backend/internal/timescaledb"
	"apim-analytics-backend/internal/widgetconf"
)

// @title           APIM Top Platforms Analytics API
// @version         1.0
// @description     Hosts Top Platforms widget instances: filter state, API enumeration and platform aggregation over TimescaleDB or Elasticsearch.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         widgets
// @tag.description  Widget instances, filters and view streaming

// @tag.name         time-range
// @tag.description  Date-time range notifications

// @tag.name         global-state
// @tag.description  Shared dashboard state

// @tag.name         health
// @tag.description  API health check operations

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Enter the token with the `Bearer ` prefix, e.g. "Bearer abcde12345".

func main() {
	var wg sync.WaitGroup

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	app := fx.New(
		fx.Supply(cfg),
		// Infrastructure Dependencies
		fx.Provide(
			database.NewDB,
			NewGinEngine,
			NewDataBackends,
			NewWidgetConfigRepository,
			NewLocaleLoader,
			store.NewGlobalStateStore,
			channel.NewManager,
			auth.NewAuthenticator,
		),
		// Widget Dependencies
		fx.Provide(
			service.NewTimeRangeHub,
			service.NewWidgetService,
			controller.NewWidgetController,
		),
		fx.Invoke(RegisterAPIRoutes),
		timeRangeOptions(cfg, &wg),
		ingestOptions(cfg, &wg),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second) // Timeout for startup
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	// Initiate shutdown
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second) // Timeout for graceful shutdown
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

// ingestOptions wires the access-log pipeline: scheduled producer into
// Kafka, consumer into the enabled event stores.
func ingestOptions(cfg *config.Config, wg *sync.WaitGroup) fx.Option {
	if !cfg.Ingest.Enabled {
		log.Info().Msg("Request event ingestion disabled")
		return fx.Options()
	}
	return fx.Options(
		fx.Provide(
			NewFileStateManager,
			parser.NewGatewayAccessLogParser,
			metrics.NewUserAgentExtractor,
			kafka.NewKafkaEventProducer,
			kafka.NewKafkaEventConsumer,
			service.NewEventProducerService,
			service.NewEventConsumerService,
		),
		fx.Invoke(
			scheduler.NewIngestScheduler,
			func(lc fx.Lifecycle, consumerService service.EventConsumerService) {
				startBackground(lc, wg, "Event Consumer", consumerService.Run)
			},
		),
	)
}

func timeRangeOptions(cfg *config.Config, wg *sync.WaitGroup) fx.Option {
	if cfg.Kafka.TimeRangeTopic == "" {
		return fx.Options()
	}
	return fx.Options(
		fx.Provide(
			kafka.NewKafkaTimeRangeConsumer,
			service.NewTimeRangeListener,
		),
		fx.Invoke(func(lc fx.Lifecycle, listener service.TimeRangeListener) {
			startBackground(lc, wg, "Time Range Listener", listener.Run)
		}),
	)
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", auth.UsernameHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	widgetController *controller.WidgetController,
	authenticator auth.Authenticator,
) {
	controller.RegisterSystemRoutes(router)
	controller.RegisterWidgetRoutes(router, widgetController, authenticator)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

// NewDataBackends connects the enabled analytics stores and exposes each as
// a widget data provider and as a request-event sink.
func NewDataBackends(lc fx.Lifecycle, cfg *config.Config) (channel.Providers, repository.EventRepository, error) {
	providers := channel.Providers{}

	tsStore, pool, err := timescaledb.ProvideTimescaleDBPool(lc, cfg)
	if err != nil {
		return nil, nil, err
	}
	if pool != nil {
		provider, err := timescaledb.NewTimescaleDataProvider(pool)
		if err != nil {
			return nil, nil, err
		}
		providers["timescaledb"] = provider
	}

	esStore, client, err := elasticsearch.ProvideElasticsearch(lc, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client != nil {
		provider, err := elasticsearch.NewElasticsearchDataProvider(client, cfg.Elasticsearch.EventIndex)
		if err != nil {
			return nil, nil, err
		}
		providers["elasticsearch"] = provider
	}

	if len(providers) == 0 {
		return nil, nil, fmt.Errorf("no data provider enabled: set TIMESCALEDB_ENABLED or ELASTICSEARCH_ENABLED")
	}
	return providers, service.NewEventSink(tsStore, esStore), nil
}

func NewWidgetConfigRepository(cfg *config.Config, db *gorm.DB) (repository.WidgetConfigRepository, error) {
	switch cfg.Widget.ConfigSource {
	case "", "file":
		return widgetconf.NewFileWidgetConfigRepository(cfg.Widget.ConfigDir), nil
	case "mysql":
		return widgetconf.NewMySQLWidgetConfigRepository(db)
	default:
		return nil, fmt.Errorf("unsupported widget config source: %s", cfg.Widget.ConfigSource)
	}
}

func NewLocaleLoader(cfg *config.Config) locale.Loader {
	return locale.NewDirLoader(cfg.Widget.LocaleDir)
}

func NewFileStateManager(cfg *config.Config) filestate.Manager {
	return filestate.NewManager(cfg.FileState.FilePath)
}

// --- Invoker Functions ---

// startBackground runs fn in a goroutine managed by the fx lifecycle.
func startBackground(lc fx.Lifecycle, wg *sync.WaitGroup, name string, fn func(ctx context.Context, wg *sync.WaitGroup)) {
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msgf("Starting %s goroutine", name)
			go fn(ctx, wg)
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info().Msgf("Signaling %s goroutine to stop...", name)
			cancel()
			return nil
		},
	})
}
