package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/config"
	"github.com/aya15elsheikh/forms/internal/delivery/httpd"
	appmw "github.com/aya15elsheikh/forms/internal/middleware"
	"github.com/aya15elsheikh/forms/internal/repository"
	"github.com/aya15elsheikh/forms/internal/service"
	"github.com/aya15elsheikh/forms/internal/service/integration"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	db        *sql.DB
	redis     *redis.Client
	publisher integration.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	blobs, err := repository.NewMinIORepository(repository.MinIOConfig{
		Endpoint:      cfg.MinIO.Endpoint,
		AccessKey:     cfg.MinIO.AccessKey,
		SecretKey:     cfg.MinIO.SecretKey,
		Bucket:        cfg.Storage.BucketName,
		Region:        cfg.Storage.Region,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Timeout:       cfg.MinIO.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	publisher := integration.NewNopPublisher()
	if cfg.RabbitMQ.Enabled {
		client, err := integration.NewRabbitMQClient(integration.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			CreatedKey: cfg.RabbitMQ.CreatedKey,
			ImportKey:  cfg.RabbitMQ.ImportKey,
		}, log)
		if err != nil {
			// Submissions are stored either way; events are best effort.
			log.Error().Err(err).Msg("Failed to create RabbitMQ client, events disabled")
		} else {
			publisher = client
		}
	}

	var redisClient *redis.Client
	cache := repository.NewNopFormCache()
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = repository.NewRedisFormCache(redisClient, cfg.Redis.TTL, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Form schema cache enabled")
	}

	formRepo := repository.NewFormRepository(db, log)
	fieldRepo := repository.NewFieldRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)

	formService := service.NewFormService(formRepo, fieldRepo, cache, log)
	fieldService := service.NewFieldService(formRepo, fieldRepo, cache, log)
	submissionService := service.NewSubmissionService(
		formRepo,
		fieldRepo,
		submissionRepo,
		cache,
		blobs,
		publisher,
		service.SubmissionConfig{
			UploadPrefix:    cfg.Storage.UploadPrefix,
			MaxFileSize:     cfg.Storage.MaxFileSize,
			DefaultPageSize: cfg.Submissions.DefaultPageSize,
			MaxPageSize:     cfg.Submissions.MaxPageSize,
		},
		log,
	)
	exportService := service.NewExportService(
		formRepo,
		fieldRepo,
		submissionRepo,
		cache,
		blobs,
		publisher,
		log,
	)

	checks := []httpd.ReadinessCheck{
		{Name: "postgres", Check: formRepo.Ping},
		{Name: "minio", Check: blobs.Ready},
	}
	if redisClient != nil {
		checks = append(checks, httpd.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	handler := httpd.NewHandler(
		formService,
		fieldService,
		submissionService,
		exportService,
		checks,
		httpd.Limits{
			MaxRequestSize: cfg.Submissions.MaxRequestSize,
			ImportMaxSize:  cfg.Submissions.ImportMaxSize,
		},
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appmw.RequestLogger(log))
	router.Use(appmw.Recovery(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(appmw.NewCORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
		cfg.CORS.ExposedHeaders,
		cfg.CORS.AllowCredentials,
		cfg.CORS.MaxAge,
	))
	router.Use(appmw.BodyLimit(cfg.Submissions.MaxRequestSize))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting form service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down form service...")

	err := a.server.Shutdown(ctx)

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close event publisher")
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close Redis client")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return err
}
