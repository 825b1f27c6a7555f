package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"church-site-backend/internal/auth"
	"church-site-backend/internal/config"
	"church-site-backend/internal/handlers"
	"church-site-backend/internal/middleware"
	"church-site-backend/internal/migrations"
	"church-site-backend/internal/notify"
	"church-site-backend/internal/ratelimit"
	"church-site-backend/internal/realtime"
	"church-site-backend/internal/repository"
	"church-site-backend/internal/services"
	"church-site-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := "config.yaml"
	if p := os.Getenv("CHURCH_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)
	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, cfg.Database.DSN()); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping redis")
	}
	log.Info().Msg("Redis connection established")

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to create blob store")
	}

	broker := realtime.NewBroker(rdb)

	// Initialize repositories
	slideRepo := repository.NewSlideRepository(db)
	pageRepo := repository.NewPageRepository(db)
	eventRepo := repository.NewEventRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	messageRepo := repository.NewMessageRepository(db, broker)
	videoRepo := repository.NewVideoRepository(db)
	albumRepo := repository.NewAlbumRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	leaderRepo := repository.NewLeaderRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	authService := auth.NewService(userRepo, rdb, cfg.JWT.Secret, cfg.JWT.SessionTTL)
	bootstrapAdmin(ctx, authService, cfg.Bootstrap)

	opts := services.Options{
		LoadTimeout:   cfg.Stores.LoadTimeout,
		UploadTimeout: cfg.Stores.UploadTimeout,
		MaxImageBytes: cfg.Stores.MaxImageBytes,
	}
	buckets := cfg.Storage.Buckets

	authGate := services.NewAuthGate(authService, profileRepo, opts)
	defer authGate.Close()

	contentStore := services.NewContentStore(slideRepo, pageRepo, blobs, buckets.Slides, opts)
	eventStore := services.NewEventStore(eventRepo, blobs, buckets.Events, opts)
	calendarStore := services.NewCalendarStore(calendarRepo, time.Local, opts)
	galleryStore := services.NewGalleryStore(albumRepo, photoRepo, blobs, buckets.Gallery, opts)
	leaderStore := services.NewLeaderStore(leaderRepo, blobs, buckets.Leaders, opts)
	videoStore := services.NewVideoStore(videoRepo, opts)
	messageStore := services.NewMessageStore(messageRepo, broker, services.ReconnectPolicy{
		Initial: cfg.Stores.ReconnectInitial,
		Max:     cfg.Stores.ReconnectMax,
	}, opts)

	// Subscribe before the first read so no change is missed
	messageStore.Start(ctx)
	defer messageStore.Close()

	services.LoadAll(ctx, contentStore, eventStore, calendarStore, galleryStore, leaderStore, videoStore, messageStore)
	log.Info().Int("messages", len(messageStore.Messages())).Msg("Stores loaded")

	wsHub := services.NewWSHub(messageStore)

	var notifier *notify.Notifier
	if cfg.APNs.Enabled {
		notifier, err = notify.NewAPNsNotifier(cfg.APNs, profileRepo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push notifier")
		}
		stopPush := messageStore.Watch(func(change services.MessageChange) {
			if change.Type == realtime.Insert {
				notifier.Enqueue(change.Message)
			}
		})
		defer stopPush()
	}

	limiter, err := ratelimit.NewFixedWindowLimiter(rdb, "", cfg.RateLimit.MessagesPerMinute, time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create rate limiter")
	}

	// Initialize handlers
	contentHandler := handlers.NewContentHandler(contentStore)
	eventHandler := handlers.NewEventHandler(eventStore, calendarStore)
	galleryHandler := handlers.NewGalleryHandler(galleryStore)
	leaderHandler := handlers.NewLeaderHandler(leaderStore)
	videoHandler := handlers.NewVideoHandler(videoStore)
	messageHandler := handlers.NewMessageHandler(messageStore)
	authHandler := handlers.NewAuthHandler(authGate)
	readyHandler := handlers.NewReadyHandler(
		[]services.Loadable{contentStore, eventStore},
		map[string]services.Loadable{
			"content":  contentStore,
			"events":   eventStore,
			"calendar": calendarStore,
			"gallery":  galleryStore,
			"leaders":  leaderStore,
			"videos":   videoStore,
			"messages": messageStore,
		},
	)
	wsHandler := handlers.NewWebSocketHandler(wsHub, authGate, messageStore)

	// Setup router
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/ready", readyHandler.Ready)
		r.Get("/slides", contentHandler.GetSlides)
		r.Get("/pages", contentHandler.GetPages)
		r.Get("/pages/{slug}", contentHandler.GetPage)
		r.Get("/events", eventHandler.GetEvents)
		r.Get("/calendar", eventHandler.GetCalendar)
		r.Get("/calendar/day/{date}", eventHandler.GetCalendarDay)
		r.Get("/albums", galleryHandler.GetAlbums)
		r.Get("/albums/{id}/photos", galleryHandler.GetPhotos)
		r.Get("/leaders", leaderHandler.GetLeaders)
		r.Get("/videos", videoHandler.GetVideos)
		r.With(middleware.RateLimit(limiter)).Post("/messages", messageHandler.SubmitMessage)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/ws", wsHandler.HandleWebSocket)

		// Signed-in routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authGate))
			r.Get("/auth/me", authHandler.Me)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Put("/profile/push-token", authHandler.SetPushToken)

			// Dashboard routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompleteProfile)

				r.Post("/slides", contentHandler.AddSlide)
				r.Post("/slides/reset", contentHandler.ResetSlides)
				r.Delete("/slides/{id}", contentHandler.RemoveSlide)
				r.Put("/pages/{slug}", contentHandler.UpdatePage)

				r.Post("/events", eventHandler.CreateEvent)
				r.Put("/events/{id}", eventHandler.UpdateEvent)
				r.Delete("/events/{id}", eventHandler.DeleteEvent)

				r.Post("/calendar", eventHandler.CreateCalendarEvent)
				r.Delete("/calendar/{id}", eventHandler.DeleteCalendarEvent)

				r.Post("/albums", galleryHandler.CreateAlbum)
				r.Put("/albums/{id}", galleryHandler.UpdateAlbum)
				r.Delete("/albums/{id}", galleryHandler.DeleteAlbum)
				r.Post("/albums/{id}/photos", galleryHandler.UploadPhotos)
				r.Delete("/photos/{id}", galleryHandler.DeletePhoto)

				r.Post("/leaders", leaderHandler.CreateLeader)
				r.Put("/leaders/{id}", leaderHandler.UpdateLeader)
				r.Delete("/leaders/{id}", leaderHandler.DeleteLeader)

				r.Post("/videos", videoHandler.CreateVideo)
				r.Put("/videos/{id}", videoHandler.UpdateVideo)
				r.Delete("/videos/{id}", videoHandler.DeleteVideo)

				r.Get("/messages", messageHandler.GetMessages)
				r.Put("/messages/{id}/read", messageHandler.MarkAsRead)
				r.Delete("/messages/{id}", messageHandler.DeleteMessage)
			})
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Stores.UploadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if notifier != nil {
		notifier.Wait()
	}

	log.Info().Msg("Server exited")
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			UseSSL:        !cfg.DisableSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	default:
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:        cfg.Region,
			Bucket:        cfg.Bucket,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Endpoint:      cfg.Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	}
}

// bootstrapAdmin creates the configured dashboard account if it is missing
func bootstrapAdmin(ctx context.Context, authService *auth.Service, cfg config.BootstrapConfig) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	user, err := authService.CreateUser(ctx, cfg.AdminEmail, cfg.AdminPassword)
	switch {
	case err == nil:
		log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Bootstrap admin created")
	case errors.Is(err, repository.ErrDuplicate):
		log.Debug().Str("email", cfg.AdminEmail).Msg("Bootstrap admin already exists")
	default:
		log.Error().Err(err).Msg("Failed to create bootstrap admin")
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
