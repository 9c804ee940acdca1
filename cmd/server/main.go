package main

import (
	"alcyxob/file-storage/internal/api"
	"alcyxob/file-storage/internal/config"
	"alcyxob/file-storage/internal/logging"
	"alcyxob/file-storage/internal/repository"
	"alcyxob/file-storage/internal/repository/mongo"
	"alcyxob/file-storage/internal/service"
	"alcyxob/file-storage/internal/storage"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// @title File Storage API
// @version 1.0
// @description Uploads files to object storage and hands out time-limited download URLs.
// @BasePath /
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	logging.Setup(cfg.Log)
	log.Info().Str("driver", cfg.S3.Driver).Str("region", cfg.S3.Region).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Storage ---
	fileStorage, err := storage.New(ctx, cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file storage")
	}
	if fileStorage.BucketName() == "" {
		log.Warn().Msg("AWS_S3_BUCKET_NAME is not set, uploads will fail until it is configured")
	}

	// --- Optional upload metadata log ---
	var uploadRepo repository.UploadRepository
	if cfg.Database.URI != "" {
		dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to MongoDB")
		}
		defer func() {
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Error().Err(err).Msg("failed to disconnect MongoDB")
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)

		go func() {
			idxCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			mongo.EnsureUploadIndexes(idxCtx, appDB.Collection(mongo.UploadCollectionName))
		}()

		uploadRepo = mongo.NewMongoUploadRepository(appDB)
		log.Info().Str("database", cfg.Database.Name).Msg("upload metadata log enabled")
	}

	storageService := service.NewStorageService(fileStorage, uploadRepo)

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.GinMode)
	router := api.NewRouter(cfg.Server.MaxUploadMemoryMB, cfg.Server.CORSOrigins, logging.GinLogger())
	api.SetupRoutes(router, storageService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		// Uploads block on the backend write and signing; no write timeout is imposed here.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exiting")
}
