package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"wayfarer/config"
	"wayfarer/db"
	"wayfarer/itinerary"
	"wayfarer/logger"
	"wayfarer/maps"
	"wayfarer/middleware"
	"wayfarer/mq"
	"wayfarer/planner"
	"wayfarer/ratelim"
	"wayfarer/rdx"
	"wayfarer/routes"
	"wayfarer/suggestions"
	"wayfarer/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the configured logger does not exist yet
		bootLog := logger.New("info", true)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancelStart()

	client, err := db.Connect(startCtx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	store := db.New(client, cfg.MongoDatabase, cfg.MongoTransactions)
	if err := store.EnsureIndexes(startCtx); err != nil {
		log.Fatal().Err(err).Msg("creating indexes")
	}
	if err := store.SeedPlanSequence(startCtx); err != nil {
		log.Fatal().Err(err).Msg("seeding plan sequence")
	}

	opts := []planner.Option{
		planner.WithLogger(log.With().Str("component", "planner").Logger()),
		planner.WithWeather(weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey)),
	}
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	var conn *redis.Client
	if cfg.RedisURL != "" {
		conn, err = rdx.Connect(startCtx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			// plans are still served from mongo
			log.Warn().Err(err).Msg("redis unavailable, plan cache disabled")
		} else {
			emitter := mq.NewEmitter(conn, log)
			opts = append(opts,
				planner.WithCache(rdx.NewPlanCache(conn, cfg.CacheTTL, log)),
				planner.WithEvents(emitter),
			)
			go func() {
				if err := emitter.Listen(listenCtx, mq.Record(log)); err != nil {
					log.Warn().Err(err).Msg("plan event listener stopped")
				}
			}()
		}
	}
	plans := planner.New(store, opts...)

	model, err := suggestions.NewGemini(startCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("generative model client")
	}
	generator := suggestions.NewService(model,
		suggestions.WithLegPlanner(maps.LegPlanner{Router: maps.NewClient(cfg.MapsBaseURL, cfg.MapsAPIKey)}),
		suggestions.WithTimeout(cfg.GenerationTimeout),
		suggestions.WithRetryBackoff(cfg.GenerationRetryBackoff),
		suggestions.WithLogger(log.With().Str("component", "suggestions").Logger()),
	)

	limiter := ratelim.NewRateLimiter(cfg.SuggestionRatePerMinute)
	router := routes.New(
		itinerary.NewHandler(plans, cfg.PublicBaseURL),
		suggestions.NewHandler(generator, plans),
		limiter,
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{"Location", middleware.RequestIDHeader},
	}).Handler

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler(middleware.Server(router, log)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      cfg.GenerationTimeout + cfg.GenerationRetryBackoff + 15*time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(limiter.Stop)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	stopListening()
	closeBackends(ctx, log, client, conn)
	log.Info().Msg("server stopped cleanly")
}

func closeBackends(ctx context.Context, log zerolog.Logger, client *mongo.Client, conn *redis.Client) {
	if err := client.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo disconnect")
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
}
