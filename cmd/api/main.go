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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/api"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive/cassandra"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/config"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/notify"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/room"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/service"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/worker"
	"github.com/distrubuted-game-mechanic/sgs-seats/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sgs-seats",
	Short: "Seat assignment and game start service",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the room API and run the games this node wins",
	RunE:  runServe,
}

var (
	flagPort      string
	flagStore     string
	flagRedisAddr string
	flagAdvertise string
	flagLogLevel  string
	flagPretty    bool
)

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&flagPort, "port", "", "HTTP port (overrides PORT)")
	flags.StringVar(&flagStore, "store", "", "shared store backend: redis or memory (overrides STORE)")
	flags.StringVar(&flagRedisAddr, "redis-addr", "", "redis address (overrides REDIS_ADDR)")
	flags.StringVar(&flagAdvertise, "advertise", "", "address written to ownership leases (overrides ADVERTISE_ADDR)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flags.BoolVar(&flagPretty, "pretty", false, "human readable logs")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute command")
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagPort != "" {
		cfg.Port = flagPort
		if os.Getenv("ADVERTISE_ADDR") == "" {
			cfg.AdvertiseAddr = cfg.BaseURL()
		}
	}
	if flagStore != "" {
		cfg.Store = flagStore
	}
	if flagRedisAddr != "" {
		cfg.Redis.Addr = flagRedisAddr
	}
	if flagAdvertise != "" {
		cfg.AdvertiseAddr = flagAdvertise
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.LogPretty = flagPretty
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		return store.NewMemoryStore(), nil
	}
	return store.NewRedisStore(store.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// openArchive returns the game archive and a func closing it.
func openArchive(cfg *config.Config, log zerolog.Logger) (archive.Repository, func(), error) {
	if len(cfg.Cassandra.Hosts) == 0 {
		return archive.NewMemoryRepository(), func() {}, nil
	}
	client, err := cassandra.NewClient(cfg.Cassandra, log)
	if err != nil {
		return nil, nil, err
	}
	return cassandra.NewRepository(client, log, cfg.Cassandra.Timeout), client.Close, nil
}

func loadHeroes(path string) (*hero.Pool, error) {
	if path == "" {
		return hero.Default(), nil
	}
	return hero.Load(path)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	appLogger := logger.New(logger.Level(cfg.LogLevel), cfg.LogPretty)
	appLogger.Info().
		Str("address", cfg.Address()).
		Str("advertise", cfg.AdvertiseAddr).
		Str("store", cfg.Store).
		Msg("Starting seat service")

	sharedStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer sharedStore.Close()
	if cfg.Store == config.StoreMemory {
		appLogger.Warn().Msg("Using in-process store; rooms are not shared with other nodes")
	} else {
		appLogger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	games, closeArchive, err := openArchive(cfg, logger.Component(appLogger, "cassandra"))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer closeArchive()

	heroes, err := loadHeroes(cfg.HeroRoster)
	if err != nil {
		return fmt.Errorf("load hero roster: %w", err)
	}

	pool, err := worker.NewPool(cfg.WorkerPoolSize, appLogger)
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	checks, err := worker.NewPool(cfg.SeatCheckWorkers, appLogger, worker.WithNonblocking())
	if err != nil {
		return fmt.Errorf("start seat check pool: %w", err)
	}

	hub := notify.NewHub(appLogger)
	rooms := room.NewManager(room.Deps{
		Store:    sharedStore,
		Pool:     pool,
		Checks:   checks,
		Heroes:   heroes,
		Notifier: notify.NewFanout(appLogger, notify.NewLog(appLogger), hub),
		Archive:  games,
		Log:      appLogger,
	}, room.Options{
		Owner:            cfg.AdvertiseAddr,
		TTL:              cfg.Room.TTL,
		LockWait:         cfg.Room.LockWait,
		SeatCheckRetries: cfg.Room.SeatCheckRetries,
		SeatCheckBackoff: cfg.Room.SeatCheckBackoff,
		PickTimeout:      cfg.Room.PickTimeout,
		HandSize:         cfg.Room.HandSize,
		MaxRounds:        cfg.Room.MaxRounds,
	})

	gameService := service.NewGameService(rooms, games, cfg.Room.MinSeats, cfg.Room.MaxSeats)
	hub.OnPick(gameService.PickCharacter)
	handler := api.NewHandler(gameService, hub, appLogger)

	router := chi.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(api.LoggingMiddleware(appLogger))
	router.Use(middleware.Recoverer)
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("address", cfg.Address()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	appLogger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := checks.Close(time.Second); err != nil {
		appLogger.Warn().Err(err).Int("running", checks.Running()).Msg("Seat check pool did not drain")
	}
	// cancels the games still running; they are archived as failed
	if err := pool.Close(5 * time.Second); err != nil {
		appLogger.Warn().Err(err).Int("running", pool.Running()).Msg("Worker pool did not drain")
	}
	appLogger.Info().Int("games", rooms.Games()).Msg("Server exited")
	return nil
}
