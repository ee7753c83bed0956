package server

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"octarcade/internal/cache"
	"octarcade/internal/chain"
	"octarcade/internal/config"
	"octarcade/internal/database"
	"octarcade/internal/game"
	"octarcade/internal/metrics"
)

// Games are the controllers served by one process.
type Games struct {
	Crash       *game.Crash
	Mines       *game.Mines
	Slide       *game.Slide
	VideoPoker  *game.VideoPoker
	Leaderboard *game.Leaderboard
}

type FiberServer struct {
	*fiber.App

	db       database.Service
	cache    cache.Service
	hub      *game.Hub
	registry *game.Registry
	games    Games
	validate *validator.Validate
}

// New wires the node client, signer relay, stores and controllers from cfg.
// Redis and postgres are optional: without them history is kept in memory
// and the leaderboard is not archived.
func New(cfg *config.Config) *FiberServer {
	node := chain.NewClient(chain.Config{URL: cfg.RPCURL})
	relay := chain.NewRelay(cfg.RelayURL, cfg.Player, nil)
	hub := game.NewHub()

	var recorder game.Recorder
	redisService := cache.New(cfg.Redis)
	if redisService != nil {
		recorder = cache.NewHistoryStore(redisService.GetClient(), cfg.HistorySize)
	}

	var archive game.Archiver
	db := database.New(cfg.Database)
	if health := db.Health(); health["status"] == "up" {
		archive = db
	} else {
		log.Println("[DB] Running without transaction archive")
		db.Close()
		db = nil
	}

	deps := game.Deps{
		Events:    node,
		Objects:   node,
		Submitter: relay,
		Notifier:  hub,
		Publisher: hub,
		Recorder:  recorder,
	}
	games := Games{
		Crash:      game.NewCrash(game.SettingsFor(cfg, game.GameTypeCrash), deps),
		Mines:      game.NewMines(game.SettingsFor(cfg, game.GameTypeMines), deps),
		Slide:      game.NewSlide(game.SettingsFor(cfg, game.GameTypeSlide), deps),
		VideoPoker: game.NewVideoPoker(game.SettingsFor(cfg, game.GameTypeVideoPoker), deps),
		Leaderboard: game.NewLeaderboard(
			game.SettingsFor(cfg, game.GameTypeCrash),
			game.Deps{Events: node, Publisher: hub},
			archive,
		),
	}

	return NewWithGames(games, hub, db, redisService)
}

// NewWithGames builds the HTTP app around already constructed controllers.
// db and cache may be nil.
func NewWithGames(games Games, hub *game.Hub, db database.Service, c cache.Service) *FiberServer {
	registry := game.NewRegistry()
	registry.Register(games.Crash)
	registry.Register(games.Mines)
	registry.Register(games.Slide)
	registry.Register(games.VideoPoker)
	registry.Register(games.Leaderboard)

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "octarcade",
			AppName:       "octarcade",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  40 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:       db,
		cache:    c,
		hub:      hub,
		registry: registry,
		games:    games,
		validate: validator.New(),
	}

	// Apply global middleware
	server.App.Use(recover.New())
	server.App.Use(requestMetrics)
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws" || c.Path() == "/metrics"
		},
	}))

	return server
}

// Start runs the hub and every controller loop until ctx is done or
// Shutdown is called.
func (s *FiberServer) Start(ctx context.Context) error {
	go s.hub.Run()
	if err := s.registry.StartAll(ctx); err != nil {
		return err
	}
	log.Println("[SERVER] Hub and all game controllers started")
	return nil
}

// Shutdown stops the controllers and closes the stores.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if err := s.registry.StopAll(); err != nil {
		log.Printf("[SERVER] Error stopping game controllers: %v", err)
	}
	s.hub.Stop()

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}

func requestMetrics(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	path := c.Route().Path
	method := c.Method()
	status := c.Response().StatusCode()
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
	}
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	return err
}
