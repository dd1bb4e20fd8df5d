package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/keshav2k4/employee-tracker-App/internal/auth"
	"github.com/keshav2k4/employee-tracker-App/internal/config"
	"github.com/keshav2k4/employee-tracker-App/internal/device"
	"github.com/keshav2k4/employee-tracker-App/internal/geocode"
	"github.com/keshav2k4/employee-tracker-App/internal/history"
	"github.com/keshav2k4/employee-tracker-App/internal/remote"
	"github.com/keshav2k4/employee-tracker-App/internal/stream"
	"github.com/keshav2k4/employee-tracker-App/internal/tracking"
)

// OutcomeTopic is the stream topic tick outcomes are broadcast on.
const OutcomeTopic = "outcomes"

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Remote   *remote.Client
	Auth     *auth.Service
	History  history.Store
	Tracking *tracking.Controller
}

var (
	newProviderFn = newProvider
	newResolverFn = newResolver
)

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Remote: remote.NewClient(remote.Options{
			BaseURL:       cfg.APIBaseURL,
			Subdomain:     cfg.APISubdomain,
			AppOS:         cfg.APIAppOS,
			AppUser:       cfg.APIAppUser,
			AppPassword:   cfg.APIAppPassword,
			BasicUser:     cfg.APIBasicUser,
			BasicPassword: cfg.APIBasicPassword,
			Timeout:       time.Duration(cfg.APITimeoutMS) * time.Millisecond,
		}),
	}
	s.Auth = auth.NewService(cfg.JWTSecret, redisClient, s.Remote)
	s.History = newHistoryStore(cfg, db, redisClient)
	s.Tracking = tracking.NewController(tracking.Deps{
		Provider: newProviderFn(cfg),
		Resolver: newResolverFn(cfg),
		Store:    s.History,
		Sync:     s.Remote,
		Auth:     s.Auth,
	}, tracking.Options{
		OnOutcome: s.publishOutcome,
	})

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "tracking": s.Tracking.IsActive()})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), s.Auth, jwtMiddleware, s.Tracking.Stop)
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/history"), s.History, s.remoteHistory, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Interval is the configured tick interval.
func (s *Server) Interval() time.Duration {
	return time.Duration(s.Cfg.TrackingIntervalMS) * time.Millisecond
}

// Close stops tracking and the stream subscription. Connections are owned by
// the caller.
func (s *Server) Close() {
	s.Tracking.Stop()
	s.Stream.Close()
}

func (s *Server) publishOutcome(o tracking.Outcome) {
	payload, err := json.Marshal(o)
	if err != nil {
		log.Printf("encode outcome: %v", err)
		return
	}
	s.Stream.Broadcast(OutcomeTopic, payload)
}

func (s *Server) remoteHistory(ctx context.Context, start, end *time.Time) ([]history.Entry, error) {
	token, err := s.Auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	employeeID, err := s.Auth.EmployeeID(ctx)
	if err != nil {
		return nil, err
	}
	return s.Remote.FetchHistory(ctx, token, employeeID, start, end)
}

func newHistoryStore(cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) history.Store {
	if cfg.HistoryBackend == "postgres" && db != nil {
		return history.NewPostgresStore(db)
	}
	return history.NewRedisStore(rdb)
}

func newProvider(cfg config.Config) device.Provider {
	if cfg.FixFile != "" {
		return device.NewFileProvider(cfg.FixFile,
			time.Duration(cfg.FixTimeoutMS)*time.Millisecond,
			time.Duration(cfg.FixMaxAgeMS)*time.Millisecond)
	}
	log.Printf("FIX_FILE not set, reporting the static position %.4f, %.4f", cfg.StaticLatitude, cfg.StaticLongitude)
	return device.NewStaticProvider(cfg.StaticLatitude, cfg.StaticLongitude)
}

func newResolver(cfg config.Config) geocode.Resolver {
	if cfg.GeocoderURL == "" {
		return geocode.CoordinateResolver{}
	}
	return geocode.NewNominatimResolver(cfg.GeocoderURL, cfg.GeocoderUserAgent, 5*time.Second)
}
