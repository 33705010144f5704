package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/SravanamCharan20/CodeClash/auth"
	"github.com/SravanamCharan20/CodeClash/catalog"
	"github.com/SravanamCharan20/CodeClash/config"
	"github.com/SravanamCharan20/CodeClash/crypto"
	"github.com/SravanamCharan20/CodeClash/game"
	"github.com/SravanamCharan20/CodeClash/logger"
	"github.com/SravanamCharan20/CodeClash/migrations"
	"github.com/SravanamCharan20/CodeClash/sandbox"
	"github.com/SravanamCharan20/CodeClash/storage"
	"github.com/docker/docker/client"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	baseLogger := logger.Setup(cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dependencies
	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer pgRepo.Close()

	tokenManager := crypto.NewJWTManager(cfg.JWTKey, cfg.TokenAge)
	resolver := auth.NewResolver(tokenManager, pgRepo)

	problems, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("problem catalog unavailable")
	}
	log.Info().Int("problems", problems.Len()).Msg("catalog loaded")

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Fatal().Err(err).Msg("docker client")
	}
	defer dockerClient.Close()
	executor := sandbox.NewDockerExecutor(dockerClient, cfg.Sandbox, baseLogger.With().Str("component", "sandbox").Logger())

	tickerGen := game.NewTickerGen()
	service := game.NewService(
		game.NewRegistry(),
		game.RealClock(),
		problems,
		executor,
		baseLogger.With().Str("component", "game").Logger(),
		game.Options{
			MaxMembers:       cfg.Game.MaxMembers,
			MaxProblems:      cfg.Game.MaxProblems,
			CountdownSeconds: cfg.Game.CountdownSeconds,
			AbandonedTTL:     cfg.Game.AbandonedTTL,
			SampleTestLimit:  game.DefaultOptions().SampleTestLimit,
		},
	)
	gameHandler := game.NewHandler(service, cfg.AllowedOrigins, cfg.Game.PingInterval, tickerGen)

	r := CreateServer(cfg.AllowedOrigins)
	r.GET("/ws", auth.RequireIdentity(resolver, 2*time.Second), gameHandler.ServeWS)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// a cold image cache only delays the first executions
		if err := executor.Prepare(gctx); err != nil {
			log.Warn().Err(err).Msg("sandbox images not ready")
		}
		return nil
	})
	g.Go(func() error {
		service.RunSweeper(gctx, cfg.Game.SweepInterval, tickerGen)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
