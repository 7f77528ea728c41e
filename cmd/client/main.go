package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
	"github.com/sowandreap/kalaha/client/game"
	"github.com/sowandreap/kalaha/pkg/client"
	"github.com/sowandreap/kalaha/pkg/config"
	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/orchestrator"
	"github.com/sowandreap/kalaha/pkg/repositories"
	"github.com/sowandreap/kalaha/pkg/store"
	"github.com/sowandreap/kalaha/pkg/version"
)

func main() {
	logLevel := flag.String("log-level", "", "Log level (error, warn, info, debug, trace)")
	serverURL := flag.String("server-url", "", "Game server base URL")
	sessionCache := flag.String("session-cache", "", "Path to the sqlite session cache")
	debug := flag.Bool("debug", false, "Enable the debug overlay")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: %v", err)
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *sessionCache != "" {
		cfg.SessionCachePath = *sessionCache
	}
	if *debug {
		cfg.Debug = true
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting client version %s", version.Get())

	ctx := context.Background()

	var repository repositories.Repository
	if cfg.SessionCachePath != "" {
		sqliteRepository, err := repositories.NewSQLiteRepository(ctx, cfg.SessionCachePath)
		if err != nil {
			panic(fmt.Sprintf("Failed to open session cache: %v", err))
		}
		repository = sqliteRepository
	} else {
		log.Debug("No session cache path configured, sessions will not survive restarts")
		repository = repositories.NewInMemoryRepository()
	}
	defer repository.Close(ctx)

	sessionClient := client.NewHTTPSessionClient(client.NewHTTPSessionClientOptions{
		BaseURL:    cfg.ServerURL,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})

	gameStore := store.NewGameStateStore()

	turnOrchestrator := orchestrator.NewTurnOrchestrator(orchestrator.NewTurnOrchestratorOptions{
		SessionClient:     sessionClient,
		Store:             gameStore,
		Repository:        repository,
		OpponentMoveDelay: cfg.OpponentMoveDelay,
	})
	defer turnOrchestrator.Stop()

	g, err := game.NewGame(game.NewGameOptions{
		Debug:        cfg.Debug,
		Store:        gameStore,
		Orchestrator: turnOrchestrator,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create game: %v", err))
	}

	ebiten.SetWindowSize(game.DefaultScreenWidth, game.DefaultScreenHeight)
	ebiten.SetWindowTitle("Kalaha")
	if err := ebiten.RunGame(g); err != nil {
		panic(fmt.Sprintf("Failed to run game: %v", err))
	}
}
