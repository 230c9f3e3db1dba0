package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/chronoslabs/chronos-engine/internal/adapters/backend"
	geminiclient "github.com/chronoslabs/chronos-engine/internal/adapters/genai"
	"github.com/chronoslabs/chronos-engine/internal/adapters/httpapi"
	filestore "github.com/chronoslabs/chronos-engine/internal/adapters/storage/file"
	firestorestore "github.com/chronoslabs/chronos-engine/internal/adapters/storage/firestore"
	memstore "github.com/chronoslabs/chronos-engine/internal/adapters/storage/memory"
	"github.com/chronoslabs/chronos-engine/internal/audio"
	"github.com/chronoslabs/chronos-engine/internal/config"
	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/enrich"
	"github.com/chronoslabs/chronos-engine/internal/metrics"
	"github.com/chronoslabs/chronos-engine/internal/observability"
	"github.com/chronoslabs/chronos-engine/internal/session"
)

// backendServices groups the five remote collaborator ports, all satisfied
// by either the Gemini client or the mock.
type backendServices interface {
	domain.ChatBackend
	domain.ImageGenerator
	domain.SpeechSynthesizer
	domain.Transcriber
	domain.LifespanOracle
}

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	ctx := context.Background()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}
		cfg = loaded
	}

	observability.SetLevel(parseLevel(cfg.Logging.Level))
	logger := observability.Logger()

	// Backend: Gemini or mock
	var services backendServices
	switch cfg.Backend.Provider {
	case "genai":
		logger.Info("using Gemini backend",
			"project", cfg.Backend.GCPProject,
			"chat_model", cfg.Backend.ChatModel)
		client, err := geminiclient.NewClient(ctx, cfg.Backend.GCPProject, cfg.Backend.GCPLocation, geminiclient.ModelConfig{
			ChatModel:   cfg.Backend.ChatModel,
			ImageModel:  cfg.Backend.ImageModel,
			SpeechModel: cfg.Backend.SpeechModel,
		})
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
		services = client
	default:
		logger.Info("using mock backend")
		services = backend.NewMock()
	}

	// Storage: memory, file or Firestore
	var history domain.HistoryStore
	switch cfg.Storage.Backend {
	case "firestore":
		logger.Info("using Firestore storage",
			"project", cfg.Backend.GCPProject,
			"namespace", cfg.Storage.Namespace)
		fs, err := firestorestore.NewStore(ctx, cfg.Backend.GCPProject, cfg.Storage.Namespace)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		history = fs
	case "file":
		logger.Info("using file storage",
			"path", cfg.Storage.FilePath,
			"namespace", cfg.Storage.Namespace)
		history = filestore.NewStore(cfg.Storage.FilePath, cfg.Storage.Namespace)
	default:
		logger.Info("using in-memory storage")
		history = memstore.NewStore()
	}

	met := metrics.NewMetrics()
	store := session.NewStore(history, met)
	enricher := enrich.NewOrchestrator(services, store, met)
	player := audio.NewPlayer(cfg.Audio.SampleRate, func() (audio.Sink, error) {
		return audio.NewWallClockSink(), nil
	})

	engine := session.NewEngine(session.EngineDeps{
		Backend:  services,
		Speech:   services,
		STT:      services,
		Lifespan: services,
		Store:    store,
		Enricher: enricher,
		Player:   player,
		Language: domain.Language(cfg.Backend.Language),
		Metrics:  met,
	})

	handler := httpapi.NewServer(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	logger.Info("chronos engine listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
