package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/razonbilstro/nucleus-service/internal/capabilities"
	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/corpus"
	"github.com/razonbilstro/nucleus-service/internal/dataset"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/perception"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/services"
	"github.com/razonbilstro/nucleus-service/internal/store"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
	"github.com/razonbilstro/nucleus-service/internal/tty"
	"github.com/razonbilstro/nucleus-service/internal/watcher"
	"github.com/razonbilstro/nucleus-service/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize database
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Log startup event
	db.Event("info", "startup", "Nucleus starting", map[string]interface{}{
		"service_name": cfg.ServiceName,
		"http_addr":    cfg.HTTPAddr,
		"db_path":      cfg.DBPath,
	})

	// Initialize repository
	repo := repository.NewSQLRepository(db, cfg.DatasetDir)

	// Load the conversational model, falling back to a fresh network
	network := neural.LoadOrNew(cfg.ModelPath, neural.ActivationSigmoid)
	modelLoaded := false
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		modelLoaded = true
		db.Event("info", "model.loaded", "Pretrained model loaded", map[string]interface{}{
			"model_path": cfg.ModelPath,
		})
	} else {
		db.Event("info", "model.fresh", "No pretrained model, starting fresh", map[string]interface{}{
			"model_path": cfg.ModelPath,
		})
	}

	tok := tokenizer.New(0)
	vocabPath := filepath.Join(cfg.DataDir, "models", "vocab.json")
	if err := tok.Load(vocabPath); err == nil {
		slog.Info("Loaded tokenizer vocabulary", "path", vocabPath, "vocab_size", tok.VocabSize())
	}

	// Start the TTY nucleus; a missing shell degrades commands, not chat
	ttyNucleus := tty.NewNucleus(cfg.ShellPath)
	if cfg.TTYEnabled {
		if err := ttyNucleus.Start(); err != nil {
			db.Event("warn", "tty.failed", "TTY start failed, command execution degraded", map[string]interface{}{
				"shell": cfg.ShellPath,
				"error": err.Error(),
			})
			slog.Warn("Failed to start TTY nucleus", "shell", cfg.ShellPath, "error", err)
		} else {
			db.Event("info", "tty.started", "TTY nucleus active", map[string]interface{}{
				"shell": cfg.ShellPath,
			})
			defer ttyNucleus.Stop()
		}
	}

	// Load corpus with overlays and build the dataset generator
	corp, err := corpus.Load(cfg.CorpusDir)
	if err != nil {
		slog.Error("Failed to load corpus overlays", "dir", cfg.CorpusDir, "error", err)
		os.Exit(1)
	}

	// Initialize services
	keyService := services.NewKeyService(repo)
	nucleusService := services.NewNucleusService(cfg, repo, network, tok, ttyNucleus)
	generator := dataset.NewGenerator(corp, tok, repo, cfg.DatasetDir)
	datasetService := services.NewDatasetService(repo, generator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := keyService.EnsureAdminKey(ctx); err != nil {
		slog.Warn("Failed to ensure admin key", "error", err)
	}

	db.Event("info", "services.init", "Initializing services", map[string]interface{}{
		"http_addr": cfg.HTTPAddr,
		"nats_url":  cfg.NatsURL,
	})

	// Probe the environment for capability detection
	env := capabilities.Probe(cfg.ShellPath, cfg.DatabaseURL, cfg.NatsURL, cfg.CorpusDir, cfg.DataDir)
	env.TTYActive = nucleusService.TTYActive()
	env.ModelLoaded = modelLoaded
	env.CorpusFamilies = []string{"kali", "termux", "shell", "academic"}

	detector := capabilities.NewAutoCapabilityDetector()
	capabilityStrings := detector.GetCapabilityStrings(detector.DetectCapabilities(env))

	// Initialize NATS service; the nucleus stays useful over plain HTTP
	// when the broker is unreachable
	var natsService *services.NATSService
	monitoring := services.NewMonitoringService(nil, cfg)
	if cfg.NatsURL != "" {
		natsService, err = services.NewNATSService(cfg, nucleusService)
		if err != nil {
			db.Event("warn", "nats.failed", "NATS unavailable, running HTTP only", map[string]interface{}{
				"nats_url": cfg.NatsURL,
				"error":    err.Error(),
			})
			slog.Warn("Failed to create NATS service", "nats_url", cfg.NatsURL, "error", err)
			natsService = nil
		} else {
			monitoring = natsService.GetMonitoringService()
		}
	}
	nucleusService.AttachMonitoring(monitoring)

	// Log error watcher feeding live detections
	var feedback <-chan watcher.Detection
	logWatcher, err := watcher.New(cfg.WatcherConf, 64)
	if err != nil {
		slog.Warn("Failed to load watcher config", "path", cfg.WatcherConf, "error", err)
	} else {
		feedback = logWatcher.Feedback()
		if len(cfg.WatchPaths) > 0 {
			go func() {
				if err := logWatcher.Watch(ctx, cfg.WatchPaths); err != nil {
					slog.Error("Log watcher failed", "error", err)
				}
			}()
		}
	}

	// Perception loop self-assesses resources, network and security
	percept := perception.New(filepath.Join(cfg.DataDir, "perception_state.json"), cfg.PerceptionInterval, nucleusService)
	go percept.Run(ctx)

	natsConn := monitoring.Connection()
	liveService := services.NewLiveService(natsConn, cfg, repo, nucleusService, monitoring, percept, feedback)

	// Start HTTP server
	httpServer := server.NewServer(cfg.HTTPAddr, keyService, nucleusService, datasetService, liveService, env)

	// Log server ready
	db.Event("info", "server.ready", "Nucleus ready to accept requests", map[string]interface{}{
		"http_addr":    cfg.HTTPAddr,
		"service_name": cfg.ServiceName,
		"nats_url":     cfg.NatsURL,
		"capabilities": capabilityStrings,
	})

	// Start all services
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			db.Event("error", "http.failed", "HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	go func() {
		if err := liveService.Start(ctx); err != nil {
			slog.Error("Live service failed", "error", err)
		}
	}()

	if natsService != nil {
		go func() {
			if err := natsService.Start(ctx); err != nil {
				db.Event("error", "nats.failed", "NATS service failed", map[string]interface{}{
					"error": err.Error(),
				})
				slog.Error("NATS service failed", "error", err)
			}
		}()

		healthService := services.NewHealthService(natsService.GetConnection(), cfg, nucleusService, monitoring, capabilityStrings)
		go func() {
			if err := healthService.Start(ctx); err != nil {
				db.Event("error", "health.failed", "Health service failed", map[string]interface{}{
					"error": err.Error(),
				})
				slog.Error("Health service failed", "error", err)
			}
		}()
	}

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	db.Event("info", "shutdown", "Nucleus shutting down", nil)
	slog.Info("Shutting down server")
}
