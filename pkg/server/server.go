package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/razonbilstro/nucleus-service/internal/capabilities"
	"github.com/razonbilstro/nucleus-service/internal/handlers"
	"github.com/razonbilstro/nucleus-service/internal/services"
)

type Server struct {
	httpAddr       string
	keyService     *services.KeyService
	nucleusService *services.NucleusService
	datasetService *services.DatasetService
	liveService    *services.LiveService
	env            capabilities.Environment
}

func NewServer(httpAddr string, keyService *services.KeyService, nucleusService *services.NucleusService, datasetService *services.DatasetService, liveService *services.LiveService, env capabilities.Environment) *Server {
	return &Server{
		httpAddr:       httpAddr,
		keyService:     keyService,
		nucleusService: nucleusService,
		datasetService: datasetService,
		liveService:    liveService,
		env:            env,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// Detect environment capabilities dynamically
	detector := capabilities.NewAutoCapabilityDetector()
	detectedCapabilities := detector.DetectCapabilities(s.env)

	slog.Info("Starting server with detected capabilities",
		"shell", s.env.ShellPath,
		"dialect", s.env.Dialect,
		"capabilities", detector.GetCapabilitiesSummary(detectedCapabilities))

	// Register endpoints based on detected capabilities
	endpointsRegistered := 0

	for _, cap := range detectedCapabilities {
		switch cap.Type {
		case capabilities.CapabilityChat:
			apiHandler := handlers.NewAPIHandler(s.keyService, s.nucleusService)
			apiHandler.RegisterRoutes(mux)
			slog.Info("Registered nucleus endpoints", "endpoints", []string{"/api/v1/chat", "/api/v1/execute", "/api/v1/process", "/api/v1/generate_key", "/api/v1/status", "/api/v1/usage", "/api/v1/reset", "/healthz", "/logs"})
			endpointsRegistered++

		case capabilities.CapabilityCommandExecution:
			if active, ok := cap.Parameters["active"].(bool); ok {
				slog.Info("Command execution available", "shell", cap.Parameters["shell"], "tty_active", active)
			} else {
				slog.Info("Command execution available", "shell", cap.Parameters["shell"])
			}

		case capabilities.CapabilityNeuralProcessing:
			slog.Info("Neural processing pipeline active", "pretrained", cap.Parameters["pretrained"])

		case capabilities.CapabilityDatasetGeneration:
			datasetHandler := handlers.NewDatasetHandler(s.datasetService)
			datasetHandler.RegisterRoutes(mux)
			slog.Info("Registered dataset endpoints", "endpoints", []string{"/api/v1/datasets", "/api/v1/datasets/generate"})
			endpointsRegistered++

		case capabilities.CapabilityTemporalTraining:
			// Training runs through the trainer CLI, not HTTP
			slog.Info("Temporal training capability detected")

		case capabilities.CapabilityLiveMonitoring:
			pagesHandler := handlers.NewPagesHandler(s.liveService)
			pagesHandler.RegisterRoutes(mux)
			slog.Info("Registered monitoring pages", "endpoints", []string{"/", "/live-monitoring", "/api/events"})
			endpointsRegistered++
		}
	}

	// Ensure we always have basic endpoints registered
	if endpointsRegistered == 0 {
		slog.Warn("No capabilities detected, registering fallback endpoints")
		apiHandler := handlers.NewAPIHandler(s.keyService, s.nucleusService)
		apiHandler.RegisterRoutes(mux)
		pagesHandler := handlers.NewPagesHandler(s.liveService)
		pagesHandler.RegisterRoutes(mux)
	}

	slog.Info("HTTP server starting",
		"addr", s.httpAddr,
		"endpoints_registered", endpointsRegistered,
		"total_capabilities", len(detectedCapabilities))

	return http.ListenAndServe(s.httpAddr, mux)
}
