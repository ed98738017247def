package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/razonbilstro/nucleus-service/internal/config"
)

// HealthService answers discovery probes on nucleus.<name>.health and
// publishes periodic heartbeats for the monitor.
type HealthService struct {
	nats         *nats.Conn
	config       *config.Config
	nucleus      *NucleusService
	monitoring   *MonitoringService
	capabilities []string
}

type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"` // online, offline, busy
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
	TTYActive    bool      `json:"tty_active"`
}

func NewHealthService(natsConn *nats.Conn, cfg *config.Config, nucleus *NucleusService, monitoring *MonitoringService, capabilities []string) *HealthService {
	return &HealthService{
		nats:         natsConn,
		config:       cfg,
		nucleus:      nucleus,
		monitoring:   monitoring,
		capabilities: capabilities,
	}
}

func (h *HealthService) Start(ctx context.Context) error {
	topic := fmt.Sprintf("nucleus.%s.health", h.config.ServiceName)

	if _, err := h.nats.Subscribe(topic, h.respondHealth); err != nil {
		return fmt.Errorf("failed to subscribe to health topic: %w", err)
	}

	slog.Info("Health service started", "topic", topic)

	go h.heartbeatLoop(ctx)
	return nil
}

// respondHealth answers a probe on the request's reply inbox.
func (h *HealthService) respondHealth(msg *nats.Msg) {
	data, err := json.Marshal(h.snapshot())
	if err != nil {
		slog.Error("Failed to marshal health status", "error", err)
		return
	}

	if err := msg.Respond(data); err != nil {
		slog.Error("Failed to respond to health check", "error", err)
	}
}

func (h *HealthService) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	topic := fmt.Sprintf("monitoring.nucleus.heartbeat.%s", h.config.ServiceName)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := json.Marshal(h.snapshot())
			if err != nil {
				continue
			}
			if err := h.nats.Publish(topic, data); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

// snapshot reports busy once every worker slot is occupied.
func (h *HealthService) snapshot() HealthStatus {
	status := "online"
	if h.monitoring != nil && h.monitoring.Active() >= int64(h.config.Concurrency) {
		status = "busy"
	}

	ttyActive := false
	if h.nucleus != nil {
		ttyActive = h.nucleus.TTYActive()
	}

	return HealthStatus{
		ServiceName:  h.config.ServiceName,
		Status:       status,
		LastActivity: time.Now(),
		Capabilities: h.capabilities,
		Endpoint:     fmt.Sprintf("http://localhost%s", h.config.HTTPAddr),
		NATSTopic:    h.config.Subject,
		Version:      h.config.Version,
		TTYActive:    ttyActive,
	}
}
