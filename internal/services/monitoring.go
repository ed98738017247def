package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/razonbilstro/nucleus-service/internal/config"
)

// Pressure levels carried in BackpressureReport.Status.
const (
	PressureHealthy  = "healthy"
	PressureWarning  = "warning"
	PressureCritical = "critical"
)

// Report cadence: fast while messages wait, slow when the queue is idle.
const (
	busyReportInterval = 1 * time.Second
	idleReportInterval = 10 * time.Second
)

// MonitoringService follows queue pressure across the HTTP and NATS
// paths. Fetched-but-unprocessed messages count as queued; operations
// inside the nucleus count as active work. With a nil connection the
// counters still run, only publishing is skipped.
type MonitoringService struct {
	nats    *nats.Conn
	config  *config.Config
	queued  atomic.Int64
	working atomic.Int64
}

type BackpressureReport struct {
	ServiceName      string    `json:"service_name"`
	PendingMessages  int64     `json:"pending_messages"`
	ActiveProcessing int64     `json:"active_processing"`
	Timestamp        time.Time `json:"timestamp"`
	WorkerCount      int       `json:"worker_count"`
	QueueCapacity    int       `json:"queue_capacity"`
	Status           string    `json:"status"`
}

func NewMonitoringService(natsConn *nats.Conn, cfg *config.Config) *MonitoringService {
	return &MonitoringService{
		nats:   natsConn,
		config: cfg,
	}
}

func (m *MonitoringService) Start(ctx context.Context) error {
	slog.Info("Starting monitoring service",
		"topic", m.config.MonitoringTopic,
		"threshold", m.config.BackpressureThreshold)

	go m.pressureLoop(ctx)
	return nil
}

// pressureLoop publishes backpressure reports, tightening the cadence
// while messages are waiting and relaxing it once the queue drains.
func (m *MonitoringService) pressureLoop(ctx context.Context) {
	interval := idleReportInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending := m.Pending()
			active := m.Active()

			want := idleReportInterval
			if pending > 0 {
				want = busyReportInterval
			}
			if want != interval {
				interval = want
				ticker.Reset(interval)
				slog.Debug("Monitoring cadence changed", "interval", interval, "pending", pending)
			}

			m.publishReport(pending, active)
		}
	}
}

func (m *MonitoringService) publishReport(pending, active int64) {
	status := m.pressureStatus(pending + active)

	report := BackpressureReport{
		ServiceName:      m.config.ServiceName,
		PendingMessages:  pending,
		ActiveProcessing: active,
		Timestamp:        time.Now(),
		WorkerCount:      m.config.Concurrency,
		QueueCapacity:    m.config.MaxMsgs,
		Status:           status,
	}

	if m.nats != nil {
		data, err := json.Marshal(report)
		if err != nil {
			slog.Error("Failed to marshal backpressure report", "error", err)
			return
		}

		topic := fmt.Sprintf("%s.%s", m.config.MonitoringTopic, m.config.ServiceName)
		if err := m.nats.Publish(topic, data); err != nil {
			slog.Warn("Failed to publish backpressure report", "error", err)
			return
		}
	}

	if pending > 0 || status != PressureHealthy {
		slog.Info("Backpressure report",
			"pending", pending,
			"active", active,
			"status", status)
	}
}

func (m *MonitoringService) pressureStatus(total int64) string {
	switch {
	case total == 0:
		return PressureHealthy
	case total < m.config.BackpressureThreshold:
		return PressureWarning
	default:
		return PressureCritical
	}
}

// MessageQueued records a fetched message entering the work queue.
func (m *MonitoringService) MessageQueued() {
	m.queued.Add(1)
}

// MessageDequeued records a message fully handled and leaving the queue.
func (m *MonitoringService) MessageDequeued() {
	m.queued.Add(-1)
}

// WorkStarted records an operation entering the nucleus.
func (m *MonitoringService) WorkStarted() {
	m.working.Add(1)
}

// WorkFinished records an operation leaving the nucleus.
func (m *MonitoringService) WorkFinished() {
	m.working.Add(-1)
}

// Pending returns the number of queued messages.
func (m *MonitoringService) Pending() int64 {
	return m.queued.Load()
}

// Active returns the number of operations currently processing.
func (m *MonitoringService) Active() int64 {
	return m.working.Load()
}

// Connection returns the NATS connection, nil when running HTTP only.
func (m *MonitoringService) Connection() *nats.Conn {
	return m.nats
}
