package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/perception"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/watcher"
)

const (
	liveReportRing      = 30
	liveDetectionWindow = 10
)

// LiveReport is one snapshot of the running service, published on the
// live topic and streamed to dashboard clients.
type LiveReport struct {
	ServiceName string                 `json:"service_name"`
	Sequence    uint64                 `json:"sequence"`
	Timestamp   time.Time              `json:"timestamp"`
	Resources   map[string]interface{} `json:"resources"`
	Nucleus     map[string]interface{} `json:"nucleus"`
	Datasets    map[string]interface{} `json:"datasets"`
	Detections  []watcher.Detection    `json:"detections,omitempty"`
}

// LiveService assembles periodic reports from the nucleus, the dataset
// registry, the perception loop and the error watcher. Reports are kept
// in a small ring for late-joining dashboard clients.
type LiveService struct {
	nats        *nats.Conn
	cfg         *config.Config
	repo        repository.Repository
	nucleus     *NucleusService
	monitoring  *MonitoringService
	perception  *perception.Perception
	feedback    <-chan watcher.Detection
	feedbackLog string
	started     time.Time

	mu         sync.RWMutex
	seq        uint64
	reports    []LiveReport
	detections []watcher.Detection
	subs       map[chan LiveReport]struct{}
}

func NewLiveService(natsConn *nats.Conn, cfg *config.Config, repo repository.Repository, nucleus *NucleusService, monitoring *MonitoringService, percept *perception.Perception, feedback <-chan watcher.Detection) *LiveService {
	return &LiveService{
		nats:        natsConn,
		cfg:         cfg,
		repo:        repo,
		nucleus:     nucleus,
		monitoring:  monitoring,
		perception:  percept,
		feedback:    feedback,
		feedbackLog: filepath.Join(cfg.DataDir, "watcher_feedback.log"),
		started:     time.Now(),
		subs:        make(map[chan LiveReport]struct{}),
	}
}

func (s *LiveService) Start(ctx context.Context) error {
	slog.Info("Live monitoring service starting", "interval", s.cfg.LiveInterval)

	if s.feedback != nil {
		go s.consumeFeedback(ctx)
	}

	go s.reportLoop(ctx)
	return nil
}

func (s *LiveService) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.LiveInterval)
	defer ticker.Stop()

	// First report immediately so the dashboard is never empty.
	s.emit(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Live monitoring service stopped")
			return
		case <-ticker.C:
			s.emit(ctx)
		}
	}
}

func (s *LiveService) emit(ctx context.Context) {
	report := s.snapshot(ctx)

	s.mu.Lock()
	s.reports = append(s.reports, report)
	if len(s.reports) > liveReportRing {
		s.reports = s.reports[len(s.reports)-liveReportRing:]
	}
	s.mu.Unlock()

	if s.nats != nil {
		data, err := json.Marshal(report)
		if err != nil {
			slog.Error("Failed to marshal live report", "error", err)
		} else {
			topic := fmt.Sprintf("monitoring.nucleus.live.%s", s.cfg.ServiceName)
			if err := s.nats.Publish(topic, data); err != nil {
				slog.Warn("Failed to publish live report", "error", err)
			}
		}
	}

	s.broadcast(report)
}

func (s *LiveService) snapshot(ctx context.Context) LiveReport {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	detections := make([]watcher.Detection, len(s.detections))
	copy(detections, s.detections)
	s.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resources := map[string]interface{}{
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  float64(mem.HeapAlloc) / (1024 * 1024),
		"sys_mb":         float64(mem.Sys) / (1024 * 1024),
		"uptime_seconds": time.Since(s.started).Seconds(),
	}
	if s.perception != nil {
		if state := s.perception.Last(); state != nil {
			resources["perception_cycle"] = state.Cycle
			resources["confidence_level"] = state.Confidence
			resources["adaptation_strategy"] = state.Adaptation
		}
	}

	nucleus := s.nucleus.Status()
	if s.monitoring != nil {
		nucleus["pending_messages"] = s.monitoring.Pending()
		nucleus["active_processing"] = s.monitoring.Active()
	}

	datasets := map[string]interface{}{"count": 0, "total_records": 0}
	infos, err := s.repo.Datasets().ListDatasets(ctx)
	if err != nil {
		slog.Warn("Failed to list datasets for live report", "error", err)
	} else {
		total := 0
		for _, info := range infos {
			total += info.RecordCount
		}
		datasets["count"] = len(infos)
		datasets["total_records"] = total
		if len(infos) > 0 {
			datasets["latest"] = infos[0].Name
		}
	}

	return LiveReport{
		ServiceName: s.cfg.ServiceName,
		Sequence:    seq,
		Timestamp:   time.Now(),
		Resources:   resources,
		Nucleus:     nucleus,
		Datasets:    datasets,
		Detections:  detections,
	}
}

func (s *LiveService) consumeFeedback(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case det, ok := <-s.feedback:
			if !ok {
				return
			}
			slog.Info("Watcher detection received",
				"error_type", det.ErrorType,
				"auto_action", det.AutoAction,
				"path", det.Path)

			s.mu.Lock()
			s.detections = append(s.detections, det)
			if len(s.detections) > liveDetectionWindow {
				s.detections = s.detections[len(s.detections)-liveDetectionWindow:]
			}
			s.mu.Unlock()

			if det.AutoAction != "" {
				go watcher.ExecuteAutoAction(ctx, det.AutoAction, s.feedbackLog)
			}
		}
	}
}

func (s *LiveService) broadcast(report LiveReport) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- report:
		default:
			// Slow client, skip this report.
		}
	}
}

// Subscribe registers a dashboard client. The returned cancel must be
// called when the client disconnects.
func (s *LiveService) Subscribe() (<-chan LiveReport, func()) {
	ch := make(chan LiveReport, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Recent returns the retained report ring, oldest first.
func (s *LiveService) Recent() []LiveReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LiveReport, len(s.reports))
	copy(out, s.reports)
	return out
}
