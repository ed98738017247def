package services

import (
	"context"
	"testing"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
	"github.com/razonbilstro/nucleus-service/internal/tty"
	"github.com/razonbilstro/nucleus-service/internal/watcher"
)

func newTestLiveService(t *testing.T, feedback <-chan watcher.Detection) (*LiveService, *repository.MemoryRepository) {
	t.Helper()

	cfg := &config.Config{
		ServiceName:  "razonbilstro-nucleus",
		Version:      "4.1",
		LiveInterval: time.Hour,
		DataDir:      t.TempDir(),
	}
	repo := repository.NewMemoryRepository()
	nucleus := NewNucleusService(cfg, repo, neural.NewNetwork(neural.ActivationSigmoid), tokenizer.New(0), tty.NewNucleus("/bin/bash"))
	monitoring := NewMonitoringService(nil, cfg)
	return NewLiveService(nil, cfg, repo, nucleus, monitoring, nil, feedback), repo
}

func TestLiveSnapshotShape(t *testing.T) {
	svc, repo := newTestLiveService(t, nil)
	ctx := context.Background()

	repo.Datasets().SaveDataset(ctx, "ds1", "manual", []*models.DatasetRecord{{ID: "r1"}, {ID: "r2"}})

	report := svc.snapshot(ctx)
	if report.ServiceName != "razonbilstro-nucleus" {
		t.Errorf("service name = %q", report.ServiceName)
	}
	if report.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", report.Sequence)
	}
	if g, ok := report.Resources["goroutines"].(int); !ok || g <= 0 {
		t.Errorf("goroutines = %v, want positive count", report.Resources["goroutines"])
	}
	if report.Nucleus["system"] != "RazonbilstroOS Nucleus API" {
		t.Errorf("nucleus system = %v", report.Nucleus["system"])
	}
	if report.Nucleus["pending_messages"] != int64(0) {
		t.Errorf("pending_messages = %v, want 0", report.Nucleus["pending_messages"])
	}
	if report.Datasets["count"] != 1 {
		t.Errorf("dataset count = %v, want 1", report.Datasets["count"])
	}
	if report.Datasets["total_records"] != 2 {
		t.Errorf("total records = %v, want 2", report.Datasets["total_records"])
	}
	if report.Datasets["latest"] != "ds1" {
		t.Errorf("latest = %v, want ds1", report.Datasets["latest"])
	}

	second := svc.snapshot(ctx)
	if second.Sequence != 2 {
		t.Errorf("second sequence = %d, want 2", second.Sequence)
	}
}

func TestLiveSubscribe(t *testing.T) {
	svc, _ := newTestLiveService(t, nil)
	ctx := context.Background()

	ch, cancel := svc.Subscribe()
	svc.emit(ctx)

	select {
	case report := <-ch:
		if report.Sequence != 1 {
			t.Errorf("sequence = %d, want 1", report.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the report")
	}

	recent := svc.Recent()
	if len(recent) != 1 {
		t.Fatalf("got %d retained reports, want 1", len(recent))
	}

	cancel()
	// Cancel twice must not panic on the closed channel.
	cancel()

	svc.emit(ctx)
	if len(svc.Recent()) != 2 {
		t.Error("emit after unsubscribe should still retain reports")
	}
}

func TestLiveFeedbackWindow(t *testing.T) {
	feedback := make(chan watcher.Detection)
	svc, _ := newTestLiveService(t, feedback)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go svc.consumeFeedback(ctx)

	for i := 0; i < liveDetectionWindow+2; i++ {
		feedback <- watcher.Detection{ErrorType: "permission_denied", Line: "denied"}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		report := svc.snapshot(ctx)
		if len(report.Detections) == liveDetectionWindow {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d detections, want window of %d", len(report.Detections), liveDetectionWindow)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
