package services

import (
	"context"
	"strings"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
	"github.com/razonbilstro/nucleus-service/internal/tty"
)

func newTestNucleusService() (*NucleusService, *repository.MemoryRepository) {
	cfg := &config.Config{Version: "4.1"}
	repo := repository.NewMemoryRepository()
	network := neural.NewNetwork(neural.ActivationSigmoid)
	tok := tokenizer.New(0)
	// Shell is never started: chat falls back to conversation, execute
	// reports an inactive TTY.
	nucleus := tty.NewNucleus("/bin/bash")
	return NewNucleusService(cfg, repo, network, tok, nucleus), repo
}

func TestProcessChatConversation(t *testing.T) {
	svc, repo := newTestNucleusService()
	ctx := context.Background()

	resp, err := svc.ProcessChat(ctx, NucleusRequest{ReqID: "req-1", Input: "hola como estas"}, "test", "worker-test")
	if err != nil {
		t.Fatalf("ProcessChat failed: %v", err)
	}
	if resp.Type != "conversation" {
		t.Errorf("type = %q, want conversation", resp.Type)
	}
	if !strings.Contains(resp.Text, "He procesado su solicitud") {
		t.Errorf("text %q should contain the conversational acknowledgement", resp.Text)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error field: %q", resp.Error)
	}

	queries, err := repo.Queries().GetRecentQueries(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentQueries failed: %v", err)
	}
	if len(queries) != 1 {
		t.Fatalf("got %d query rows, want 1", len(queries))
	}
	if queries[0].DomainUsed != "conversation" {
		t.Errorf("query domain = %q, want conversation", queries[0].DomainUsed)
	}

	logs, err := repo.Request().GetRequestLogs(ctx, 10)
	if err != nil {
		t.Fatalf("GetRequestLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != "ok" {
		t.Fatalf("request logs = %+v, want one ok entry", logs)
	}
	if logs[0].Operation != OpChat {
		t.Errorf("logged operation = %q, want %q", logs[0].Operation, OpChat)
	}
}

func TestProcessExecuteWithoutTTY(t *testing.T) {
	svc, repo := newTestNucleusService()
	ctx := context.Background()

	resp, err := svc.ProcessExecute(ctx, NucleusRequest{ReqID: "req-2", Input: "ls -la"}, "test", "worker-test")
	if err != nil {
		t.Fatalf("ProcessExecute failed: %v", err)
	}
	if resp.Type != "command" {
		t.Errorf("type = %q, want command", resp.Type)
	}
	if resp.Execution == nil || resp.Execution.Success {
		t.Fatalf("execution = %+v, want failed result", resp.Execution)
	}
	if resp.Error != "TTY no activo" {
		t.Errorf("error = %q, want TTY no activo", resp.Error)
	}

	logs, _ := repo.Request().GetRequestLogs(ctx, 10)
	if len(logs) != 1 || logs[0].Status != "error" {
		t.Fatalf("request logs = %+v, want one error entry", logs)
	}
}

func TestProcessProcessPipeline(t *testing.T) {
	svc, _ := newTestNucleusService()
	ctx := context.Background()

	resp, err := svc.ProcessProcess(ctx, NucleusRequest{ReqID: "req-3", Input: "scan the network now"}, "test", "worker-test")
	if err != nil {
		t.Fatalf("ProcessProcess failed: %v", err)
	}
	if resp.Type != "process" {
		t.Errorf("type = %q, want process", resp.Type)
	}
	if resp.Confidence <= 0 || resp.Confidence >= 1 {
		t.Errorf("confidence = %f, want sigmoid output in (0,1)", resp.Confidence)
	}
	if resp.TokenCount == 0 {
		t.Error("token count should be positive")
	}
	// The response template interpolates the first words of the input.
	if !strings.Contains(resp.Text, "scan the network") {
		t.Errorf("text %q should mention the topic", resp.Text)
	}
}

func TestProcessOperationPanicRecovery(t *testing.T) {
	cfg := &config.Config{Version: "4.1"}
	repo := repository.NewMemoryRepository()
	svc := NewNucleusService(cfg, repo, neural.NewNetwork(neural.ActivationSigmoid), tokenizer.New(0), nil)
	ctx := context.Background()

	resp, err := svc.ProcessExecute(ctx, NucleusRequest{ReqID: "req-4", Input: "ls"}, "test", "worker-test")
	if err == nil {
		t.Fatal("expected error from panicking worker")
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("error %q should mention the panic", err)
	}
	if resp == nil || resp.Type != "error" {
		t.Fatalf("response = %+v, want error type", resp)
	}

	logs, _ := repo.Request().GetRequestLogs(ctx, 10)
	if len(logs) != 1 || logs[0].Status != "panic" {
		t.Fatalf("request logs = %+v, want one panic entry", logs)
	}
	if logs[0].Output != "[CRASHED]" {
		t.Errorf("output = %q, want [CRASHED]", logs[0].Output)
	}

	found := false
	for _, code := range repo.EventCodes() {
		if code == "worker_panic" {
			found = true
		}
	}
	if !found {
		t.Error("worker_panic event should be logged")
	}
}

func TestStatusShape(t *testing.T) {
	svc, _ := newTestNucleusService()

	status := svc.Status()
	if status["system"] != "RazonbilstroOS Nucleus API" {
		t.Errorf("system = %v", status["system"])
	}
	if status["version"] != "4.1" {
		t.Errorf("version = %v, want 4.1", status["version"])
	}
	if status["tty_active"] != false {
		t.Errorf("tty_active = %v, want false for unstarted shell", status["tty_active"])
	}

	perms, ok := status["permissions"].(map[string]bool)
	if !ok {
		t.Fatalf("permissions missing: %v", status["permissions"])
	}
	for _, name := range []string{"microphone", "camera", "display", "files", "network", "system"} {
		if _, present := perms[name]; !present {
			t.Errorf("permission %s missing", name)
		}
	}
	if !perms["display"] || !perms["files"] {
		t.Error("display and files should always be available")
	}
}

func TestSnapshotCounters(t *testing.T) {
	svc, _ := newTestNucleusService()
	ctx := context.Background()

	svc.ProcessChat(ctx, NucleusRequest{ReqID: "a", Input: "hola"}, "test", "w")
	svc.ProcessChat(ctx, NucleusRequest{ReqID: "b", Input: "adios"}, "test", "w")
	svc.ProcessExecute(ctx, NucleusRequest{ReqID: "c", Input: "ls"}, "test", "w")

	requests, errors, avg := svc.Snapshot()
	if requests != 3 {
		t.Errorf("requests = %d, want 3", requests)
	}
	if errors != 1 {
		t.Errorf("errors = %d, want 1 from the inactive TTY", errors)
	}
	if avg < 0 {
		t.Errorf("avg processing = %f, want non-negative", avg)
	}
}
