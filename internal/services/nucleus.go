package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/dialog"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
	"github.com/razonbilstro/nucleus-service/internal/tty"
)

// Operation names carried on NATS subjects and request logs.
const (
	OpChat    = "chat"
	OpExecute = "execute"
	OpProcess = "process"
)

type NucleusRequest struct {
	ReqID   string `json:"req_id"`
	Input   string `json:"input"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type NucleusResponse struct {
	ReqID      string             `json:"req_id"`
	Operation  string             `json:"operation"`
	Type       string             `json:"type"` // conversation, command, process, error
	Text       string             `json:"text"`
	Confidence float64            `json:"confidence,omitempty"`
	TokenCount int                `json:"token_count,omitempty"`
	Execution  *tty.ExecuteResult `json:"execution,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
}

// NucleusService routes free text through the TTY nucleus and the
// conversational network, logging every request and its query history.
type NucleusService struct {
	cfg        *config.Config
	repo       repository.Repository
	network    *neural.Network
	tok        *tokenizer.Tokenizer
	nucleus    *tty.Nucleus
	monitoring *MonitoringService

	requestCount int64 // atomic
	errorCount   int64 // atomic
	totalMs      int64 // atomic, accumulated processing duration
}

func NewNucleusService(cfg *config.Config, repo repository.Repository, network *neural.Network, tok *tokenizer.Tokenizer, nucleus *tty.Nucleus) *NucleusService {
	return &NucleusService{
		cfg:     cfg,
		repo:    repo,
		network: network,
		tok:     tok,
		nucleus: nucleus,
	}
}

// AttachMonitoring wires the backpressure counters into every operation,
// whichever transport it arrived on.
func (s *NucleusService) AttachMonitoring(m *MonitoringService) {
	s.monitoring = m
}

// ProcessChat classifies the message as command or conversation and
// answers accordingly.
func (s *NucleusService) ProcessChat(ctx context.Context, req NucleusRequest, source, workerID string) (*NucleusResponse, error) {
	return s.processOperation(ctx, OpChat, req, source, workerID)
}

// ProcessExecute runs the input as a shell command on the TTY nucleus.
func (s *NucleusService) ProcessExecute(ctx context.Context, req NucleusRequest, source, workerID string) (*NucleusResponse, error) {
	return s.processOperation(ctx, OpExecute, req, source, workerID)
}

// ProcessProcess runs the full pipeline: tokenize, binarize, forward pass
// through the network, confidence-scored template response.
func (s *NucleusService) ProcessProcess(ctx context.Context, req NucleusRequest, source, workerID string) (*NucleusResponse, error) {
	return s.processOperation(ctx, OpProcess, req, source, workerID)
}

func (s *NucleusService) processOperation(ctx context.Context, op string, req NucleusRequest, source, workerID string) (response *NucleusResponse, err error) {
	start := time.Now()

	if s.monitoring != nil {
		s.monitoring.WorkStarted()
		defer s.monitoring.WorkFinished()
	}

	// Service-level crash recovery: a panicking worker answers with an
	// error reply instead of dying.
	defer func() {
		if r := recover(); r != nil {
			duration := time.Since(start)
			errStr := fmt.Sprintf("service panic: %v", r)

			panicLog := &models.RequestLog{
				Timestamp:  start,
				RequestID:  req.ReqID,
				Source:     source,
				Operation:  op,
				Input:      req.Input,
				Output:     "[CRASHED]",
				Status:     "panic",
				Error:      errStr,
				DurationMs: float64(duration.Milliseconds()),
				WorkerID:   workerID,
			}
			s.repo.Request().LogRequest(ctx, panicLog)
			s.repo.Event().LogEvent(ctx, "error", "worker_panic", errStr, map[string]interface{}{
				"operation": op,
				"req_id":    req.ReqID,
			})
			s.countRequest(duration, true)

			response = &NucleusResponse{
				ReqID:      req.ReqID,
				Operation:  op,
				Type:       "error",
				DurationMs: duration.Milliseconds(),
				Error:      errStr,
			}
			err = fmt.Errorf("service panic: %v", r)
		}
	}()

	switch op {
	case OpChat:
		response = s.runChat(req)
	case OpExecute:
		response = s.runExecute(req)
	case OpProcess:
		response = s.runProcess(req)
	default:
		return nil, fmt.Errorf("invalid operation: %s", op)
	}

	duration := time.Since(start)
	response.DurationMs = duration.Milliseconds()

	status := "ok"
	if response.Error != "" {
		status = "error"
	}

	requestLog := &models.RequestLog{
		Timestamp:  start,
		RequestID:  req.ReqID,
		Source:     source,
		Operation:  op,
		Input:      req.Input,
		Output:     response.Text,
		Status:     status,
		Error:      response.Error,
		DurationMs: float64(duration.Milliseconds()),
		WorkerID:   workerID,
	}
	s.repo.Request().LogRequest(ctx, requestLog)

	s.repo.Queries().LogQuery(ctx, &models.QueryHistory{
		QueryText:         req.Input,
		DomainUsed:        response.Type,
		ResponseGenerated: response.Text,
		ConfidenceScore:   response.Confidence,
		ExecutionTime:     duration.Seconds(),
		Timestamp:         start,
	})
	s.countRequest(duration, status != "ok")

	return response, nil
}

func (s *NucleusService) countRequest(duration time.Duration, failed bool) {
	atomic.AddInt64(&s.requestCount, 1)
	atomic.AddInt64(&s.totalMs, duration.Milliseconds())
	if failed {
		atomic.AddInt64(&s.errorCount, 1)
	}
}

// Snapshot reports cumulative request counters for the perception loop's
// self-assessment factor.
func (s *NucleusService) Snapshot() (requests, errors int64, avgProcessingMs float64) {
	requests = atomic.LoadInt64(&s.requestCount)
	errors = atomic.LoadInt64(&s.errorCount)
	if requests > 0 {
		avgProcessingMs = float64(atomic.LoadInt64(&s.totalMs)) / float64(requests)
	}
	return requests, errors, avgProcessingMs
}

func (s *NucleusService) runChat(req NucleusRequest) *NucleusResponse {
	result := s.nucleus.ProcessInput(req.Input)

	resp := &NucleusResponse{
		ReqID:     req.ReqID,
		Operation: OpChat,
		Type:      result.Type,
	}
	if result.Execution != nil {
		resp.Execution = result.Execution
		resp.Text = result.Execution.Output
		if !result.Execution.Success {
			resp.Error = result.Execution.Error
		}
	} else {
		resp.Text = result.Response
	}
	return resp
}

func (s *NucleusService) runExecute(req NucleusRequest) *NucleusResponse {
	result := s.nucleus.ExecuteCommand(req.Input)

	resp := &NucleusResponse{
		ReqID:     req.ReqID,
		Operation: OpExecute,
		Type:      "command",
		Text:      result.Output,
		Execution: &result,
	}
	if !result.Success {
		resp.Error = result.Error
	}
	return resp
}

func (s *NucleusService) runProcess(req NucleusRequest) *NucleusResponse {
	tokens := s.tok.Tokenize(req.Input)
	binary := tokenizer.BinarizeInt8(tokens)

	inputs := make([]float64, s.network.InputSize())
	for i := 0; i < len(inputs) && i < len(binary); i++ {
		inputs[i] = float64(binary[i]) / 255.0
	}

	outputs := s.network.Forward(inputs)
	maxIndex := 0
	for i, v := range outputs {
		if v > outputs[maxIndex] {
			maxIndex = i
		}
	}
	confidence := outputs[maxIndex]

	topic := "your question"
	if words := strings.Fields(strings.TrimSpace(req.Input)); len(words) > 0 {
		if len(words) > 3 {
			words = words[:3]
		}
		topic = strings.Join(words, " ")
	}

	return &NucleusResponse{
		ReqID:      req.ReqID,
		Operation:  OpProcess,
		Type:       "process",
		Text:       dialog.FormatResponse(maxIndex, topic, confidence),
		Confidence: confidence,
		TokenCount: len(tokens),
	}
}

// Status reports the identity block served on /api/v1/status. The
// permission catalog is probed live; display and files are always
// reachable from the service's own process.
func (s *NucleusService) Status() map[string]interface{} {
	perms := tty.CheckPermissions()
	return map[string]interface{}{
		"system":     "RazonbilstroOS Nucleus API",
		"version":    s.cfg.Version,
		"tty_active": s.nucleus.Active(),
		"permissions": map[string]bool{
			"microphone": perms.IsRoot || perms.HasGroup("microphone"),
			"camera":     perms.IsRoot || perms.HasGroup("camera"),
			"display":    true,
			"files":      true,
			"network":    true,
			"system":     perms.IsRoot || perms.SudoAvailable,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// TTYActive reports whether the shell behind the nucleus is running.
func (s *NucleusService) TTYActive() bool {
	return s.nucleus.Active()
}

// Reset stops and restarts the TTY shell.
func (s *NucleusService) Reset(ctx context.Context) error {
	s.nucleus.Stop()
	if err := s.nucleus.Start(); err != nil {
		s.repo.Event().LogEvent(ctx, "error", "tty_restart_failed", err.Error(), nil)
		return fmt.Errorf("failed to restart TTY: %w", err)
	}
	s.repo.Event().LogEvent(ctx, "info", "tty_restarted", "TTY nucleus restarted", nil)
	return nil
}

// GetRequestLogs retrieves recent request logs for the /logs endpoint.
func (s *NucleusService) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	return s.repo.Request().GetRequestLogs(ctx, limit)
}

// GetRepository returns the repository for use by other services.
func (s *NucleusService) GetRepository() repository.Repository {
	return s.repo
}
