package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/razonbilstro/nucleus-service/internal/config"
)

// NATSService consumes nucleus requests from a JetStream work queue and
// answers them through the shared NucleusService.
type NATSService struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	nucleus    *NucleusService
	cfg        *config.Config
	monitoring *MonitoringService
}

func NewNATSService(cfg *config.Config, nucleus *NucleusService) (*NATSService, error) {
	conn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSService{
		conn:       conn,
		js:         js,
		nucleus:    nucleus,
		cfg:        cfg,
		monitoring: NewMonitoringService(conn, cfg),
	}, nil
}

// GetConnection exposes the NATS connection for sibling services.
func (s *NATSService) GetConnection() *nats.Conn {
	return s.conn
}

// GetMonitoringService exposes the backpressure counters shared with the
// HTTP layer.
func (s *NATSService) GetMonitoringService() *MonitoringService {
	return s.monitoring
}

func (s *NATSService) Start(ctx context.Context) error {
	if err := s.ensureStream(); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	consumer, err := s.pullConsumer()
	if err != nil {
		return err
	}

	slog.Info("NATS service starting",
		"stream", s.cfg.Stream,
		"subject", s.cfg.Subject,
		"consumer", s.cfg.Durable,
		"concurrency", s.cfg.Concurrency)

	go s.monitoring.Start(ctx)

	for i := 0; i < s.cfg.Concurrency; i++ {
		go s.worker(ctx, consumer, workerName(i))
	}

	<-ctx.Done()
	slog.Info("NATS service shutting down")

	s.conn.Close()
	return nil
}

// workerName builds an id unique across restarts, so request logs from
// old incarnations stay distinguishable.
func workerName(n int) string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return fmt.Sprintf("nucleus-w%d-%s", n, hex.EncodeToString(suffix))
}

// ensureStream creates the work-queue stream on first start and adds the
// request subject to an existing stream that lacks it.
func (s *NATSService) ensureStream() error {
	info, err := s.js.StreamInfo(s.cfg.Stream)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:      s.cfg.Stream,
			Subjects:  []string{s.cfg.Subject},
			MaxMsgs:   int64(s.cfg.MaxMsgs),
			MaxAge:    s.cfg.MaxAge,
			Storage:   nats.FileStorage,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		slog.Info("Created NATS stream", "name", s.cfg.Stream)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	for _, subject := range info.Config.Subjects {
		if subject == s.cfg.Subject {
			slog.Info("NATS stream already exists", "name", s.cfg.Stream, "messages", info.State.Msgs)
			return nil
		}
	}

	updated := info.Config
	updated.Subjects = append(updated.Subjects, s.cfg.Subject)
	if _, err := s.js.UpdateStream(&updated); err != nil {
		return fmt.Errorf("failed to update stream with new subject: %w", err)
	}
	slog.Info("Updated NATS stream with new subject", "name", s.cfg.Stream, "subject", s.cfg.Subject)
	return nil
}

func (s *NATSService) pullConsumer() (*nats.Subscription, error) {
	sub, err := s.js.PullSubscribe(s.cfg.Subject, s.cfg.Durable,
		nats.ManualAck(),
		nats.AckWait(s.cfg.AckWait),
		nats.MaxDeliver(s.cfg.MaxDeliver),
		nats.MaxAckPending(s.cfg.MaxAckPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull consumer: %w", err)
	}

	slog.Info("Created NATS consumer", "durable", s.cfg.Durable)
	return sub, nil
}

func (s *NATSService) worker(ctx context.Context, consumer *nats.Subscription, workerID string) {
	slog.Info("NATS worker starting", "worker_id", workerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("NATS worker shutting down", "worker_id", workerID)
			return
		default:
		}

		msgs, err := consumer.Fetch(1, nats.MaxWait(time.Second))
		if errors.Is(err, nats.ErrTimeout) {
			continue
		}
		if err != nil {
			slog.Error("Failed to fetch messages", "worker_id", workerID, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			s.monitoring.MessageQueued()
			s.dispatch(ctx, msg, workerID)
			s.monitoring.MessageDequeued()
		}
	}
}

// operationFromSubject maps a request subject to its nucleus operation.
// Unsuffixed subjects fall back to chat.
func operationFromSubject(subject string) string {
	switch {
	case strings.HasSuffix(subject, "."+OpExecute):
		return OpExecute
	case strings.HasSuffix(subject, "."+OpProcess):
		return OpProcess
	default:
		return OpChat
	}
}

// dispatch parses one queued message, runs it through the nucleus and
// replies on the subject named in the payload. Unparseable requests are
// Nak'd for redelivery; processed messages are always acked, the error
// travels inside the reply.
func (s *NATSService) dispatch(ctx context.Context, msg *nats.Msg, workerID string) {
	start := time.Now()
	op := operationFromSubject(msg.Subject)

	var req NucleusRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error("Failed to parse nucleus request",
			"worker_id", workerID,
			"subject", msg.Subject,
			"error", err)
		msg.Nak()
		return
	}

	slog.Debug("Processing NATS nucleus request",
		"worker_id", workerID,
		"req_id", req.ReqID,
		"operation", op,
		"subject", msg.Subject)

	source := "nats." + msg.Subject

	var response *NucleusResponse
	var err error
	switch op {
	case OpExecute:
		response, err = s.nucleus.ProcessExecute(ctx, req, source, workerID)
	case OpProcess:
		response, err = s.nucleus.ProcessProcess(ctx, req, source, workerID)
	default:
		response, err = s.nucleus.ProcessChat(ctx, req, source, workerID)
	}

	s.reply(req, response, workerID)

	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("Failed to acknowledge message",
			"worker_id", workerID,
			"req_id", req.ReqID,
			"error", ackErr)
	}

	duration := time.Since(start)
	if err != nil {
		slog.Error("NATS nucleus request failed",
			"worker_id", workerID,
			"req_id", req.ReqID,
			"operation", op,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return
	}
	slog.Info("NATS nucleus request completed",
		"worker_id", workerID,
		"req_id", req.ReqID,
		"operation", op,
		"type", response.Type,
		"duration_ms", duration.Milliseconds())
}

// reply publishes the response to the payload's reply subject, when one
// was provided.
func (s *NATSService) reply(req NucleusRequest, response *NucleusResponse, workerID string) {
	if req.ReplyTo == "" || response == nil {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal nucleus reply",
			"worker_id", workerID,
			"req_id", req.ReqID,
			"error", err)
		return
	}

	if err := s.conn.Publish(req.ReplyTo, data); err != nil {
		slog.Error("Failed to publish nucleus reply",
			"worker_id", workerID,
			"req_id", req.ReqID,
			"reply_subject", req.ReplyTo,
			"error", err)
	}
}
