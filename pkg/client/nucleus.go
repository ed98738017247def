package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// NucleusClient provides a client interface for the nucleus service
type NucleusClient interface {
	// Nucleus operations
	Chat(ctx context.Context, input string) (*NucleusResponse, error)
	Execute(ctx context.Context, command string) (*NucleusResponse, error)
	Process(ctx context.Context, input string) (*NucleusResponse, error)

	// Health and discovery
	Status(ctx context.Context, service string) (*HealthStatus, error)
	DiscoverServices(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

// NATSNucleusClient implements NucleusClient using NATS
type NATSNucleusClient struct {
	conn     *nats.Conn
	clientID string
	timeout  time.Duration
}

// NewNATSClient creates a new NATS-based nucleus client
func NewNATSClient(natsURL, clientID string) (NucleusClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if clientID == "" {
		clientID = "nucleus-client"
	}

	return &NATSNucleusClient{
		conn:     conn,
		clientID: clientID,
		timeout:  30 * time.Second,
	}, nil
}

// Chat sends free text; the nucleus decides between command and
// conversation.
func (c *NATSNucleusClient) Chat(ctx context.Context, input string) (*NucleusResponse, error) {
	return c.sendOperation(ctx, "chat", input)
}

// Execute runs input as a shell command on the remote TTY.
func (c *NATSNucleusClient) Execute(ctx context.Context, command string) (*NucleusResponse, error) {
	return c.sendOperation(ctx, "execute", command)
}

// Process routes input through the full tokenize-and-infer pipeline.
func (c *NATSNucleusClient) Process(ctx context.Context, input string) (*NucleusResponse, error) {
	return c.sendOperation(ctx, "process", input)
}

// sendOperation publishes to nucleus.requests.<op> and waits on a
// per-request reply subject. Subscribe happens before publish so the
// worker's response cannot race past us.
func (c *NATSNucleusClient) sendOperation(ctx context.Context, op, input string) (*NucleusResponse, error) {
	topic := fmt.Sprintf("nucleus.requests.%s", op)

	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("nucleus.response.%s.%s", c.clientID, reqID)

	request := NucleusRequest{
		ReqID:   reqID,
		Input:   input,
		ReplyTo: replySubject,
	}

	slog.Debug("Sending nucleus request",
		"topic", topic,
		"req_id", reqID,
		"reply_subject", replySubject)

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	if err := c.conn.Publish(topic, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	slog.Debug("Published request, waiting for reply", "reply_subject", replySubject)

	select {
	case msg := <-replyChan:
		slog.Debug("Received response",
			"req_id", reqID,
			"response_size", len(msg.Data))

		var response NucleusResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		return &response, nil

	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status asks one service for its health status. The health endpoint
// answers on the request's reply inbox, so this uses a plain NATS
// request.
func (c *NATSNucleusClient) Status(ctx context.Context, service string) (*HealthStatus, error) {
	healthTopic := fmt.Sprintf("nucleus.%s.health", service)

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, healthTopic, []byte("{}"))
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var health HealthStatus
	if err := json.Unmarshal(msg.Data, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

// DiscoverServices lists nucleus services known to the monitor.
func (c *NATSNucleusClient) DiscoverServices(ctx context.Context) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, "nucleus.discovery", []byte("{}"))
	if err != nil {
		// Fallback to static list when no monitor answers
		return []string{"razonbilstro-nucleus"}, nil
	}

	var response map[string]interface{}
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse discovery response: %w", err)
	}

	if services, ok := response["services"].([]interface{}); ok {
		names := make([]string, 0, len(services))
		for _, service := range services {
			if name, ok := service.(string); ok {
				names = append(names, name)
			}
		}
		return names, nil
	}

	// Fallback to static list if discovery format is unexpected
	return []string{"razonbilstro-nucleus"}, nil
}

// Close closes the NATS connection
func (c *NATSNucleusClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// SetTimeout configures request timeout
func (c *NATSNucleusClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}
