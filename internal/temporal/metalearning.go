package temporal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MetaLearning coordinates temporal node lifecycles: one live node per
// coordinator, created for a training session and destroyed afterward.
// Destruction extracts the node's legacy and persists the session file.
type MetaLearning struct {
	mu         sync.Mutex
	node       *Neuron
	sessionDir string
}

// NewMetaLearning creates a coordinator writing session files to sessionDir.
// An empty sessionDir disables persistence.
func NewMetaLearning(sessionDir string) *MetaLearning {
	return &MetaLearning{sessionDir: sessionDir}
}

// CreateTemporalNode starts a new session node. A still-live previous node
// is destroyed first so only one node exists at a time.
func (m *MetaLearning) CreateTemporalNode(sessionID string, kind Kind) *Neuron {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.node != nil && m.node.IsActive() {
		slog.Warn("Destroying live temporal node before creating a new one",
			"session_id", m.node.SessionID())
		if _, err := m.destroyLocked(); err != nil {
			slog.Warn("Failed to destroy previous temporal node", "error", err)
		}
	}

	node := NewNeuron(sessionID, kind)
	m.node = node

	slog.Info("Temporal node created",
		"session_id", sessionID,
		"node_id", node.NodeID(),
		"kind", string(kind))
	return node
}

// Node returns the current node, live or not. Nil before the first session.
func (m *MetaLearning) Node() *Neuron {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node
}

// DestroyTemporalNode deactivates the live node, writes the session file
// and returns the extracted legacy.
func (m *MetaLearning) DestroyTemporalNode() (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyLocked()
}

func (m *MetaLearning) destroyLocked() (map[string]interface{}, error) {
	if m.node == nil || !m.node.IsActive() {
		return nil, fmt.Errorf("temporal node already destroyed or not available")
	}

	node := m.node
	destroyed := time.Now()
	successful, failed, optimizations := node.ExperienceCounts()

	legacy := map[string]interface{}{
		"session_id":       node.SessionID(),
		"node_id":          node.NodeID(),
		"created_at":       node.CreationTime().Unix(),
		"destroyed_at":     destroyed.Unix(),
		"lifetime_seconds": destroyed.Sub(node.CreationTime()).Seconds(),
		"total_experiences": map[string]int{
			"successful":    successful,
			"failed":        failed,
			"optimizations": optimizations,
		},
		"metacompiler_state": node.MetacompilerState(),
		"observations":       node.ObservationCount(),
	}

	node.deactivate()

	if err := m.writeSessionFile(node, destroyed, legacy); err != nil {
		slog.Warn("Failed to write temporal session file",
			"session_id", node.SessionID(), "error", err)
	}

	slog.Info("Temporal node destroyed",
		"session_id", node.SessionID(),
		"successful", successful,
		"failed", failed,
		"optimizations", optimizations)
	return legacy, nil
}

func (m *MetaLearning) writeSessionFile(node *Neuron, destroyed time.Time, legacy map[string]interface{}) error {
	if m.sessionDir == "" {
		return nil
	}
	if err := os.MkdirAll(m.sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	successful, failed, optimizations := node.ExperienceCounts()
	record := map[string]interface{}{
		"session_id":   node.SessionID(),
		"node_id":      node.NodeID(),
		"created_at":   node.CreationTime().Unix(),
		"destroyed_at": destroyed.Unix(),
		"experience_counts": map[string]int{
			"successful":    successful,
			"failed":        failed,
			"optimizations": optimizations,
		},
		"epoch_scores": node.EpochScores(),
		"legacy":       legacy,
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	path := filepath.Join(m.sessionDir, node.SessionID()+".json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	slog.Info("Temporal session preserved", "path", path)
	return nil
}
