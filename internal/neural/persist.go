package neural

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type modelConfig struct {
	InputSize    int     `json:"input_size"`
	OutputSize   int     `json:"output_size"`
	LearningRate float64 `json:"learning_rate"`
	Activation   string  `json:"activation"`
	EpochCount   int     `json:"epoch_count"`
}

type modelFile struct {
	Metadata     map[string]string `json:"metadata"`
	Config       modelConfig       `json:"config"`
	Weights      [][]float64       `json:"weights"`
	Bias         []float64         `json:"bias"`
	ErrorHistory []float64         `json:"error_history"`
}

// SaveModel writes the network weights and configuration to a JSON file,
// keeping only the last ten entries of the error history.
func SaveModel(n *Network, path string) error {
	history := n.errorHistory
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	if history == nil {
		history = []float64{}
	}

	data := modelFile{
		Metadata: map[string]string{
			"name":        "Núcleo C.A- Razonbilstro",
			"version":     "1.0.0",
			"created":     time.Now().Format("2006-01-02 15:04:05"),
			"description": "Conversational neural model for the nucleus",
		},
		Config: modelConfig{
			InputSize:    n.inputSize,
			OutputSize:   n.outputSize,
			LearningRate: n.lr,
			Activation:   string(n.activation),
			EpochCount:   n.epochCount,
		},
		Weights:      n.weights,
		Bias:         n.bias,
		ErrorHistory: history,
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	slog.Info("Model saved", "path", path)
	return nil
}

// LoadModel reads a network back from a JSON model file.
func LoadModel(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var data modelFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if len(data.Weights) != data.Config.InputSize || len(data.Bias) != data.Config.OutputSize {
		return nil, fmt.Errorf("model dimensions do not match config: %dx%d weights, %d bias",
			len(data.Weights), data.Config.OutputSize, len(data.Bias))
	}

	n := NewNetwork(Activation(data.Config.Activation))
	n.inputSize = data.Config.InputSize
	n.outputSize = data.Config.OutputSize
	n.lr = data.Config.LearningRate
	n.epochCount = data.Config.EpochCount
	n.weights = data.Weights
	n.bias = data.Bias
	n.errorHistory = data.ErrorHistory

	slog.Info("Model loaded", "path", path, "epochs", n.epochCount)
	return n, nil
}

// LoadOrNew loads a saved model if one exists at path, otherwise returns a
// freshly initialized network.
func LoadOrNew(path string, activation Activation) *Network {
	if path == "" {
		return NewNetwork(activation)
	}
	if _, err := os.Stat(path); err != nil {
		slog.Info("No saved model found, initializing new network", "path", path)
		return NewNetwork(activation)
	}
	n, err := LoadModel(path)
	if err != nil {
		slog.Warn("Failed to load saved model, initializing new network", "path", path, "error", err)
		return NewNetwork(activation)
	}
	return n
}
