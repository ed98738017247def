package neural

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewNetworkUnknownActivation(t *testing.T) {
	n := NewNetwork("softmax")
	if n.Activation() != ActivationSigmoid {
		t.Errorf("Unknown activation should fall back to sigmoid, got %s", n.Activation())
	}
}

func TestNetworkForwardShape(t *testing.T) {
	n := NewNetwork(ActivationSigmoid)
	out := n.Forward(n.EncodeText("hola nucleo"))

	if len(out) != networkOutputSize {
		t.Fatalf("Expected %d outputs, got %d", networkOutputSize, len(out))
	}
	for i, v := range out {
		if v <= 0 || v >= 1 {
			t.Errorf("Sigmoid output %d out of range: %f", i, v)
		}
	}
}

func TestNetworkTrainReducesError(t *testing.T) {
	n := NewNetwork(ActivationSigmoid)

	inputs := [][]float64{
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.0},
		{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
	}
	targets := [][]float64{
		{1, 0, 0, 0, 0},
		{0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0},
	}

	history := n.Train(inputs, targets, 300)
	if len(history) != 300 {
		t.Fatalf("Expected 300 history entries, got %d", len(history))
	}
	if history[len(history)-1] >= history[0] {
		t.Errorf("Training error should decrease: first %f, last %f", history[0], history[len(history)-1])
	}
}

func TestEncodeText(t *testing.T) {
	n := NewNetwork(ActivationSigmoid)
	encoded := n.EncodeText("AB")

	if len(encoded) != networkInputSize {
		t.Fatalf("Expected %d dims, got %d", networkInputSize, len(encoded))
	}
	// Lowercased before encoding: 'a' is 97
	if encoded[0] != 97.0/255.0 {
		t.Errorf("Expected %f, got %f", 97.0/255.0, encoded[0])
	}
	if encoded[2] != 0 {
		t.Errorf("Short input should pad with zeros, got %f", encoded[2])
	}
}

func TestProcessInputUsesTemplates(t *testing.T) {
	n := NewNetwork(ActivationSigmoid)

	response := n.ProcessInput("como funciona la red neuronal")
	if response == "" {
		t.Fatal("Expected a response")
	}
	// Topic comes from the first three words of the latest input
	if !strings.Contains(response, "como funciona la") {
		t.Errorf("Response should reference the topic: %q", response)
	}
}

func TestProcessInputMemoryWindow(t *testing.T) {
	n := NewNetwork(ActivationSigmoid)
	for i := 0; i < 8; i++ {
		n.ProcessInput(strings.Repeat("x", i+1))
	}

	mem := n.Memory()
	if len(mem) != networkMemorySize {
		t.Fatalf("Memory should hold %d entries, got %d", networkMemorySize, len(mem))
	}
	if mem[len(mem)-1] != strings.Repeat("x", 8) {
		t.Errorf("Latest input should be last in memory, got %q", mem[len(mem)-1])
	}
}

func TestSaveAndLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", "nucleus.json")

	n := NewNetwork(ActivationTanh)
	inputs := [][]float64{{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}}
	targets := [][]float64{{1, 0, 0, 0, 0}}
	n.Train(inputs, targets, 20)

	if err := SaveModel(n, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading model file failed: %v", err)
	}
	for _, key := range []string{"\"metadata\"", "\"config\"", "\"weights\"", "\"bias\"", "\"error_history\""} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("Model file missing %s", key)
		}
	}

	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if loaded.Activation() != ActivationTanh {
		t.Errorf("Activation not restored, got %s", loaded.Activation())
	}
	if loaded.epochCount != 20 {
		t.Errorf("Epoch count not restored, got %d", loaded.epochCount)
	}
	if len(loaded.errorHistory) > 10 {
		t.Errorf("Saved history should keep at most 10 entries, got %d", len(loaded.errorHistory))
	}

	// Predictions must match after a round trip
	before := n.Forward(inputs[0])
	after := loaded.Forward(inputs[0])
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Prediction %d differs after reload: %f vs %f", i, before[i], after[i])
		}
	}
}

func TestLoadOrNewFallback(t *testing.T) {
	n := LoadOrNew(filepath.Join(t.TempDir(), "missing.json"), ActivationRelu)
	if n == nil {
		t.Fatal("LoadOrNew should always return a network")
	}
	if n.Activation() != ActivationRelu {
		t.Errorf("Fresh network should use the requested activation, got %s", n.Activation())
	}
}
