package neural

import (
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"github.com/razonbilstro/nucleus-service/internal/dialog"
)

const (
	networkInputSize  = 10
	networkOutputSize = 5
	networkMemorySize = 5

	networkLearningRate = 0.01
)

// Activation names a transfer function for the conversational network.
type Activation string

const (
	ActivationSigmoid Activation = "sigmoid"
	ActivationTanh    Activation = "tanh"
	ActivationRelu    Activation = "relu"
)

// Network is the small conversational model behind the chat path. It maps
// a 10-wide character encoding to five response classes and keeps a short
// memory of recent exchanges for topic extraction.
type Network struct {
	inputSize  int
	outputSize int
	lr         float64
	activation Activation

	weights [][]float64
	bias    []float64

	lastInputs  []float64
	weightedSum []float64
	outputs     []float64

	errorHistory []float64
	epochCount   int

	memory []string
}

func NewNetwork(activation Activation) *Network {
	switch activation {
	case ActivationSigmoid, ActivationTanh, ActivationRelu:
	default:
		slog.Warn("Unknown activation function, using sigmoid", "activation", string(activation))
		activation = ActivationSigmoid
	}

	n := &Network{
		inputSize:  networkInputSize,
		outputSize: networkOutputSize,
		lr:         networkLearningRate,
		activation: activation,
		weights:    make([][]float64, networkInputSize),
		bias:       make([]float64, networkOutputSize),
	}
	for i := range n.weights {
		n.weights[i] = make([]float64, networkOutputSize)
		for j := range n.weights[i] {
			n.weights[i][j] = rand.NormFloat64() * 0.1
		}
	}
	for j := range n.bias {
		n.bias[j] = rand.NormFloat64() * 0.1
	}
	return n
}

func (n *Network) Activation() Activation { return n.activation }

// InputSize returns the encoding width the network expects.
func (n *Network) InputSize() int { return n.inputSize }

// Forward runs the input through the network and keeps the intermediate
// state for a following Backward call.
func (n *Network) Forward(inputs []float64) []float64 {
	n.lastInputs = inputs
	n.weightedSum = make([]float64, n.outputSize)
	n.outputs = make([]float64, n.outputSize)
	for j := 0; j < n.outputSize; j++ {
		sum := n.bias[j]
		for i := 0; i < n.inputSize && i < len(inputs); i++ {
			sum += inputs[i] * n.weights[i][j]
		}
		n.weightedSum[j] = sum
		n.outputs[j] = n.activate(sum)
	}
	return n.outputs
}

// Backward updates weights toward the targets using the state of the last
// Forward call and returns the mean squared error.
func (n *Network) Backward(targets []float64) float64 {
	var mse float64
	for j := 0; j < n.outputSize; j++ {
		var target float64
		if j < len(targets) {
			target = targets[j]
		}
		errJ := target - n.outputs[j]
		delta := errJ * n.derivative(n.weightedSum[j])
		for i := 0; i < n.inputSize && i < len(n.lastInputs); i++ {
			n.weights[i][j] += n.lr * n.lastInputs[i] * delta
		}
		n.bias[j] += n.lr * delta
		mse += errJ * errJ
	}
	return mse / float64(n.outputSize)
}

// Train runs sample-by-sample gradient updates and returns the per-epoch
// average error history.
func (n *Network) Train(inputs [][]float64, targets [][]float64, epochs int) []float64 {
	n.errorHistory = n.errorHistory[:0]
	for epoch := 0; epoch < epochs; epoch++ {
		var total float64
		for i := range inputs {
			n.Forward(inputs[i])
			total += n.Backward(targets[i])
		}
		avg := total / float64(len(inputs))
		n.errorHistory = append(n.errorHistory, avg)
		n.epochCount++

		if epoch%100 == 0 || epoch == epochs-1 {
			slog.Debug("Network training", "epoch", epoch+1, "epochs", epochs, "error", avg)
		}
	}
	return n.errorHistory
}

// EncodeText normalizes the first ten characters of text into the input range.
func (n *Network) EncodeText(text string) []float64 {
	encoded := make([]float64, n.inputSize)
	for i, r := range []rune(strings.ToLower(text)) {
		if i >= n.inputSize {
			break
		}
		encoded[i] = float64(r) / 255.0
	}
	return encoded
}

// ProcessInput records the input in memory, runs a forward pass and
// renders the highest-activation response template.
func (n *Network) ProcessInput(text string) string {
	n.memory = append(n.memory, text)
	if len(n.memory) > networkMemorySize {
		n.memory = n.memory[1:]
	}

	outputs := n.Forward(n.EncodeText(text))

	maxIndex := 0
	for j, v := range outputs {
		if v > outputs[maxIndex] {
			maxIndex = j
		}
	}

	topic := "your question"
	if len(n.memory) > 0 {
		words := strings.Fields(n.memory[len(n.memory)-1])
		if len(words) > 3 {
			words = words[:3]
		}
		if len(words) > 0 {
			topic = strings.Join(words, " ")
		}
	}

	return dialog.FormatResponse(maxIndex, topic, outputs[maxIndex])
}

// Memory returns the retained recent inputs, oldest first.
func (n *Network) Memory() []string { return n.memory }

func (n *Network) activate(x float64) float64 {
	switch n.activation {
	case ActivationTanh:
		return math.Tanh(x)
	case ActivationRelu:
		return math.Max(0, x)
	default:
		return sigmoid(x)
	}
}

func (n *Network) derivative(x float64) float64 {
	switch n.activation {
	case ActivationTanh:
		t := math.Tanh(x)
		return 1 - t*t
	case ActivationRelu:
		if x > 0 {
			return 1
		}
		return 0
	default:
		s := sigmoid(x)
		return s * (1 - s)
	}
}
