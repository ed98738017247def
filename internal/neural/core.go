package neural

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	// CoreInputSize is the width of a training vector: the semantic
	// half and the command half, each padded to CoreHalfSize.
	CoreInputSize = 100
	CoreHalfSize  = CoreInputSize / 2

	coreLearningRate = 0.001
)

// Core is the sigmoid regression head trained on encoded dataset records.
// It maps a 100-wide int8 feature vector to a normalized complexity score.
type Core struct {
	weights []float64
	bias    float64
	lr      float64
}

func NewCore() *Core {
	c := &Core{
		weights: make([]float64, CoreInputSize),
		lr:      coreLearningRate,
	}
	for i := range c.weights {
		c.weights[i] = (rand.Float64() - 0.5) * 0.02
	}
	return c
}

// InputVector builds a training vector from the semantic and command
// int8 encodings, padding or truncating each half to CoreHalfSize.
func InputVector(semantic, command []int) []float64 {
	v := make([]float64, CoreInputSize)
	for i := 0; i < CoreHalfSize && i < len(semantic); i++ {
		v[i] = float64(semantic[i])
	}
	for i := 0; i < CoreHalfSize && i < len(command); i++ {
		v[CoreHalfSize+i] = float64(command[i])
	}
	return v
}

// ComplexityTarget normalizes a complexity score into the [0,1] target range.
func ComplexityTarget(score int) float64 {
	return math.Min(float64(score)/100.0, 1.0)
}

// Forward runs a single prediction.
func (c *Core) Forward(input []float64) float64 {
	sum := c.bias
	for i := 0; i < len(c.weights) && i < len(input); i++ {
		sum += input[i] * c.weights[i]
	}
	return sigmoid(sum)
}

// TrainBatch runs one gradient step over the batch and returns the mean
// squared error and the accuracy, 1 - mean(|prediction - target|),
// clipped at zero.
func (c *Core) TrainBatch(inputs [][]float64, targets []float64) (loss, accuracy float64, err error) {
	if len(inputs) == 0 {
		return 0, 0, fmt.Errorf("empty batch")
	}
	if len(inputs) != len(targets) {
		return 0, 0, fmt.Errorf("batch size mismatch: %d inputs, %d targets", len(inputs), len(targets))
	}

	n := float64(len(inputs))
	errors := make([]float64, len(inputs))
	for i, input := range inputs {
		pred := c.Forward(input)
		diff := pred - targets[i]
		errors[i] = diff
		loss += diff * diff
		accuracy += math.Abs(diff)
	}
	loss /= n
	accuracy = 1.0 - accuracy/n

	gradW := make([]float64, len(c.weights))
	var gradB float64
	for i, input := range inputs {
		for j := 0; j < len(gradW) && j < len(input); j++ {
			gradW[j] += input[j] * errors[i]
		}
		gradB += errors[i]
	}
	for j := range c.weights {
		c.weights[j] -= c.lr * gradW[j] / n
	}
	c.bias -= c.lr * gradB / n

	return loss, math.Max(0.0, accuracy), nil
}

// Evaluate computes loss and accuracy over the batch without updating weights.
func (c *Core) Evaluate(inputs [][]float64, targets []float64) (loss, accuracy float64, err error) {
	if len(inputs) == 0 {
		return 0, 0, fmt.Errorf("empty batch")
	}
	if len(inputs) != len(targets) {
		return 0, 0, fmt.Errorf("batch size mismatch: %d inputs, %d targets", len(inputs), len(targets))
	}

	n := float64(len(inputs))
	for i, input := range inputs {
		diff := c.Forward(input) - targets[i]
		loss += diff * diff
		accuracy += math.Abs(diff)
	}
	loss /= n
	accuracy = math.Max(0.0, 1.0-accuracy/n)
	return loss, accuracy, nil
}

func sigmoid(x float64) float64 {
	if x > 500 {
		x = 500
	} else if x < -500 {
		x = -500
	}
	return 1.0 / (1.0 + math.Exp(-x))
}
