package temporal

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind selects the epoch score curve of an observer neuron.
type Kind string

const (
	KindMetacognitive Kind = "metacognitive"
	KindVision        Kind = "vision"
)

// Experience bins.
const (
	binSuccessful    = "successful_patterns"
	binFailed        = "failed_attempts"
	binOptimizations = "optimization_points"
)

// Metacompiler bins.
const (
	compilerLearning     = "learning_patterns"
	compilerCorrections  = "error_corrections"
	compilerDiscoveries  = "optimization_discoveries"
	compilerImprovements = "efficiency_improvements"
)

// Neuron is a session-scoped accumulator that observes a training run,
// compiles experiences into pattern bins and is destroyed at the end of
// the session, leaving only its extracted metadata behind.
type Neuron struct {
	mu sync.Mutex

	sessionID string
	nodeID    string
	kind      Kind
	created   time.Time
	active    bool

	experiences  map[string][]map[string]interface{}
	metacompiler map[string][]map[string]interface{}
	observations []map[string]interface{}
	epochScores  []float64
}

func NewNeuron(sessionID string, kind Kind) *Neuron {
	return &Neuron{
		sessionID: sessionID,
		nodeID:    uuid.NewString(),
		kind:      kind,
		created:   time.Now(),
		active:    true,
		experiences: map[string][]map[string]interface{}{
			binSuccessful:    {},
			binFailed:        {},
			binOptimizations: {},
		},
		metacompiler: map[string][]map[string]interface{}{
			compilerLearning:     {},
			compilerCorrections:  {},
			compilerDiscoveries:  {},
			compilerImprovements: {},
		},
	}
}

func (n *Neuron) SessionID() string     { return n.sessionID }
func (n *Neuron) NodeID() string        { return n.nodeID }
func (n *Neuron) Kind() Kind            { return n.kind }
func (n *Neuron) CreationTime() time.Time { return n.created }

func (n *Neuron) IsActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// Observe records a raw observation, typically per-batch metrics during
// a monitored run.
func (n *Neuron) Observe(experience map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return
	}
	n.observations = append(n.observations, experience)
}

// CompileExperience classifies an experience into the pattern bins and
// feeds the metacompiler. Successful experiences become learning patterns,
// failures become error corrections. Experiences carrying an optimization
// flag are additionally tracked as optimization discoveries.
func (n *Neuron) CompileExperience(name string, data map[string]interface{}, success bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return
	}

	entry := map[string]interface{}{
		"experience": name,
		"data":       data,
		"success":    success,
		"timestamp":  time.Now().Unix(),
	}

	if success {
		n.experiences[binSuccessful] = append(n.experiences[binSuccessful], entry)
		n.metacompiler[compilerLearning] = append(n.metacompiler[compilerLearning], map[string]interface{}{
			"pattern":     name,
			"compiled_at": entry["timestamp"],
		})
	} else {
		n.experiences[binFailed] = append(n.experiences[binFailed], entry)
		n.metacompiler[compilerCorrections] = append(n.metacompiler[compilerCorrections], map[string]interface{}{
			"correction":  name,
			"compiled_at": entry["timestamp"],
		})
	}

	if optimization, ok := data["optimization"].(bool); ok && optimization {
		n.experiences[binOptimizations] = append(n.experiences[binOptimizations], entry)
		n.metacompiler[compilerDiscoveries] = append(n.metacompiler[compilerDiscoveries], map[string]interface{}{
			"discovery":   name,
			"compiled_at": entry["timestamp"],
		})
	}

	// Every fifth successful compilation counts as an efficiency improvement.
	if success && len(n.experiences[binSuccessful])%5 == 0 {
		n.metacompiler[compilerImprovements] = append(n.metacompiler[compilerImprovements], map[string]interface{}{
			"improvement": name,
			"compiled_at": entry["timestamp"],
		})
	}
}

// EpochScore returns the observer score for an epoch and records it on the
// session curve. Metacognitive neurons start at 0.85 and gain 0.02 per
// epoch, vision neurons start at 0.80 and gain 0.03 per epoch, both capped
// at 0.95.
func (n *Neuron) EpochScore(epoch int) float64 {
	var score float64
	switch n.kind {
	case KindVision:
		score = math.Min(0.80+math.Min(float64(epoch)*0.03, 0.15), 0.95)
	default:
		score = math.Min(0.85+math.Min(float64(epoch)*0.02, 0.10), 0.95)
	}

	n.mu.Lock()
	if n.active {
		n.epochScores = append(n.epochScores, score)
	}
	n.mu.Unlock()

	return score
}

// EpochScores returns the recorded score curve, oldest first.
func (n *Neuron) EpochScores() []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	scores := make([]float64, len(n.epochScores))
	copy(scores, n.epochScores)
	return scores
}

// ExperienceCounts reports the size of each experience bin.
func (n *Neuron) ExperienceCounts() (successful, failed, optimizations int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.experiences[binSuccessful]), len(n.experiences[binFailed]), len(n.experiences[binOptimizations])
}

// MetacompilerState reports the size of each metacompiler bin.
func (n *Neuron) MetacompilerState() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return map[string]int{
		compilerLearning:     len(n.metacompiler[compilerLearning]),
		compilerCorrections:  len(n.metacompiler[compilerCorrections]),
		compilerDiscoveries:  len(n.metacompiler[compilerDiscoveries]),
		compilerImprovements: len(n.metacompiler[compilerImprovements]),
	}
}

// ObservationCount reports how many raw observations were recorded.
func (n *Neuron) ObservationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observations)
}

// Activity captures the node's state for the monitoring stream.
func (n *Neuron) Activity(epoch int) map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return map[string]interface{}{"status": "inactive", "epoch": epoch}
	}

	compiled := len(n.experiences[binSuccessful])
	divisor := epoch
	if divisor < 1 {
		divisor = 1
	}

	return map[string]interface{}{
		"status":                "active",
		"epoch":                 epoch,
		"experiences_compiled":  compiled,
		"metacompiler_patterns": len(n.metacompiler[compilerLearning]),
		"session_time":          time.Since(n.created).Seconds(),
		"learning_efficiency":   math.Min(float64(compiled)/float64(divisor), 1.0),
	}
}

// Metadata extracts the node's state while it is still alive.
func (n *Neuron) Metadata() map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	return map[string]interface{}{
		"session_id":    n.sessionID,
		"node_id":       n.nodeID,
		"creation_time": n.created.Unix(),
		"current_time":  time.Now().Unix(),
		"total_experiences": map[string]int{
			"successful":    len(n.experiences[binSuccessful]),
			"failed":        len(n.experiences[binFailed]),
			"optimizations": len(n.experiences[binOptimizations]),
		},
		"metacompiler_state": map[string]int{
			compilerLearning:     len(n.metacompiler[compilerLearning]),
			compilerCorrections:  len(n.metacompiler[compilerCorrections]),
			compilerDiscoveries:  len(n.metacompiler[compilerDiscoveries]),
			compilerImprovements: len(n.metacompiler[compilerImprovements]),
		},
	}
}

// deactivate marks the neuron destroyed. Further observations and
// compilations are dropped.
func (n *Neuron) deactivate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = false
}
