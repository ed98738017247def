package capabilities

// CapabilityType names one operational capability of a running nucleus
type CapabilityType string

const (
	CapabilityChat              CapabilityType = "chat"
	CapabilityCommandExecution  CapabilityType = "command-execution"
	CapabilityNeuralProcessing  CapabilityType = "neural-processing"
	CapabilityDatasetGeneration CapabilityType = "dataset-generation"
	CapabilityTemporalTraining  CapabilityType = "temporal-training"
	CapabilityLiveMonitoring    CapabilityType = "live-monitoring"
)

// Capability is one detected capability with its metadata
type Capability struct {
	Type        CapabilityType         `json:"type"`
	Version     string                 `json:"version"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Description string                 `json:"description,omitempty"`
}

// Environment describes the host surface the nucleus runs on. It is
// assembled once at startup and drives endpoint registration.
type Environment struct {
	ShellPath      string   `json:"shell_path"`
	ShellFound     bool     `json:"shell_found"`
	PtyDevice      bool     `json:"pty_device"`
	TTYActive      bool     `json:"tty_active"`
	Dialect        string   `json:"dialect"`
	NATSConfigured bool     `json:"nats_configured"`
	ModelLoaded    bool     `json:"model_loaded"`
	CorpusFamilies []string `json:"corpus_families"`
	OverlayDir     string   `json:"overlay_dir,omitempty"`
	DataWritable   bool     `json:"data_writable"`
}

// CapabilityDetector detects capabilities from a probed environment
type CapabilityDetector interface {
	DetectCapabilities(env Environment) []Capability
	SupportsCapability(env Environment, capability CapabilityType) bool
	GetCapabilityStrings(capabilities []Capability) []string
}
