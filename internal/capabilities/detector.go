package capabilities

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// AutoCapabilityDetector derives capabilities from a probed environment
type AutoCapabilityDetector struct{}

// NewAutoCapabilityDetector creates a new auto-capability detector
func NewAutoCapabilityDetector() *AutoCapabilityDetector {
	return &AutoCapabilityDetector{}
}

// Probe inspects the host for the static facts capability detection
// needs. TTYActive, ModelLoaded and CorpusFamilies are live facts the
// caller fills in afterwards.
func Probe(shellPath, databaseURL, natsURL, overlayDir, dataDir string) Environment {
	env := Environment{
		ShellPath:  shellPath,
		OverlayDir: overlayDir,
		Dialect:    "sqlite3",
	}

	if shellPath != "" {
		if _, err := exec.LookPath(shellPath); err == nil {
			env.ShellFound = true
		}
	}
	if _, err := os.Stat("/dev/ptmx"); err == nil {
		env.PtyDevice = true
	}
	if databaseURL != "" {
		env.Dialect = "postgres"
	}
	env.NATSConfigured = natsURL != ""
	env.DataWritable = dirWritable(dataDir)

	return env
}

func dirWritable(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// DetectCapabilities returns every capability the environment supports
func (d *AutoCapabilityDetector) DetectCapabilities(env Environment) []Capability {
	var capabilities []Capability

	// Chat always works: without a shell every input degrades to the
	// conversational path.
	capabilities = append(capabilities, Capability{
		Type:        CapabilityChat,
		Version:     "1.0",
		Description: "Classify input and answer conversationally",
	})

	if env.TTYActive || (env.ShellFound && env.PtyDevice) {
		capabilities = append(capabilities, Capability{
			Type:    CapabilityCommandExecution,
			Version: "1.0",
			Parameters: map[string]interface{}{
				"shell":  env.ShellPath,
				"active": env.TTYActive,
			},
			Description: "Execute shell commands on the TTY nucleus",
		})
		slog.Debug("Detected command execution capability", "shell", env.ShellPath, "tty_active", env.TTYActive)
	}

	capabilities = append(capabilities, Capability{
		Type:    CapabilityNeuralProcessing,
		Version: "1.0",
		Parameters: map[string]interface{}{
			"pretrained": env.ModelLoaded,
		},
		Description: "Tokenize input and route it through the conversational network",
	})

	if len(env.CorpusFamilies) > 0 && env.DataWritable {
		params := map[string]interface{}{
			"families": env.CorpusFamilies,
		}
		if env.OverlayDir != "" {
			params["overlay_dir"] = env.OverlayDir
		}
		capabilities = append(capabilities, Capability{
			Type:        CapabilityDatasetGeneration,
			Version:     "1.0",
			Parameters:  params,
			Description: "Generate hybrid int8 datasets from the built-in corpora",
		})
		slog.Debug("Detected dataset generation capability", "families", len(env.CorpusFamilies))
	}

	if env.DataWritable {
		capabilities = append(capabilities, Capability{
			Type:        CapabilityTemporalTraining,
			Version:     "1.0",
			Description: "Dual temporal training with observer neurons",
		})
	}

	capabilities = append(capabilities, Capability{
		Type:    CapabilityLiveMonitoring,
		Version: "1.0",
		Parameters: map[string]interface{}{
			"nats": env.NATSConfigured,
		},
		Description: "Periodic live reports and log error watching",
	})

	slog.Info("Capability detection completed",
		"dialect", env.Dialect,
		"shell_found", env.ShellFound,
		"total_capabilities", len(capabilities))

	return capabilities
}

// SupportsCapability checks if the environment supports a specific capability
func (d *AutoCapabilityDetector) SupportsCapability(env Environment, capability CapabilityType) bool {
	for _, cap := range d.DetectCapabilities(env) {
		if cap.Type == capability {
			return true
		}
	}
	return false
}

// GetCapabilityStrings converts capabilities to string array for JSON serialization
func (d *AutoCapabilityDetector) GetCapabilityStrings(capabilities []Capability) []string {
	strings := make([]string, len(capabilities))
	for i, cap := range capabilities {
		strings[i] = string(cap.Type)
	}
	return strings
}

// GetCapabilitiesSummary returns a human-readable summary of capabilities
func (d *AutoCapabilityDetector) GetCapabilitiesSummary(capabilities []Capability) string {
	var summary []string

	for _, cap := range capabilities {
		switch cap.Type {
		case CapabilityChat:
			summary = append(summary, "Chat")
		case CapabilityCommandExecution:
			summary = append(summary, "Commands")
		case CapabilityNeuralProcessing:
			summary = append(summary, "Neural")
		case CapabilityDatasetGeneration:
			summary = append(summary, "Datasets")
		case CapabilityTemporalTraining:
			summary = append(summary, "Training")
		case CapabilityLiveMonitoring:
			summary = append(summary, "Live Monitoring")
		}
	}

	if len(summary) == 0 {
		return "Chat Only"
	}

	return strings.Join(summary, ", ")
}
