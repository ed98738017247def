package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the perception cycle period.
const DefaultInterval = 30 * time.Second

var securityTools = []string{"nmap", "sqlmap", "john", "hashcat", "hydra", "nikto", "msfconsole"}

// StatsSource feeds live request metrics into the self-assessment.
type StatsSource interface {
	Snapshot() (requests, errors int64, avgProcessingMs float64)
}

// Factors are the four normalized scores behind the confidence level.
type Factors struct {
	Resources      float64 `json:"resources"`
	Network        float64 `json:"network"`
	Security       float64 `json:"security"`
	SelfAssessment float64 `json:"self_assessment"`
}

// State is one perception cycle's view of the environment.
type State struct {
	Cycle           int                    `json:"cycle"`
	Timestamp       string                 `json:"timestamp"`
	SystemResources map[string]interface{} `json:"system_resources"`
	NetworkStatus   map[string]interface{} `json:"network_status"`
	SecurityContext map[string]interface{} `json:"security_context"`
	SelfAssessment  map[string]interface{} `json:"self_assessment"`
	Factors         Factors                `json:"factors"`
	Confidence      float64                `json:"confidence_level"`
	Adaptation      string                 `json:"adaptation_strategy"`
}

// Perception runs the environment awareness loop: resources, network and
// security posture plus a self-assessment, condensed into a confidence
// level that selects the adaptation strategy.
type Perception struct {
	statePath string
	interval  time.Duration
	stats     StatsSource

	pingProbe func() bool
	sudoProbe func() bool

	mu    sync.RWMutex
	last  *State
	cycle int
}

func New(statePath string, interval time.Duration, stats StatsSource) *Perception {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Perception{
		statePath: statePath,
		interval:  interval,
		stats:     stats,
		pingProbe: defaultPingProbe,
		sudoProbe: defaultSudoProbe,
	}
}

// Run executes perception cycles until the context is cancelled. Cycle
// failures are logged and the loop continues.
func (p *Perception) Run(ctx context.Context) {
	slog.Info("Environment perception started", "interval", p.interval)

	p.runCycle()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Environment perception stopped")
			return
		case <-ticker.C:
			p.runCycle()
		}
	}
}

func (p *Perception) runCycle() {
	state := p.Cycle()
	if p.statePath == "" {
		return
	}
	if err := p.flush(state); err != nil {
		slog.Warn("Failed to flush perception state", "error", err)
	}
}

// Cycle performs one full analysis and returns the resulting state.
func (p *Perception) Cycle() *State {
	p.mu.Lock()
	p.cycle++
	cycle := p.cycle
	p.mu.Unlock()

	resources, resourceScore := p.analyzeResources()
	network, networkScore := p.analyzeNetwork()
	security, securityScore := p.analyzeSecurity()
	assessment, assessmentScore := p.selfAssess(resourceScore)

	factors := Factors{
		Resources:      resourceScore,
		Network:        networkScore,
		Security:       securityScore,
		SelfAssessment: assessmentScore,
	}
	confidence := (factors.Resources + factors.Network + factors.Security + factors.SelfAssessment) / 4

	state := &State{
		Cycle:           cycle,
		Timestamp:       time.Now().Format(time.RFC3339),
		SystemResources: resources,
		NetworkStatus:   network,
		SecurityContext: security,
		SelfAssessment:  assessment,
		Factors:         factors,
		Confidence:      confidence,
		Adaptation:      AdaptationStrategy(confidence),
	}

	p.mu.Lock()
	p.last = state
	p.mu.Unlock()

	if cycle%5 == 0 {
		slog.Info("Perception summary",
			"cycle", cycle,
			"confidence", fmt.Sprintf("%.2f", confidence),
			"adaptation", state.Adaptation,
			"cpu", resources["cpu_usage"],
			"memory", resources["memory_percent"])
	}

	return state
}

// Last returns the most recent state, nil before the first cycle.
func (p *Perception) Last() *State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// AdaptationStrategy maps a confidence level to a strategy name.
func AdaptationStrategy(confidence float64) string {
	switch {
	case confidence < 0.6:
		return "conservative"
	case confidence < 0.8:
		return "balanced"
	default:
		return "aggressive"
	}
}

func (p *Perception) analyzeResources() (map[string]interface{}, float64) {
	cpuPercent := 50.0
	if load, err := loadAverage(); err == nil {
		cpuPercent = math.Min(100, load/float64(runtime.NumCPU())*100)
	}

	memPercent := 50.0
	if mem, err := memoryPercent(); err == nil {
		memPercent = mem
	}

	// Same shape as the efficiency score fed into the self-assessment
	score := math.Max(0.1, 1.0-(cpuPercent+memPercent)/200)

	return map[string]interface{}{
		"cpu_usage":      cpuPercent,
		"memory_percent": memPercent,
		"goroutines":     runtime.NumGoroutine(),
		"num_cpu":        runtime.NumCPU(),
	}, score
}

func (p *Perception) analyzeNetwork() (map[string]interface{}, float64) {
	upInterfaces := 0
	names := []string{}
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
				upInterfaces++
				names = append(names, iface.Name)
			}
		}
	}

	connected := p.pingProbe()

	score := 0.0
	if upInterfaces > 0 {
		score += 0.5
	}
	if connected {
		score += 0.5
	}

	return map[string]interface{}{
		"interfaces":   names,
		"up_count":     upInterfaces,
		"connectivity": connected,
	}, score
}

func (p *Perception) analyzeSecurity() (map[string]interface{}, float64) {
	uid := os.Getuid()
	isRoot := uid == 0
	sudoOK := p.sudoProbe()

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	available := map[string]bool{}
	toolCount := 0
	for _, tool := range securityTools {
		_, err := exec.LookPath(tool)
		available[tool] = err == nil
		if err == nil {
			toolCount++
		}
	}

	score := 0.4
	if sudoOK {
		score += 0.3
	}
	if isRoot {
		score += 0.3
	}

	return map[string]interface{}{
		"username":       username,
		"uid":            uid,
		"is_root":        isRoot,
		"sudo_available": sudoOK,
		"security_tools": available,
		"tools_found":    toolCount,
	}, math.Min(score, 1.0)
}

func (p *Perception) selfAssess(efficiencyScore float64) (map[string]interface{}, float64) {
	// Defaults for a quiet system
	accuracy := 0.5
	avgSeconds := 1.0
	errorRate := 0.1

	var requests, errors int64
	if p.stats != nil {
		var avgMs float64
		requests, errors, avgMs = p.stats.Snapshot()
		if requests > 0 {
			errorRate = float64(errors) / float64(requests)
			accuracy = 1.0 - errorRate
			avgSeconds = avgMs / 1000.0
		}
	}

	responseScore := 1.0 - math.Min(1.0, avgSeconds/5.0)
	score := (accuracy + responseScore + efficiencyScore + (1.0 - errorRate)) / 4

	return map[string]interface{}{
		"decision_accuracy": accuracy,
		"avg_response_time": avgSeconds,
		"error_rate":        errorRate,
		"total_requests":    requests,
		"total_errors":      errors,
		"efficiency_score":  efficiencyScore,
	}, score
}

func (p *Perception) flush(state *State) error {
	if dir := filepath.Dir(p.statePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal perception state: %w", err)
	}
	return os.WriteFile(p.statePath, raw, 0644)
}

func loadAverage() (float64, error) {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty loadavg")
	}
	return strconv.ParseFloat(fields[0], 64)
}

func memoryPercent() (float64, error) {
	raw, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, err
	}

	var total, available float64
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("MemTotal not found")
	}
	return (total - available) / total * 100, nil
}

func defaultPingProbe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "ping", "-c", "1", "-W", "2", "8.8.8.8").Run() == nil
}

func defaultSudoProbe() bool {
	return exec.Command("sudo", "-n", "true").Run() == nil
}
