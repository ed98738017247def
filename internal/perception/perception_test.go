package perception

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type fakeStats struct {
	requests int64
	errors   int64
	avgMs    float64
}

func (f fakeStats) Snapshot() (int64, int64, float64) {
	return f.requests, f.errors, f.avgMs
}

func TestAdaptationStrategy(t *testing.T) {
	cases := []struct {
		confidence float64
		strategy   string
	}{
		{0.2, "conservative"},
		{0.59, "conservative"},
		{0.6, "balanced"},
		{0.79, "balanced"},
		{0.8, "aggressive"},
		{1.0, "aggressive"},
	}
	for _, c := range cases {
		if got := AdaptationStrategy(c.confidence); got != c.strategy {
			t.Errorf("Strategy at %.2f: expected %s, got %s", c.confidence, c.strategy, got)
		}
	}
}

func TestCycleProducesState(t *testing.T) {
	p := New("", 0, fakeStats{requests: 100, errors: 5, avgMs: 800})
	p.pingProbe = func() bool { return true }
	p.sudoProbe = func() bool { return false }

	state := p.Cycle()
	if state.Cycle != 1 {
		t.Errorf("First cycle should be 1, got %d", state.Cycle)
	}
	if state.Confidence <= 0 || state.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", state.Confidence)
	}
	if state.Adaptation == "" {
		t.Error("Adaptation strategy missing")
	}
	if state.Factors.Network < 0.5 {
		t.Errorf("Successful connectivity probe should score at least 0.5, got %f", state.Factors.Network)
	}

	if p.Last() != state {
		t.Error("Last should return the produced state")
	}
}

func TestSelfAssessmentUsesStats(t *testing.T) {
	p := New("", 0, fakeStats{requests: 200, errors: 20, avgMs: 1000})

	assessment, score := p.selfAssess(0.8)
	if assessment["error_rate"].(float64) != 0.1 {
		t.Errorf("Expected error rate 0.1, got %v", assessment["error_rate"])
	}
	if assessment["decision_accuracy"].(float64) != 0.9 {
		t.Errorf("Expected accuracy 0.9, got %v", assessment["decision_accuracy"])
	}
	// (0.9 + 0.8 + 0.8 + 0.9) / 4
	if expected := 0.85; score < expected-1e-9 || score > expected+1e-9 {
		t.Errorf("Expected assessment score %.2f, got %f", expected, score)
	}
}

func TestSelfAssessmentDefaults(t *testing.T) {
	p := New("", 0, nil)

	assessment, _ := p.selfAssess(0.5)
	if assessment["decision_accuracy"].(float64) != 0.5 {
		t.Errorf("Quiet system should default accuracy 0.5, got %v", assessment["decision_accuracy"])
	}
	if assessment["error_rate"].(float64) != 0.1 {
		t.Errorf("Quiet system should default error rate 0.1, got %v", assessment["error_rate"])
	}
}

func TestStateFlushedToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "perception.json")
	p := New(path, 0, nil)
	p.pingProbe = func() bool { return false }
	p.sudoProbe = func() bool { return false }

	p.runCycle()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("State file not written: %v", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("State file is not valid JSON: %v", err)
	}
	if state.Cycle != 1 {
		t.Errorf("Flushed state should be cycle 1, got %d", state.Cycle)
	}
	if state.SystemResources == nil || state.SecurityContext == nil {
		t.Error("Flushed state missing sections")
	}
}

func TestSecurityScoreBounds(t *testing.T) {
	p := New("", 0, nil)
	p.sudoProbe = func() bool { return true }

	_, score := p.analyzeSecurity()
	if score < 0.4 || score > 1.0 {
		t.Errorf("Security score out of bounds: %f", score)
	}
}
