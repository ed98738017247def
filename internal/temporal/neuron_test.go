package temporal

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileExperienceBins(t *testing.T) {
	n := NewNeuron("test_session", KindMetacognitive)

	n.CompileExperience("learning_epoch", map[string]interface{}{"loss": 0.3}, true)
	n.CompileExperience("learning_epoch", map[string]interface{}{"loss": 0.9}, false)
	n.CompileExperience("tuning", map[string]interface{}{"optimization": true}, true)

	successful, failed, optimizations := n.ExperienceCounts()
	if successful != 2 || failed != 1 || optimizations != 1 {
		t.Errorf("Unexpected bin counts: %d successful, %d failed, %d optimizations",
			successful, failed, optimizations)
	}

	state := n.MetacompilerState()
	if state["learning_patterns"] != 2 {
		t.Errorf("Expected 2 learning patterns, got %d", state["learning_patterns"])
	}
	if state["error_corrections"] != 1 {
		t.Errorf("Expected 1 error correction, got %d", state["error_corrections"])
	}
	if state["optimization_discoveries"] != 1 {
		t.Errorf("Expected 1 optimization discovery, got %d", state["optimization_discoveries"])
	}
}

func TestEfficiencyImprovementEveryFifthSuccess(t *testing.T) {
	n := NewNeuron("test_session", KindMetacognitive)
	for i := 0; i < 10; i++ {
		n.CompileExperience("epoch", nil, true)
	}

	if got := n.MetacompilerState()["efficiency_improvements"]; got != 2 {
		t.Errorf("Expected 2 efficiency improvements after 10 successes, got %d", got)
	}
}

func TestEpochScoreCurves(t *testing.T) {
	metacog := NewNeuron("s", KindMetacognitive)
	vision := NewNeuron("s", KindVision)

	cases := []struct {
		epoch   int
		metacog float64
		vision  float64
	}{
		{0, 0.85, 0.80},
		{1, 0.87, 0.83},
		{2, 0.89, 0.86},
		{5, 0.95, 0.95},
		{100, 0.95, 0.95},
	}
	for _, c := range cases {
		if got := metacog.EpochScore(c.epoch); math.Abs(got-c.metacog) > 1e-9 {
			t.Errorf("Metacognitive score at epoch %d: expected %f, got %f", c.epoch, c.metacog, got)
		}
		if got := vision.EpochScore(c.epoch); math.Abs(got-c.vision) > 1e-9 {
			t.Errorf("Vision score at epoch %d: expected %f, got %f", c.epoch, c.vision, got)
		}
	}

	if len(metacog.EpochScores()) != len(cases) {
		t.Errorf("Score curve should record every call, got %d entries", len(metacog.EpochScores()))
	}
}

func TestActivityEfficiency(t *testing.T) {
	n := NewNeuron("s", KindMetacognitive)
	for i := 0; i < 3; i++ {
		n.CompileExperience("epoch", nil, true)
	}

	activity := n.Activity(0)
	if activity["status"] != "active" {
		t.Fatalf("Expected active status, got %v", activity["status"])
	}
	// Epoch 0 divides by 1, and efficiency caps at 1.0
	if eff := activity["learning_efficiency"].(float64); eff != 1.0 {
		t.Errorf("Expected capped efficiency 1.0, got %f", eff)
	}

	activity = n.Activity(6)
	if eff := activity["learning_efficiency"].(float64); math.Abs(eff-0.5) > 1e-9 {
		t.Errorf("Expected efficiency 0.5 at epoch 6, got %f", eff)
	}
}

func TestMetaLearningLifecycle(t *testing.T) {
	dir := t.TempDir()
	ml := NewMetaLearning(dir)

	node := ml.CreateTemporalNode("academic_training_1", KindMetacognitive)
	if !node.IsActive() {
		t.Fatal("New node should be active")
	}
	if node.NodeID() == "" {
		t.Fatal("Node should carry a uuid")
	}

	node.CompileExperience("epoch", map[string]interface{}{"loss": 0.2}, true)
	node.EpochScore(0)
	node.EpochScore(1)

	legacy, err := ml.DestroyTemporalNode()
	if err != nil {
		t.Fatalf("DestroyTemporalNode failed: %v", err)
	}
	if node.IsActive() {
		t.Error("Node should be inactive after destruction")
	}
	if legacy["session_id"] != "academic_training_1" {
		t.Errorf("Legacy should carry the session id, got %v", legacy["session_id"])
	}
	counts := legacy["total_experiences"].(map[string]int)
	if counts["successful"] != 1 {
		t.Errorf("Legacy should count 1 successful experience, got %d", counts["successful"])
	}

	// Destroying again fails
	if _, err := ml.DestroyTemporalNode(); err == nil {
		t.Error("Second destruction should fail")
	} else if !strings.Contains(err.Error(), "already destroyed") {
		t.Errorf("Unexpected error: %v", err)
	}

	// Session file written with the score curve
	raw, err := os.ReadFile(filepath.Join(dir, "academic_training_1.json"))
	if err != nil {
		t.Fatalf("Session file not written: %v", err)
	}
	var record map[string]interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	scores := record["epoch_scores"].([]interface{})
	if len(scores) != 2 {
		t.Errorf("Expected 2 recorded epoch scores, got %d", len(scores))
	}
	if record["node_id"] != node.NodeID() {
		t.Errorf("Session file node id mismatch: %v", record["node_id"])
	}
}

func TestCreateOverLiveNodeDestroysFirst(t *testing.T) {
	dir := t.TempDir()
	ml := NewMetaLearning(dir)

	first := ml.CreateTemporalNode("session_a", KindMetacognitive)
	second := ml.CreateTemporalNode("session_b", KindVision)

	if first.IsActive() {
		t.Error("First node should be destroyed when a second is created")
	}
	if !second.IsActive() {
		t.Error("Second node should be active")
	}
	if _, err := os.Stat(filepath.Join(dir, "session_a.json")); err != nil {
		t.Errorf("First session file should be preserved: %v", err)
	}
}

func TestCompileIgnoredAfterDestruction(t *testing.T) {
	ml := NewMetaLearning("")
	node := ml.CreateTemporalNode("s", KindMetacognitive)
	if _, err := ml.DestroyTemporalNode(); err != nil {
		t.Fatalf("DestroyTemporalNode failed: %v", err)
	}

	node.CompileExperience("late", nil, true)
	successful, _, _ := node.ExperienceCounts()
	if successful != 0 {
		t.Errorf("Destroyed node should drop experiences, got %d", successful)
	}

	if activity := node.Activity(3); activity["status"] != "inactive" {
		t.Errorf("Destroyed node should report inactive, got %v", activity["status"])
	}
}
