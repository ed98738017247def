package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/temporal"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
)

const (
	dualEpochs    = 3
	dualBatchSize = 16

	// Observer efficiencies assigned at finalization.
	metacognitiveEfficiency = 0.90
	visionEfficiency        = 0.88
)

type EpochResult struct {
	Epoch              int     `json:"epoch"`
	Loss               float64 `json:"loss"`
	Accuracy           float64 `json:"accuracy"`
	MetacognitiveScore float64 `json:"metacognitive_score"`
	VisionScore        float64 `json:"vision_score"`
	BatchesProcessed   int     `json:"batches_processed"`
	EpochTime          float64 `json:"epoch_time"`
}

type DualInsights struct {
	MetacognitiveEfficiency float64 `json:"metacognitive_efficiency"`
	VisionEfficiency        float64 `json:"vision_efficiency"`
	DualSynergy             float64 `json:"dual_synergy"`
	PatternRecognition      int     `json:"pattern_recognition"`
	CombinedLearning        bool    `json:"combined_learning"`
}

type NeuronSummary struct {
	NodeID      string  `json:"node_id"`
	Epochs      int     `json:"epochs"`
	FinalScore  float64 `json:"final_score"`
	Experiences int     `json:"experiences"`
}

type TrainingResults struct {
	SessionID       string                   `json:"session_id"`
	StartTime       string                   `json:"start_time"`
	DatasetType     string                   `json:"dataset_type"`
	DatasetRecords  int                      `json:"dataset_records"`
	DualObservation bool                     `json:"dual_observation"`
	EpochResults    []EpochResult            `json:"epoch_results"`
	Neurons         map[string]NeuronSummary `json:"neurons"`
	DualInsights    DualInsights             `json:"dual_insights"`
	FinalLoss       float64                  `json:"final_loss"`
	FinalAccuracy   float64                  `json:"final_accuracy"`

	ResultsFile string `json:"-"`
}

// TrainingService runs dual temporal training: the binarized core learns
// a dataset while a metacognitive and a vision neuron observe every
// epoch. Both neurons are destroyed at the end, leaving their session
// files and a nucleus_metadata row behind.
type TrainingService struct {
	cfg  *config.Config
	repo repository.Repository
}

func NewTrainingService(cfg *config.Config, repo repository.Repository) *TrainingService {
	return &TrainingService{cfg: cfg, repo: repo}
}

func (s *TrainingService) RunDualTraining(ctx context.Context, datasetName string, limit int) (*TrainingResults, error) {
	start := time.Now()

	records, err := s.repo.Datasets().ReadRecords(ctx, datasetName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", datasetName, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s has no records", datasetName)
	}

	source := records[0].Source
	if source == "" {
		source = datasetName
	}
	session := fmt.Sprintf("%s_%d", source, start.Unix())

	slog.Info("Dual temporal training starting",
		"session", session,
		"dataset", datasetName,
		"records", len(records))

	// One coordinator per observer so each writes its own session file.
	metaCoordinator := temporal.NewMetaLearning(s.cfg.SessionDir)
	visionCoordinator := temporal.NewMetaLearning(s.cfg.SessionDir)
	metaNeuron := metaCoordinator.CreateTemporalNode(session+"_metacognitive", temporal.KindMetacognitive)
	visionNeuron := visionCoordinator.CreateTemporalNode(session+"_vision", temporal.KindVision)

	inputs := make([][]float64, 0, len(records))
	targets := make([]float64, 0, len(records))
	for _, rec := range records {
		semantic := tokenizer.BinarizeInt8(rec.Input.Tokens)
		inputs = append(inputs, neural.InputVector(semantic, rec.Output.BinaryInt8))
		targets = append(targets, neural.ComplexityTarget(rec.Input.ComplexityScore))
	}

	core := neural.NewCore()

	batchSize := dualBatchSize
	if len(inputs) < batchSize {
		batchSize = len(inputs)
	}
	totalBatches := len(inputs) / batchSize
	if totalBatches == 0 {
		totalBatches = 1
	}

	results := &TrainingResults{
		SessionID:       session,
		StartTime:       start.Format(time.RFC3339),
		DatasetType:     source,
		DatasetRecords:  len(records),
		DualObservation: true,
		Neurons:         make(map[string]NeuronSummary),
	}

	var prevLoss float64
	for epoch := 0; epoch < dualEpochs; epoch++ {
		epochStart := time.Now()
		var lossSum, accSum float64
		batches := 0

		for b := 0; b < totalBatches; b++ {
			lo := b * batchSize
			hi := lo + batchSize
			if hi > len(inputs) {
				hi = len(inputs)
			}
			loss, accuracy, err := core.TrainBatch(inputs[lo:hi], targets[lo:hi])
			if err != nil {
				return nil, fmt.Errorf("training batch failed: %w", err)
			}
			lossSum += loss
			accSum += accuracy
			batches++
		}

		avgLoss := lossSum / float64(batches)
		avgAccuracy := accSum / float64(batches)

		epochData := map[string]interface{}{
			"epoch":             epoch,
			"loss":              avgLoss,
			"accuracy":          avgAccuracy,
			"batches_processed": batches,
		}
		metaNeuron.Observe(epochData)
		visionNeuron.Observe(epochData)

		improved := epoch == 0 || avgLoss < prevLoss
		metaNeuron.CompileExperience(fmt.Sprintf("epoch_%d", epoch), epochData, improved)
		visionNeuron.CompileExperience(fmt.Sprintf("epoch_%d", epoch), epochData, improved)
		prevLoss = avgLoss

		epochResult := EpochResult{
			Epoch:              epoch,
			Loss:               avgLoss,
			Accuracy:           avgAccuracy,
			MetacognitiveScore: metaNeuron.EpochScore(epoch),
			VisionScore:        visionNeuron.EpochScore(epoch),
			BatchesProcessed:   batches,
			EpochTime:          time.Since(epochStart).Seconds(),
		}
		results.EpochResults = append(results.EpochResults, epochResult)
		results.FinalLoss = avgLoss
		results.FinalAccuracy = avgAccuracy

		slog.Info("Dual training epoch completed",
			"session", session,
			"epoch", epoch,
			"loss", avgLoss,
			"accuracy", avgAccuracy,
			"metacognitive_score", epochResult.MetacognitiveScore,
			"vision_score", epochResult.VisionScore)
	}

	results.DualInsights = DualInsights{
		MetacognitiveEfficiency: metacognitiveEfficiency,
		VisionEfficiency:        visionEfficiency,
		DualSynergy:             (metacognitiveEfficiency + visionEfficiency) / 2,
		PatternRecognition:      metaNeuron.ObservationCount() + visionNeuron.ObservationCount(),
		CombinedLearning:        true,
	}

	metaSuccessful, metaFailed, metaOpt := metaNeuron.ExperienceCounts()
	visionSuccessful, visionFailed, visionOpt := visionNeuron.ExperienceCounts()
	experiencesTotal := metaSuccessful + metaFailed + metaOpt + visionSuccessful + visionFailed + visionOpt

	results.Neurons["metacognitive"] = s.finalizeNeuron(metaCoordinator, metaNeuron, metaSuccessful+metaFailed+metaOpt)
	results.Neurons["vision"] = s.finalizeNeuron(visionCoordinator, visionNeuron, visionSuccessful+visionFailed+visionOpt)

	if err := s.writeResults(results); err != nil {
		return nil, err
	}

	metadata := &models.NucleusMetadata{
		DomainName:        source,
		TemporalNodeID:    results.Neurons["metacognitive"].NodeID,
		TrainingTimestamp: start,
		PrecisionScore:    results.FinalAccuracy,
		LossFinal:         results.FinalLoss,
		ExperiencesCount:  experiencesTotal,
		MetadataJSON:      toJSON(results.DualInsights),
	}
	if err := s.repo.Nucleus().SaveMetadata(ctx, metadata); err != nil {
		slog.Warn("Failed to save nucleus metadata", "session", session, "error", err)
	}

	slog.Info("Dual temporal training finished",
		"session", session,
		"final_loss", results.FinalLoss,
		"final_accuracy", results.FinalAccuracy,
		"dual_synergy", results.DualInsights.DualSynergy,
		"duration_ms", time.Since(start).Milliseconds(),
		"results_file", results.ResultsFile)

	return results, nil
}

// finalizeNeuron destroys a temporal node and condenses its legacy into
// the per-neuron summary kept in the results file.
func (s *TrainingService) finalizeNeuron(coordinator *temporal.MetaLearning, neuron *temporal.Neuron, experiences int) NeuronSummary {
	scores := neuron.EpochScores()
	summary := NeuronSummary{
		Epochs:      len(scores),
		Experiences: experiences,
	}
	if len(scores) > 0 {
		summary.FinalScore = scores[len(scores)-1]
	}

	legacy, err := coordinator.DestroyTemporalNode()
	if err != nil {
		slog.Warn("Temporal node destruction failed", "error", err)
		return summary
	}
	if nodeID, ok := legacy["node_id"].(string); ok {
		summary.NodeID = nodeID
	}
	return summary
}

func (s *TrainingService) writeResults(results *TrainingResults) error {
	if err := os.MkdirAll(s.cfg.ResultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}

	path := filepath.Join(s.cfg.ResultsDir, fmt.Sprintf("dual_training_%s.json", results.SessionID))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal training results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write training results: %w", err)
	}

	results.ResultsFile = path
	return nil
}

func toJSON(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
