package models

import "time"

// DatasetRecord is one JSONL line of a hybrid semantic-binarized dataset.
type DatasetRecord struct {
	ID            string                 `json:"id"`
	Source        string                 `json:"source"`
	Language      string                 `json:"language"`
	CreatedAt     time.Time              `json:"created_at"`
	Input         InputData              `json:"input_data"`
	Output        OutputData             `json:"output_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ErrorHandling ErrorHandling          `json:"error_handling"`
}

// InputData holds the tokenized natural-language side of a pair.
type InputData struct {
	RawInput        string   `json:"raw_input"`
	Tokens          []string `json:"tokens"`
	TokenCount      int      `json:"token_count"`
	SemanticType    string   `json:"semantic_type"`
	Intent          string   `json:"intent"`
	ComplexityScore int      `json:"complexity_score"`
}

// OutputData holds the command side with its int8 binarization.
type OutputData struct {
	RawOutput    RawOutput    `json:"raw_output"`
	Tokens       []string     `json:"tokens"`
	BinaryInt8   []int        `json:"binary_int8"`
	FuzzyMapping FuzzyMapping `json:"fuzzy_mapping"`
}

// RawOutput is the canonical command with its explanation.
type RawOutput struct {
	Command          string `json:"command"`
	Explanation      string `json:"explanation"`
	ExecutionContext string `json:"execution_context"`
	ExpectedResult   string `json:"expected_result"`
}

// FuzzyMapping lists accepted command variants and match tolerances.
type FuzzyMapping struct {
	ExactMatch          string   `json:"exact_match"`
	Variants            []string `json:"variants"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	EditDistanceMax     int      `json:"edit_distance_max"`
}

// ErrorHandling carries the typo tolerance block of a record.
type ErrorHandling struct {
	TypoVariants   []string `json:"typo_variants"`
	ErrorStatus    string   `json:"error_status"`
	FuzzyThreshold float64  `json:"fuzzy_threshold"`
	E404Fallback   string   `json:"e404_fallback"`
}

// DatasetInfo describes a generated dataset file and its registry row.
type DatasetInfo struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	FilePath    string    `json:"file_path"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerationSummary is printed after a generator run.
type GenerationSummary struct {
	Corpus         string        `json:"corpus"`
	Records        int           `json:"records"`
	UniqueCommands int           `json:"unique_commands"`
	OutputFile     string        `json:"output_file"`
	Bytes          int64         `json:"bytes"`
	Duration       time.Duration `json:"duration"`
}
