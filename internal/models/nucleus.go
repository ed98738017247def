package models

import "time"

// QueryHistory is one processed query with its generated response.
type QueryHistory struct {
	ID                int64     `json:"id"`
	QueryText         string    `json:"query_text"`
	DomainUsed        string    `json:"domain_used"`
	ResponseGenerated string    `json:"response_generated"`
	ConfidenceScore   float64   `json:"confidence_score"`
	ExecutionTime     float64   `json:"execution_time"`
	Timestamp         time.Time `json:"timestamp"`
}

// NucleusMetadata records one training run of a domain nucleus.
type NucleusMetadata struct {
	ID                int64     `json:"id"`
	DomainName        string    `json:"domain_name"`
	TemporalNodeID    string    `json:"temporal_node_id"`
	TrainingTimestamp time.Time `json:"training_timestamp"`
	PrecisionScore    float64   `json:"precision_score"`
	LossFinal         float64   `json:"loss_final"`
	ExperiencesCount  int       `json:"experiences_count"`
	MetadataJSON      string    `json:"metadata_json"`
}
