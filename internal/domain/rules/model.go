// Package rules implements the deterministic medication-safety rule engine
// and the orchestrator that augments its findings with advisory rationale.
// The engine's verdict is authoritative; nothing downstream may add, remove,
// or reclassify a finding.
package rules

import (
	"time"

	"github.com/google/uuid"
)

// Finding severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Finding is a deterministic safety concern produced by the rule engine.
// It deliberately has no recommendation field: advisory rationale lives in
// a separate Recommendation slice keyed by finding ID, so augmentation can
// never rewrite the verdict.
type Finding struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// Recommendation is model-generated rationale for a single finding.
type Recommendation struct {
	FindingID    string   `json:"findingId"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives"`
}

// CheckRequest is the payload for both the check and analyze endpoints.
type CheckRequest struct {
	Medications []string `json:"medications"`
	Allergies   []string `json:"allergies"`
	PlanText    string   `json:"planText,omitempty"`
	EncounterID string   `json:"encounter_id,omitempty"`
}

// CheckResult carries only the deterministic verdict.
type CheckResult struct {
	Findings []Finding `json:"findings"`
}

// AnalysisResult is the combined output of resolution, deterministic check,
// and best-effort augmentation.
type AnalysisResult struct {
	Medications     []string         `json:"medications"`
	Findings        []Finding        `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// FindingRecord is a persisted finding tied to an encounter.
type FindingRecord struct {
	ID             uuid.UUID `json:"id"`
	EncounterID    uuid.UUID `json:"encounter_id"`
	RuleID         string    `json:"rule_id"`
	Title          string    `json:"title"`
	Severity       string    `json:"severity"`
	Details        string    `json:"details"`
	RuleSetVersion int       `json:"rule_set_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecommendationRecord is a persisted recommendation keyed by the finding's
// rule ID within the same encounter.
type RecommendationRecord struct {
	ID           uuid.UUID `json:"id"`
	EncounterID  uuid.UUID `json:"encounter_id"`
	RuleID       string    `json:"rule_id"`
	Reason       string    `json:"reason"`
	Alternatives []string  `json:"alternatives"`
	CreatedAt    time.Time `json:"created_at"`
}
