// Package soap implements the note pipeline: transcript in, structured
// four-section clinical note out, with optional persistence per encounter.
package soap

import (
	"time"

	"github.com/google/uuid"
)

// ExtractRequest is the note-extraction payload.
type ExtractRequest struct {
	Transcript  string `json:"transcript"`
	EncounterID string `json:"encounter_id,omitempty"`
}

// Note is the API-facing extraction result.
type Note struct {
	Subjective       string   `json:"subjective"`
	Objective        string   `json:"objective"`
	Assessment       string   `json:"assessment"`
	Plan             string   `json:"plan"`
	ModelUsed        string   `json:"model_used,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`
}

// NoteRecord is a persisted note tied to an encounter.
type NoteRecord struct {
	ID          uuid.UUID `json:"id"`
	EncounterID uuid.UUID `json:"encounter_id"`
	Subjective  string    `json:"subjective"`
	Objective   string    `json:"objective"`
	Assessment  string    `json:"assessment"`
	Plan        string    `json:"plan"`

	// Extraction metadata.
	ModelUsed        string   `json:"model_used,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
