// Package encounter manages clinical encounters and their transcripts.
package encounter

import (
	"time"

	"github.com/google/uuid"
)

type Encounter struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	EncounterType  string    `json:"encounter_type"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
	Status         string    `json:"status"`
	EncounterDate  time.Time `json:"encounter_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Transcript struct {
	ID              uuid.UUID `json:"id"`
	EncounterID     uuid.UUID `json:"encounter_id"`
	Content         string    `json:"content"`
	Language        string    `json:"language"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// IntakeRequest creates an encounter and its first transcript in one call.
type IntakeRequest struct {
	PatientID      uuid.UUID `json:"patient_id"`
	EncounterType  string    `json:"encounter_type"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
	Transcript     string    `json:"transcript"`
	Language       string    `json:"language,omitempty"`
}
