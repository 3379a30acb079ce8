// Package patient manages patient demographics and their allergy records.
package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID                  uuid.UUID  `json:"id"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	MedicalRecordNumber string     `json:"medical_record_number,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Allergy struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	Allergen     string    `json:"allergen"`
	ReactionType string    `json:"reaction_type,omitempty"`
	Severity     string    `json:"severity,omitempty"`
	IsActive     bool      `json:"is_active"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
