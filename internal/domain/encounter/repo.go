package encounter

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	PatientID     uuid.UUID
	Status        string
	EncounterType string
}

type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	CreateWithTranscript(ctx context.Context, enc *Encounter, tr *Transcript) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	Update(ctx context.Context, enc *Encounter) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Encounter, int, error)

	AddTranscript(ctx context.Context, tr *Transcript) error
	GetTranscripts(ctx context.Context, encounterID uuid.UUID) ([]*Transcript, error)
}
