package soap

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, note *NoteRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*NoteRecord, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*NoteRecord, error)
}
