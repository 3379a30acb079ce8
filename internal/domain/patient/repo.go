package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SearchByName(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)

	AddAllergy(ctx context.Context, a *Allergy) error
	GetAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error)
	RemoveAllergy(ctx context.Context, id uuid.UUID) error
}
