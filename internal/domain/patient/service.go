package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var validAllergySeverities = map[string]bool{
	"":       true,
	"low":    true,
	"medium": true,
	"high":   true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.MedicalRecordNumber != "" {
		existing, err := s.repo.GetByMRN(ctx, p.MedicalRecordNumber)
		if err == nil && existing != nil {
			return fmt.Errorf("medical record number already exists")
		}
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}
	if p.MedicalRecordNumber != "" && p.MedicalRecordNumber != existing.MedicalRecordNumber {
		other, err := s.repo.GetByMRN(ctx, p.MedicalRecordNumber)
		if err == nil && other != nil && other.ID != p.ID {
			return fmt.Errorf("medical record number already exists")
		}
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	if search != "" {
		return s.repo.SearchByName(ctx, search, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) AddAllergy(ctx context.Context, a *Allergy) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.Allergen == "" {
		return fmt.Errorf("allergen is required")
	}
	if !validAllergySeverities[a.Severity] {
		return fmt.Errorf("invalid severity: %s", a.Severity)
	}
	if _, err := s.repo.GetByID(ctx, a.PatientID); err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}
	a.IsActive = true
	return s.repo.AddAllergy(ctx, a)
}

func (s *Service) GetAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	return s.repo.GetAllergies(ctx, patientID)
}

// ActiveAllergens returns the active allergen names for a patient, for use
// as rule-engine input.
func (s *Service) ActiveAllergens(ctx context.Context, patientID uuid.UUID) ([]string, error) {
	allergies, err := s.repo.GetAllergies(ctx, patientID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(allergies))
	for _, a := range allergies {
		if a.IsActive {
			names = append(names, a.Allergen)
		}
	}
	return names, nil
}

func (s *Service) RemoveAllergy(ctx context.Context, id uuid.UUID) error {
	return s.repo.RemoveAllergy(ctx, id)
}
