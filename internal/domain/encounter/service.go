package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinscribe/clinscribe/internal/domain/patient"
)

var validStatuses = map[string]bool{
	"active":    true,
	"completed": true,
	"deleted":   true,
}

// PatientDirectory is the slice of the patient service this package needs.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

// NewService builds the encounter service. patients may be nil, in which
// case patient existence is left to the database's foreign keys.
func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) validate(ctx context.Context, enc *Encounter) error {
	if enc.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if enc.EncounterType == "" {
		return fmt.Errorf("encounter_type is required")
	}
	if enc.Status == "" {
		enc.Status = "active"
	}
	if !validStatuses[enc.Status] {
		return fmt.Errorf("invalid status: %s", enc.Status)
	}
	if enc.EncounterDate.IsZero() {
		enc.EncounterDate = time.Now().UTC()
	}
	if s.patients != nil {
		if _, err := s.patients.GetPatient(ctx, enc.PatientID); err != nil {
			return fmt.Errorf("patient not found: %w", err)
		}
	}
	return nil
}

func (s *Service) CreateEncounter(ctx context.Context, enc *Encounter) error {
	if err := s.validate(ctx, enc); err != nil {
		return err
	}
	return s.repo.Create(ctx, enc)
}

// Intake creates an encounter together with its captured transcript.
func (s *Service) Intake(ctx context.Context, req *IntakeRequest) (*Encounter, *Transcript, error) {
	if req.Transcript == "" {
		return nil, nil, fmt.Errorf("transcript is required")
	}
	enc := &Encounter{
		PatientID:      req.PatientID,
		EncounterType:  req.EncounterType,
		ChiefComplaint: req.ChiefComplaint,
	}
	if err := s.validate(ctx, enc); err != nil {
		return nil, nil, err
	}
	tr := &Transcript{Content: req.Transcript, Language: req.Language}
	if err := s.repo.CreateWithTranscript(ctx, enc, tr); err != nil {
		return nil, nil, err
	}
	return enc, tr, nil
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateEncounter(ctx context.Context, enc *Encounter) error {
	existing, err := s.repo.GetByID(ctx, enc.ID)
	if err != nil {
		return fmt.Errorf("encounter not found: %w", err)
	}
	if enc.Status == "" {
		enc.Status = existing.Status
	}
	if !validStatuses[enc.Status] {
		return fmt.Errorf("invalid status: %s", enc.Status)
	}
	if enc.EncounterType == "" {
		enc.EncounterType = existing.EncounterType
	}
	if enc.EncounterDate.IsZero() {
		enc.EncounterDate = existing.EncounterDate
	}
	enc.PatientID = existing.PatientID
	return s.repo.Update(ctx, enc)
}

// DeleteEncounter soft-deletes by setting the status.
func (s *Service) DeleteEncounter(ctx context.Context, id uuid.UUID) error {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("encounter not found: %w", err)
	}
	enc.Status = "deleted"
	return s.repo.Update(ctx, enc)
}

func (s *Service) ListEncounters(ctx context.Context, filter ListFilter, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) AddTranscript(ctx context.Context, tr *Transcript) error {
	if tr.EncounterID == uuid.Nil {
		return fmt.Errorf("encounter_id is required")
	}
	if tr.Content == "" {
		return fmt.Errorf("content is required")
	}
	if _, err := s.repo.GetByID(ctx, tr.EncounterID); err != nil {
		return fmt.Errorf("encounter not found: %w", err)
	}
	return s.repo.AddTranscript(ctx, tr)
}

func (s *Service) GetTranscripts(ctx context.Context, encounterID uuid.UUID) ([]*Transcript, error) {
	return s.repo.GetTranscripts(ctx, encounterID)
}
