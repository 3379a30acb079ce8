package encounter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinscribe/clinscribe/internal/domain/patient"
)

type mockRepo struct {
	encounters  map[uuid.UUID]*Encounter
	transcripts map[uuid.UUID][]*Transcript
	txCalls     int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		encounters:  make(map[uuid.UUID]*Encounter),
		transcripts: make(map[uuid.UUID][]*Transcript),
	}
}

func (m *mockRepo) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	m.encounters[enc.ID] = enc
	return nil
}

func (m *mockRepo) CreateWithTranscript(ctx context.Context, enc *Encounter, tr *Transcript) error {
	m.txCalls++
	if err := m.Create(ctx, enc); err != nil {
		return err
	}
	tr.ID = uuid.New()
	tr.EncounterID = enc.ID
	m.transcripts[enc.ID] = append(m.transcripts[enc.ID], tr)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, ok := m.encounters[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return enc, nil
}

func (m *mockRepo) Update(ctx context.Context, enc *Encounter) error {
	m.encounters[enc.ID] = enc
	return nil
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if filter.PatientID != uuid.Nil && e.PatientID != filter.PatientID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockRepo) AddTranscript(ctx context.Context, tr *Transcript) error {
	tr.ID = uuid.New()
	m.transcripts[tr.EncounterID] = append(m.transcripts[tr.EncounterID], tr)
	return nil
}

func (m *mockRepo) GetTranscripts(ctx context.Context, encounterID uuid.UUID) ([]*Transcript, error) {
	return m.transcripts[encounterID], nil
}

type stubDirectory struct {
	known map[uuid.UUID]bool
}

func (s *stubDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	if !s.known[id] {
		return nil, fmt.Errorf("not found")
	}
	return &patient.Patient{ID: id}, nil
}

func TestCreateEncounter_Validation(t *testing.T) {
	pid := uuid.New()
	svc := NewService(newMockRepo(), &stubDirectory{known: map[uuid.UUID]bool{pid: true}})

	cases := []struct {
		name string
		enc  *Encounter
	}{
		{"missing patient", &Encounter{EncounterType: "office-visit"}},
		{"missing type", &Encounter{PatientID: pid}},
		{"bad status", &Encounter{PatientID: pid, EncounterType: "office-visit", Status: "bogus"}},
		{"unknown patient", &Encounter{PatientID: uuid.New(), EncounterType: "office-visit"}},
	}
	for _, tc := range cases {
		if err := svc.CreateEncounter(context.Background(), tc.enc); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestCreateEncounter_Defaults(t *testing.T) {
	pid := uuid.New()
	svc := NewService(newMockRepo(), &stubDirectory{known: map[uuid.UUID]bool{pid: true}})

	enc := &Encounter{PatientID: pid, EncounterType: "office-visit"}
	if err := svc.CreateEncounter(context.Background(), enc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc.Status != "active" {
		t.Errorf("expected default status active, got %s", enc.Status)
	}
	if enc.EncounterDate.IsZero() {
		t.Error("expected encounter_date to default to now")
	}
}

func TestIntake_CreatesEncounterAndTranscript(t *testing.T) {
	repo := newMockRepo()
	pid := uuid.New()
	svc := NewService(repo, &stubDirectory{known: map[uuid.UUID]bool{pid: true}})

	enc, tr, err := svc.Intake(context.Background(), &IntakeRequest{
		PatientID:     pid,
		EncounterType: "office-visit",
		Transcript:    "patient reports sore throat",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.txCalls != 1 {
		t.Errorf("expected atomic create, got %d tx calls", repo.txCalls)
	}
	if tr.EncounterID != enc.ID {
		t.Error("transcript not linked to encounter")
	}
}

func TestIntake_RequiresTranscript(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	_, _, err := svc.Intake(context.Background(), &IntakeRequest{
		PatientID:     uuid.New(),
		EncounterType: "office-visit",
	})
	if err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestDeleteEncounter_SoftDeletes(t *testing.T) {
	repo := newMockRepo()
	pid := uuid.New()
	svc := NewService(repo, nil)

	enc := &Encounter{PatientID: pid, EncounterType: "office-visit", EncounterDate: time.Now()}
	svc.CreateEncounter(context.Background(), enc)

	if err := svc.DeleteEncounter(context.Background(), enc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), enc.ID)
	if got.Status != "deleted" {
		t.Errorf("expected status deleted, got %s", got.Status)
	}
}

func TestUpdateEncounter_KeepsExistingFields(t *testing.T) {
	repo := newMockRepo()
	pid := uuid.New()
	svc := NewService(repo, nil)

	enc := &Encounter{PatientID: pid, EncounterType: "office-visit"}
	svc.CreateEncounter(context.Background(), enc)

	update := &Encounter{ID: enc.ID, ChiefComplaint: "sore throat"}
	if err := svc.UpdateEncounter(context.Background(), update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.EncounterType != "office-visit" || update.Status != "active" {
		t.Errorf("existing fields not preserved: %+v", update)
	}
	if update.PatientID != pid {
		t.Error("patient_id must not change on update")
	}
}

func TestAddTranscript_RequiresExistingEncounter(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	err := svc.AddTranscript(context.Background(), &Transcript{
		EncounterID: uuid.New(),
		Content:     "some content",
	})
	if err == nil {
		t.Error("expected error for unknown encounter")
	}
}
