package soap

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinscribe/clinscribe/internal/platform/reasoner"
)

// minTranscriptLen is the shortest transcript worth sending to the reasoner.
const minTranscriptLen = 20

// NoteExtractor structures a transcript into a four-section note.
type NoteExtractor interface {
	ExtractNote(ctx context.Context, transcript string) (*reasoner.Note, error)
}

type Service struct {
	repo      Repository
	extractor NoteExtractor
	logger    zerolog.Logger
}

// NewService builds the note pipeline. repo may be nil when notes should not
// be persisted.
func NewService(repo Repository, extractor NoteExtractor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, extractor: extractor, logger: logger}
}

// transcriptHash is a short content fingerprint for log correlation.
// Transcript content itself is never logged.
func transcriptHash(transcript string) string {
	h := fnv.New32a()
	h.Write([]byte(transcript))
	return fmt.Sprintf("%08x", h.Sum32())
}

// Extract validates the transcript and runs note extraction. Reasoner error
// kinds pass through unwrapped so the handler can map them to distinct
// responses.
func (s *Service) Extract(ctx context.Context, req *ExtractRequest) (*Note, error) {
	if req.Transcript == "" {
		return nil, fmt.Errorf("transcript is required")
	}
	if len(req.Transcript) < minTranscriptLen {
		return nil, fmt.Errorf("transcript must be at least %d characters", minTranscriptLen)
	}

	log := s.logger.With().
		Int("transcript_len", len(req.Transcript)).
		Str("transcript_hash", transcriptHash(req.Transcript)).
		Logger()
	log.Info().Msg("note extraction requested")

	extracted, err := s.extractor.ExtractNote(ctx, req.Transcript)
	if err != nil {
		log.Warn().Err(err).Msg("note extraction failed")
		return nil, err
	}

	note := &Note{
		Subjective:       extracted.Subjective,
		Objective:        extracted.Objective,
		Assessment:       extracted.Assessment,
		Plan:             extracted.Plan,
		ModelUsed:        extracted.Model,
		ProcessingTimeMs: extracted.ProcessingMS,
		ConfidenceScore:  extracted.Confidence,
	}

	if req.EncounterID != "" && s.repo != nil {
		if err := s.persist(ctx, req.EncounterID, note); err != nil {
			log.Error().Err(err).Str("encounter_id", req.EncounterID).Msg("persist note")
		}
	}

	return note, nil
}

func (s *Service) persist(ctx context.Context, encounterID string, note *Note) error {
	eid, err := uuid.Parse(encounterID)
	if err != nil {
		return fmt.Errorf("invalid encounter_id: %w", err)
	}
	return s.repo.Create(ctx, &NoteRecord{
		EncounterID:      eid,
		Subjective:       note.Subjective,
		Objective:        note.Objective,
		Assessment:       note.Assessment,
		Plan:             note.Plan,
		ModelUsed:        note.ModelUsed,
		ProcessingTimeMs: note.ProcessingTimeMs,
		ConfidenceScore:  note.ConfidenceScore,
	})
}

// GetNotesByEncounter returns persisted notes, newest first.
func (s *Service) GetNotesByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*NoteRecord, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("note persistence is not configured")
	}
	return s.repo.ListByEncounter(ctx, encounterID)
}

// SessionFinished receives end-of-session transcripts from the streaming
// protocol and runs best-effort extraction detached from the connection's
// lifecycle. Errors are logged, never surfaced; the session is already gone.
func (s *Service) SessionFinished(sessionID, transcript string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		log := s.logger.With().
			Str("session_id", sessionID).
			Int("transcript_len", len(transcript)).
			Logger()

		if len(transcript) < minTranscriptLen {
			log.Debug().Msg("session transcript too short for extraction")
			return
		}

		note, err := s.extractor.ExtractNote(ctx, transcript)
		if err != nil {
			log.Warn().Err(err).Msg("post-session note extraction failed")
			return
		}
		log.Info().
			Str("model_used", note.Model).
			Int64("processing_time_ms", note.ProcessingMS).
			Msg("post-session note extracted")
	}()
}
