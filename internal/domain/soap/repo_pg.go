package soap

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinscribe/clinscribe/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const noteCols = `id, encounter_id, subjective, objective, assessment, plan,
	model_used, processing_time_ms, confidence_score, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, note *NoteRecord) error {
	note.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO soap_note (
			id, encounter_id, subjective, objective, assessment, plan,
			model_used, processing_time_ms, confidence_score
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		note.ID, note.EncounterID, note.Subjective, note.Objective, note.Assessment, note.Plan,
		note.ModelUsed, note.ProcessingTimeMs, note.ConfidenceScore,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*NoteRecord, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM soap_note WHERE id = $1`, id))
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*NoteRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM soap_note WHERE encounter_id = $1 ORDER BY created_at DESC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*NoteRecord
	for rows.Next() {
		var n NoteRecord
		if err := rows.Scan(
			&n.ID, &n.EncounterID, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
			&n.ModelUsed, &n.ProcessingTimeMs, &n.ConfidenceScore, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func scanNote(row pgx.Row) (*NoteRecord, error) {
	var n NoteRecord
	err := row.Scan(
		&n.ID, &n.EncounterID, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.ModelUsed, &n.ProcessingTimeMs, &n.ConfidenceScore, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
