package encounter

import (
	"context"
	"fmt"

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

const encCols = `id, patient_id, encounter_type, chief_complaint, status, encounter_date, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (id, patient_id, encounter_type, chief_complaint, status, encounter_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		enc.ID, enc.PatientID, enc.EncounterType, enc.ChiefComplaint, enc.Status, enc.EncounterDate,
	)
	return err
}

// CreateWithTranscript writes the encounter and its first transcript
// atomically.
func (r *repoPG) CreateWithTranscript(ctx context.Context, enc *Encounter, tr *Transcript) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.Create(ctx, enc); err != nil {
			return fmt.Errorf("create encounter: %w", err)
		}
		tr.EncounterID = enc.ID
		if err := r.AddTranscript(ctx, tr); err != nil {
			return fmt.Errorf("create transcript: %w", err)
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return scanEnc(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, enc *Encounter) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET
			encounter_type=$2, chief_complaint=$3, status=$4, encounter_date=$5, updated_at=NOW()
		WHERE id = $1`,
		enc.ID, enc.EncounterType, enc.ChiefComplaint, enc.Status, enc.EncounterDate,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Encounter, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0

	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if filter.PatientID != uuid.Nil {
		where += " AND patient_id = " + next()
		args = append(args, filter.PatientID)
	}
	if filter.Status != "" {
		where += " AND status = " + next()
		args = append(args, filter.Status)
	}
	if filter.EncounterType != "" {
		where += " AND encounter_type = " + next()
		args = append(args, filter.EncounterType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM encounter `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + encCols + ` FROM encounter ` + where +
		` ORDER BY encounter_date DESC LIMIT ` + next() + ` OFFSET ` + next()
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var encs []*Encounter
	for rows.Next() {
		var e Encounter
		if err := rows.Scan(&e.ID, &e.PatientID, &e.EncounterType, &e.ChiefComplaint,
			&e.Status, &e.EncounterDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		encs = append(encs, &e)
	}
	return encs, total, rows.Err()
}

func (r *repoPG) AddTranscript(ctx context.Context, tr *Transcript) error {
	tr.ID = uuid.New()
	if tr.Language == "" {
		tr.Language = "en"
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO transcript (id, encounter_id, content, language, duration_seconds)
		VALUES ($1,$2,$3,$4,$5)`,
		tr.ID, tr.EncounterID, tr.Content, tr.Language, tr.DurationSeconds,
	)
	return err
}

func (r *repoPG) GetTranscripts(ctx context.Context, encounterID uuid.UUID) ([]*Transcript, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, content, language, duration_seconds, created_at
		FROM transcript WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var tr Transcript
		if err := rows.Scan(&tr.ID, &tr.EncounterID, &tr.Content, &tr.Language,
			&tr.DurationSeconds, &tr.CreatedAt); err != nil {
			return nil, err
		}
		transcripts = append(transcripts, &tr)
	}
	return transcripts, rows.Err()
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.EncounterType, &e.ChiefComplaint,
		&e.Status, &e.EncounterDate, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
