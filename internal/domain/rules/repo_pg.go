package rules

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

// SaveAnalysis writes findings and their recommendations atomically.
func (r *repoPG) SaveAnalysis(ctx context.Context, findings []*FindingRecord, recommendations []*RecommendationRecord) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		for _, f := range findings {
			f.ID = uuid.New()
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO safety_finding (id, encounter_id, rule_id, title, severity, details, rule_set_version)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				f.ID, f.EncounterID, f.RuleID, f.Title, f.Severity, f.Details, f.RuleSetVersion,
			)
			if err != nil {
				return err
			}
		}
		for _, rec := range recommendations {
			rec.ID = uuid.New()
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO safety_recommendation (id, encounter_id, rule_id, reason, alternatives)
				VALUES ($1,$2,$3,$4,$5)`,
				rec.ID, rec.EncounterID, rec.RuleID, rec.Reason, rec.Alternatives,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) FindingsByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*FindingRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, rule_id, title, severity, details, rule_set_version, created_at
		FROM safety_finding WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []*FindingRecord
	for rows.Next() {
		var f FindingRecord
		if err := rows.Scan(&f.ID, &f.EncounterID, &f.RuleID, &f.Title, &f.Severity, &f.Details, &f.RuleSetVersion, &f.CreatedAt); err != nil {
			return nil, err
		}
		findings = append(findings, &f)
	}
	return findings, rows.Err()
}

func (r *repoPG) RecommendationsByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*RecommendationRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, rule_id, reason, alternatives, created_at
		FROM safety_recommendation WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*RecommendationRecord
	for rows.Next() {
		var rec RecommendationRecord
		if err := rows.Scan(&rec.ID, &rec.EncounterID, &rec.RuleID, &rec.Reason, &rec.Alternatives, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
