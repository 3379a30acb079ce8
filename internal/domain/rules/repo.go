package rules

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	SaveAnalysis(ctx context.Context, findings []*FindingRecord, recommendations []*RecommendationRecord) error
	FindingsByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*FindingRecord, error)
	RecommendationsByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*RecommendationRecord, error)
}
