package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// DefinitionLoader loads quiz definition JSONB from Postgres.
type DefinitionLoader struct {
	pool *pgxpool.Pool
}

func NewDefinitionLoader(pool *pgxpool.Pool) *DefinitionLoader {
	return &DefinitionLoader{pool: pool}
}

func (l *DefinitionLoader) LoadDefinition(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quiz_definitions WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load definition: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal definition: %w", err)
	}
	return quiz, nil
}
