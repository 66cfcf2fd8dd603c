package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mofo-asi/internal/domain"
)

var ErrResultNotFound = errors.New("result not found")

// ResultRepository archiva los resultados de compatibilidad de sesiones ya
// completadas. Es opcional: sin base de datos los resultados viven solo en
// la sesion en memoria.
type ResultRepository interface {
	Save(ctx context.Context, sessionID string, result domain.CompatibilityResult) error
	Get(ctx context.Context, sessionID string) (domain.CompatibilityResult, error)
}

type PgResultRepository struct {
	pool *pgxpool.Pool
}

func NewPgResultRepository(pool *pgxpool.Pool) *PgResultRepository {
	return &PgResultRepository{pool: pool}
}

func (r *PgResultRepository) Save(ctx context.Context, sessionID string, result domain.CompatibilityResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO session_results (session_id, overall, personality, behavioral, recommendation, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		sessionID,
		result.Overall,
		result.Personality,
		result.Behavioral,
		result.Recommendation,
		raw,
		time.Now().UTC(),
	)
	return err
}

func (r *PgResultRepository) Get(ctx context.Context, sessionID string) (domain.CompatibilityResult, error) {
	const query = `
		SELECT detail
		FROM session_results
		WHERE session_id = $1
	`
	var raw []byte
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CompatibilityResult{}, ErrResultNotFound
	}
	if err != nil {
		return domain.CompatibilityResult{}, err
	}

	var result domain.CompatibilityResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.CompatibilityResult{}, err
	}
	return result, nil
}
