package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"mofo-asi/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository persiste perfiles fusionados con el vector de rasgos
// nucleares para busqueda de vecinos cercanos en el matching. Opcional,
// como ResultRepository.
type ProfileRepository interface {
	Upsert(ctx context.Context, userID string, profile domain.PersonalityProfile) error
	Get(ctx context.Context, userID string) (domain.PersonalityProfile, error)
	Nearest(ctx context.Context, profile domain.PersonalityProfile, k int) ([]string, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func traitVector(p domain.PersonalityProfile) pgvector.Vector {
	core := p.CoreTraits()
	v := make([]float32, len(core))
	for i, t := range core {
		v[i] = float32(t)
	}
	return pgvector.NewVector(v)
}

func (r *PgProfileRepository) Upsert(ctx context.Context, userID string, profile domain.PersonalityProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO personality_profiles (user_id, traits, detail, source, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			traits = EXCLUDED.traits,
			detail = EXCLUDED.detail,
			source = EXCLUDED.source,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		userID,
		traitVector(profile),
		raw,
		profile.Source,
		profile.Confidence,
		time.Now().UTC(),
	)
	return err
}

func (r *PgProfileRepository) Get(ctx context.Context, userID string) (domain.PersonalityProfile, error) {
	const query = `
		SELECT detail
		FROM personality_profiles
		WHERE user_id = $1
	`
	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PersonalityProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.PersonalityProfile{}, err
	}

	var profile domain.PersonalityProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.PersonalityProfile{}, err
	}
	return profile, nil
}

// Nearest devuelve los user_id con vector de rasgos mas cercano, excluyendo
// al propio usuario si esta persistido.
func (r *PgProfileRepository) Nearest(ctx context.Context, profile domain.PersonalityProfile, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT user_id
		FROM personality_profiles
		ORDER BY traits <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, traitVector(profile), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
