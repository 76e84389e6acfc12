package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgRepository stores fragments and their embeddings in Postgres with
// pgvector. Cosine distance is the index metric; scores surfaced to the
// pipeline are cosine similarity (1 - distance).
type PgRepository struct {
	db  *pgxpool.Pool
	dim int
}

func NewPgRepository(db *pgxpool.Pool, dim int) *PgRepository {
	return &PgRepository{db: db, dim: dim}
}

// Reset drops and recreates the fragment table. Re-ingestion replaces the
// index wholesale; there is no incremental update path.
func (r *PgRepository) Reset(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	_, err = r.db.Exec(ctx, `DROP TABLE IF EXISTS leaflet_fragment`)
	if err != nil {
		return fmt.Errorf("drop fragment table: %w", err)
	}

	_, err = r.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE leaflet_fragment (
			id        bigserial PRIMARY KEY,
			drug_name text NOT NULL,
			section   text NOT NULL,
			content   text NOT NULL,
			source    text NOT NULL DEFAULT '',
			source_id text NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)
	`, r.dim))
	if err != nil {
		return fmt.Errorf("create fragment table: %w", err)
	}

	return nil
}

func (r *PgRepository) InsertFragment(ctx context.Context, f *Fragment, embedding []float32) (int64, error) {
	if len(embedding) != r.dim {
		return 0, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(embedding), r.dim)
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO leaflet_fragment (drug_name, section, content, source, source_id, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		f.DrugName,
		f.Section,
		f.Text,
		f.Source,
		f.SourceID,
		pgvector.NewVector(embedding),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// SearchSimilar returns the top-k fragments ranked by cosine similarity.
// Ties on distance fall back to ascending id so equal scores always come
// back in the same order.
func (r *PgRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]RetrievalResult, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(embedding), r.dim)
	}
	if limit <= 0 {
		limit = 3
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx, `
		SELECT id, drug_name, section, content, source, source_id,
		       1 - (embedding <=> $1) AS score
		FROM leaflet_fragment
		ORDER BY embedding <=> $1, id ASC
		LIMIT $2
	`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var res RetrievalResult
		var score float64
		if err := rows.Scan(
			&res.Fragment.ID,
			&res.Fragment.DrugName,
			&res.Fragment.Section,
			&res.Fragment.Text,
			&res.Fragment.Source,
			&res.Fragment.SourceID,
			&score,
		); err != nil {
			return nil, err
		}
		res.Score = float32(score)
		results = append(results, res)
	}

	return results, rows.Err()
}

func (r *PgRepository) Info(ctx context.Context) (IndexInfo, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM leaflet_fragment`).Scan(&count)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return IndexInfo{Count: count, VectorSize: r.dim}, nil
}

// VerifyDimensions checks the stored vectors against the configured embedder
// dimensionality. Called once at startup; a mismatch means the index was
// built with a different model and queries cannot work.
func (r *PgRepository) VerifyDimensions(ctx context.Context, embedderDim int) error {
	if embedderDim != r.dim {
		return fmt.Errorf("%w: embedder produces %d, repository configured for %d",
			ErrDimensionMismatch, embedderDim, r.dim)
	}

	var stored int
	err := r.db.QueryRow(ctx, `
		SELECT vector_dims(embedding) FROM leaflet_fragment LIMIT 1
	`).Scan(&stored)
	if err != nil {
		return classifyDimProbeErr(err)
	}
	if stored != r.dim {
		return fmt.Errorf("%w: index has %d, configured %d", ErrDimensionMismatch, stored, r.dim)
	}

	return nil
}

// classifyDimProbeErr maps errors from the stored-dimension probe. An empty
// or not-yet-created table means there is nothing to compare against;
// anything else means the store cannot be trusted and must surface.
func classifyDimProbeErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var _ Repository = (*PgRepository)(nil)
