package postgres

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS candidates (
	id           TEXT PRIMARY KEY,
	position     INTEGER NOT NULL,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	summary      TEXT NOT NULL,
	chat_history JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	resume_text  TEXT NOT NULL
)`

const emailIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS candidates_email_key ON candidates (lower(email))`

// CandidateRepo stores completed candidate records. The row of an existing
// email is updated in place and keeps its id and position.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

func startSpan(ctx domain.Context, name, op string) (domain.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "candidates"),
	)
	return ctx, span
}

// Migrate creates the candidates table and its email index.
func (r *CandidateRepo) Migrate(ctx domain.Context) error {
	ctx, span := startSpan(ctx, "candidates.Migrate", "CREATE")
	defer span.End()
	for _, q := range []string{schemaSQL, emailIndexSQL} {
		if _, err := r.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("op=candidates.migrate: %w", err)
		}
	}
	return nil
}

// Upsert inserts rec or updates the row with the same email, and returns rec
// with the stored id and position.
func (r *CandidateRepo) Upsert(ctx domain.Context, rec domain.CandidateRecord) (domain.CandidateRecord, error) {
	ctx, span := startSpan(ctx, "candidates.Upsert", "INSERT")
	defer span.End()
	history, err := json.Marshal(rec.ChatHistory)
	if err != nil {
		return domain.CandidateRecord{}, fmt.Errorf("op=candidates.upsert: %w", err)
	}
	q := `INSERT INTO candidates (id, position, name, email, phone, score, summary, chat_history, completed_at, resume_text)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT ((lower(email)))
	DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, phone=EXCLUDED.phone, score=EXCLUDED.score, summary=EXCLUDED.summary, chat_history=EXCLUDED.chat_history, completed_at=EXCLUDED.completed_at, resume_text=EXCLUDED.resume_text
	RETURNING id, position`
	err = r.Pool.QueryRow(ctx, q, rec.ID, rec.Position, rec.Name, rec.Email, rec.Phone, rec.Score, rec.Summary, history, rec.CompletedAt.UTC(), rec.ResumeText).
		Scan(&rec.ID, &rec.Position)
	if err != nil {
		return domain.CandidateRecord{}, fmt.Errorf("op=candidates.upsert: %w", err)
	}
	return rec, nil
}

// List returns all records ordered by position.
func (r *CandidateRepo) List(ctx domain.Context) ([]domain.CandidateRecord, error) {
	ctx, span := startSpan(ctx, "candidates.List", "SELECT")
	defer span.End()
	q := `SELECT id, position, name, email, phone, score, summary, chat_history, completed_at, resume_text FROM candidates ORDER BY position`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=candidates.list: %w", err)
	}
	defer rows.Close()
	out := []domain.CandidateRecord{}
	for rows.Next() {
		var rec domain.CandidateRecord
		var history []byte
		if err := rows.Scan(&rec.ID, &rec.Position, &rec.Name, &rec.Email, &rec.Phone, &rec.Score, &rec.Summary, &history, &rec.CompletedAt, &rec.ResumeText); err != nil {
			return nil, fmt.Errorf("op=candidates.list: %w", err)
		}
		if err := json.Unmarshal(history, &rec.ChatHistory); err != nil {
			return nil, fmt.Errorf("op=candidates.list: %w: %v", domain.ErrSchemaInvalid, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidates.list: %w", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

// Delete removes the record with id.
func (r *CandidateRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "candidates.Delete", "DELETE")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM candidates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=candidates.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidates.delete: %w: candidate %s", domain.ErrNotFound, id)
	}
	return nil
}

// Ping checks database connectivity.
func (r *CandidateRepo) Ping(ctx domain.Context) error {
	return r.Pool.Ping(ctx)
}
