// Package redisstore persists interview sessions and the candidate archive in Redis.
//
// Layout: one versioned JSON envelope per slice (interview:<id> and
// candidates) plus a plain "true"/"false" interviewInProgress:<id> flag.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// SchemaVersion tags every stored envelope.
const SchemaVersion = 1

const (
	interviewKeyPrefix  = "interview:"
	inProgressKeyPrefix = "interviewInProgress:"
	candidatesKey       = "candidates"
	maxUpsertRetries    = 5
)

type envelope[T any] struct {
	Version int `json:"version"`
	Data    T   `json:"data"`
}

// Store implements domain.SessionStore and domain.ArchiveRepository.
type Store struct {
	rdb        redis.UniversalClient
	prefix     string
	sessionTTL time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// WithSessionTTL expires idle session keys; zero keeps them forever.
func WithSessionTTL(d time.Duration) Option { return func(s *Store) { s.sessionTTL = d } }

// New wraps a go-redis client.
func New(rdb redis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=redis.NewClient: %w", err)
	}
	return redis.NewClient(opt), nil
}

func startSpan(ctx domain.Context, name string) (domain.Context, trace.Span) {
	ctx, span := otel.Tracer("store.redis").Start(ctx, name)
	span.SetAttributes(attribute.String("db.system", "redis"))
	return ctx, span
}

func (s *Store) interviewKey(id string) string  { return s.prefix + interviewKeyPrefix + id }
func (s *Store) inProgressKey(id string) string { return s.prefix + inProgressKeyPrefix + id }
func (s *Store) candidatesKey() string          { return s.prefix + candidatesKey }

// LoadSession reads the interview slice. A missing key or an envelope with
// another schema version reports not found.
func (s *Store) LoadSession(ctx domain.Context, id string) (domain.SessionState, bool, error) {
	ctx, span := startSpan(ctx, "redis.LoadSession")
	defer span.End()
	b, err := s.rdb.Get(ctx, s.interviewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionState{}, false, nil
	}
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("op=redis.LoadSession: %w", err)
	}
	var env envelope[domain.SessionState]
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.SessionState{}, false, fmt.Errorf("op=redis.LoadSession: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if env.Version != SchemaVersion {
		observability.LoggerFromContext(ctx).Warn("dropping session with foreign schema version",
			slog.String("session_id", id), slog.Int("version", env.Version))
		return domain.SessionState{}, false, nil
	}
	return env.Data, true, nil
}

// SaveSession replaces the interview slice.
func (s *Store) SaveSession(ctx domain.Context, id string, st domain.SessionState) error {
	ctx, span := startSpan(ctx, "redis.SaveSession")
	defer span.End()
	b, err := json.Marshal(envelope[domain.SessionState]{Version: SchemaVersion, Data: st})
	if err != nil {
		return fmt.Errorf("op=redis.SaveSession: %w", err)
	}
	if err := s.rdb.Set(ctx, s.interviewKey(id), b, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("op=redis.SaveSession: %w", err)
	}
	return nil
}

// InterviewInProgress reads the resume flag; a missing key is false.
func (s *Store) InterviewInProgress(ctx domain.Context, id string) (bool, error) {
	ctx, span := startSpan(ctx, "redis.InterviewInProgress")
	defer span.End()
	v, err := s.rdb.Get(ctx, s.inProgressKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("op=redis.InterviewInProgress: %w", err)
	}
	return v == "true", nil
}

// SetInterviewInProgress writes the resume flag.
func (s *Store) SetInterviewInProgress(ctx domain.Context, id string, inProgress bool) error {
	ctx, span := startSpan(ctx, "redis.SetInterviewInProgress")
	defer span.End()
	v := "false"
	if inProgress {
		v = "true"
	}
	if err := s.rdb.Set(ctx, s.inProgressKey(id), v, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("op=redis.SetInterviewInProgress: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx domain.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func decodeCandidates(b []byte) ([]domain.CandidateRecord, error) {
	var env envelope[[]domain.CandidateRecord]
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if env.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: candidates schema version %d", domain.ErrSchemaInvalid, env.Version)
	}
	return env.Data, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) readCandidates(ctx domain.Context, c getter) ([]domain.CandidateRecord, error) {
	b, err := c.Get(ctx, s.candidatesKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.CandidateRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCandidates(b)
}

// List returns the archive slice in stored order.
func (s *Store) List(ctx domain.Context) ([]domain.CandidateRecord, error) {
	ctx, span := startSpan(ctx, "redis.ListCandidates")
	defer span.End()
	recs, err := s.readCandidates(ctx, s.rdb)
	if err != nil {
		return nil, fmt.Errorf("op=redis.List: %w", err)
	}
	return recs, nil
}

// mutateCandidates applies f to the archive slice under WATCH so concurrent
// writers never lose each other's records.
func (s *Store) mutateCandidates(ctx domain.Context, op string, f func([]domain.CandidateRecord) ([]domain.CandidateRecord, error)) error {
	key := s.candidatesKey()
	txf := func(tx *redis.Tx) error {
		recs, err := s.readCandidates(ctx, tx)
		if err != nil {
			return err
		}
		recs, err = f(recs)
		if err != nil {
			return err
		}
		b, err := json.Marshal(envelope[[]domain.CandidateRecord]{Version: SchemaVersion, Data: recs})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxUpsertRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("op=redis.%s: %w", op, err)
		}
		return nil
	}
	return fmt.Errorf("op=redis.%s: %w: too many concurrent writers", op, domain.ErrConflict)
}

// Upsert replaces the record with the same email in place, keeping its id
// and position, or appends rec after the last position.
func (s *Store) Upsert(ctx domain.Context, rec domain.CandidateRecord) (domain.CandidateRecord, error) {
	ctx, span := startSpan(ctx, "redis.UpsertCandidate")
	defer span.End()
	var stored domain.CandidateRecord
	err := s.mutateCandidates(ctx, "Upsert", func(recs []domain.CandidateRecord) ([]domain.CandidateRecord, error) {
		next := 0
		for i, r := range recs {
			if strings.EqualFold(r.Email, rec.Email) {
				stored = rec
				stored.ID = r.ID
				stored.Position = r.Position
				recs[i] = stored
				return recs, nil
			}
			next = max(next, r.Position+1)
		}
		stored = rec
		stored.Position = next
		return append(recs, stored), nil
	})
	if err != nil {
		return domain.CandidateRecord{}, err
	}
	return stored, nil
}

// Delete removes the record with id.
func (s *Store) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "redis.DeleteCandidate")
	defer span.End()
	return s.mutateCandidates(ctx, "Delete", func(recs []domain.CandidateRecord) ([]domain.CandidateRecord, error) {
		i := slices.IndexFunc(recs, func(r domain.CandidateRecord) bool { return r.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: candidate %s", domain.ErrNotFound, id)
		}
		return slices.Delete(recs, i, i+1), nil
	})
}
