package usecase

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// Archive sort keys.
const (
	SortByScore = "score"
	SortByName  = "name"
	SortByDate  = "date"
)

// ArchiveService is the CandidateArchive: completed interview records keyed
// by email, with search and sort projections for the dashboard.
type ArchiveService struct {
	Repo domain.ArchiveRepository
	// Mirror optionally receives a copy of every write; its failures are logged only.
	Mirror domain.ArchiveRepository
	NewID  func() string
}

// NewArchiveService constructs an ArchiveService. mirror may be nil.
func NewArchiveService(repo, mirror domain.ArchiveRepository) *ArchiveService {
	return &ArchiveService{Repo: repo, Mirror: mirror, NewID: uuid.NewString}
}

// Upsert stores rec. A record with the same email (case-insensitive) is
// replaced in place and keeps its id; otherwise rec is appended with a new id.
// The returned record is the one the repository stored; the mirror receives
// that same record.
func (s *ArchiveService) Upsert(ctx domain.Context, rec domain.CandidateRecord) (domain.CandidateRecord, error) {
	if strings.TrimSpace(rec.Email) == "" {
		return domain.CandidateRecord{}, fmt.Errorf("op=archive.Upsert: %w: email is required", domain.ErrInvalidArgument)
	}
	rec.ID = s.NewID()
	stored, err := s.Repo.Upsert(ctx, rec)
	if err != nil {
		return domain.CandidateRecord{}, fmt.Errorf("op=archive.Upsert: %w", err)
	}
	if s.Mirror != nil {
		s.mirrorUpsert(ctx, stored)
	}
	return stored, nil
}

// mirrorUpsert copies stored to the mirror. A mirror row left under another
// id for the same email is replaced so both stores agree on the id.
func (s *ArchiveService) mirrorUpsert(ctx domain.Context, stored domain.CandidateRecord) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("candidate_id", stored.ID))
	mirrored, err := s.Mirror.Upsert(ctx, stored)
	if err != nil {
		lg.Warn("archive mirror upsert failed", slog.Any("error", err))
		return
	}
	if mirrored.ID == stored.ID {
		return
	}
	lg.Warn("archive mirror held another id for this email", slog.String("mirror_id", mirrored.ID))
	if err := s.Mirror.Delete(ctx, mirrored.ID); err != nil {
		lg.Warn("archive mirror delete failed", slog.Any("error", err))
		return
	}
	if _, err := s.Mirror.Upsert(ctx, stored); err != nil {
		lg.Warn("archive mirror upsert failed", slog.Any("error", err))
	}
}

// List returns records in insertion order.
func (s *ArchiveService) List(ctx domain.Context) ([]domain.CandidateRecord, error) {
	recs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=archive.List: %w", err)
	}
	slices.SortStableFunc(recs, func(a, b domain.CandidateRecord) int { return cmp.Compare(a.Position, b.Position) })
	return recs, nil
}

// Get returns the record with id.
func (s *ArchiveService) Get(ctx domain.Context, id string) (domain.CandidateRecord, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return domain.CandidateRecord{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.CandidateRecord{}, fmt.Errorf("op=archive.Get: %w: candidate %s", domain.ErrNotFound, id)
}

// Delete removes the record with id.
func (s *ArchiveService) Delete(ctx domain.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("op=archive.Delete: %w", err)
	}
	if s.Mirror != nil {
		if err := s.Mirror.Delete(ctx, id); err != nil {
			observability.LoggerFromContext(ctx).Warn("archive mirror delete failed",
				slog.String("candidate_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// Search filters records whose name or email contains term, case-insensitively.
// An empty term matches everything.
func Search(recs []domain.CandidateRecord, term string) []domain.CandidateRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]domain.CandidateRecord, 0, len(recs))
	for _, r := range recs {
		if term == "" || strings.Contains(strings.ToLower(r.Name), term) || strings.Contains(strings.ToLower(r.Email), term) {
			out = append(out, r)
		}
	}
	return out
}

// Sorted returns a sorted copy of recs: score descending, name ascending or
// completion time descending. An empty key keeps the input order.
func Sorted(recs []domain.CandidateRecord, key string) ([]domain.CandidateRecord, error) {
	out := slices.Clone(recs)
	switch key {
	case "":
	case SortByScore:
		slices.SortStableFunc(out, func(a, b domain.CandidateRecord) int { return cmp.Compare(b.Score, a.Score) })
	case SortByName:
		slices.SortStableFunc(out, func(a, b domain.CandidateRecord) int { return cmp.Compare(a.Name, b.Name) })
	case SortByDate:
		slices.SortStableFunc(out, func(a, b domain.CandidateRecord) int { return b.CompletedAt.Compare(a.CompletedAt) })
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidArgument, key)
	}
	return out, nil
}

// View lists, filters and sorts in one call for the dashboard.
func (s *ArchiveService) View(ctx domain.Context, term, key string) ([]domain.CandidateRecord, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Sorted(Search(recs, term), key)
}
