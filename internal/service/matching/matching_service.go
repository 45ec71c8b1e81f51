package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/repository"
	"github.com/sirupsen/logrus"
)

type MatchingUseCase interface {
	Search(ctx context.Context, query Query) (*Result, error)
}

type Cache interface {
	GetCandidates(ctx context.Context, key string) ([]domain.CompanionCandidate, error)
	SetCandidates(ctx context.Context, key string, candidates []domain.CompanionCandidate) error
}

type Query struct {
	Route      string
	Date       time.Time
	TravelerID string
}

// Result separates "nobody on this flight" from a failed search.
type Result struct {
	Candidates []domain.CompanionCandidate
	NoneFound  bool
}

type MatchingService struct {
	bookings   repository.BookingRepository
	companions repository.CompanionRepository
	cache      Cache
	log        *logrus.Logger
}

func NewMatchingService(bookings repository.BookingRepository, companions repository.CompanionRepository, cache Cache, log *logrus.Logger) *MatchingService {
	return &MatchingService{bookings: bookings, companions: companions, cache: cache, log: log}
}

func (s *MatchingService) Search(ctx context.Context, query Query) (*Result, error) {
	if query.Route == "" {
		return nil, fmt.Errorf("%w: route is required", domain.ErrInvalidInput)
	}
	if query.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}

	key := cacheKey(query)
	if s.cache != nil {
		cached, err := s.cache.GetCandidates(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("matching cache read failed")
		} else if cached != nil {
			return newResult(cached), nil
		}
	}

	routeKey := domain.RouteKey{Route: query.Route, Date: query.Date}
	seated, err := s.bookings.ListConfirmedByRoute(ctx, routeKey, query.TravelerID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings for %s: %w", routeKey, err)
	}
	if len(seated) == 0 {
		return newResult(nil), nil
	}

	ids := make([]string, 0, len(seated))
	for _, b := range seated {
		ids = append(ids, b.TravelerID)
	}
	profiles, err := s.companions.Profiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load companion profiles: %w", err)
	}

	candidates := make([]Candidate, 0, len(seated))
	for _, b := range seated {
		profile, ok := profiles[b.TravelerID]
		if !ok {
			profile = domain.CompanionProfile{ID: b.TravelerID}
		}
		candidates = append(candidates, Candidate{Profile: profile, Seat: b.SeatNumber})
	}

	ranked := Match(candidates)
	if s.cache != nil {
		if err := s.cache.SetCandidates(ctx, key, ranked); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("matching cache write failed")
		}
	}
	return newResult(ranked), nil
}

func newResult(candidates []domain.CompanionCandidate) *Result {
	if candidates == nil {
		candidates = []domain.CompanionCandidate{}
	}
	return &Result{Candidates: candidates, NoneFound: len(candidates) == 0}
}

func cacheKey(q Query) string {
	return domain.RouteKey{Route: q.Route, Date: q.Date}.String() + ":" + q.TravelerID
}

var _ MatchingUseCase = (*MatchingService)(nil)
