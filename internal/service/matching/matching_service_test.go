package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) LatestByTravelerAndStatus(ctx context.Context, travelerID string, status domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, travelerID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) RecordPayment(ctx context.Context, id string, method domain.PaymentMethod, reference string) error {
	return m.Called(ctx, id, method, reference).Error(0)
}

func (m *MockBookingRepository) ListConfirmedByRoute(ctx context.Context, key domain.RouteKey, excludeTraveler string) ([]domain.Booking, error) {
	args := m.Called(ctx, key, excludeTraveler)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockCompanionRepository struct {
	mock.Mock
}

func (m *MockCompanionRepository) Profiles(ctx context.Context, ids []string) (map[string]domain.CompanionProfile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.CompanionProfile), args.Error(1)
}

func (m *MockCompanionRepository) SetPayoutsEnabled(ctx context.Context, accountID string, enabled bool) error {
	return m.Called(ctx, accountID, enabled).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetCandidates(ctx context.Context, key string) ([]domain.CompanionCandidate, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CompanionCandidate), args.Error(1)
}

func (m *MockCache) SetCandidates(ctx context.Context, key string, candidates []domain.CompanionCandidate) error {
	return m.Called(ctx, key, candidates).Error(0)
}

var flightDate = time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)

func testQuery() Query {
	return Query{Route: "JFK-LHR", Date: flightDate, TravelerID: "traveler-1"}
}

func TestMatchingService_Search_RanksSeatedCompanions(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepository)
	companions := new(MockCompanionRepository)
	cache := new(MockCache)
	key := domain.RouteKey{Route: "JFK-LHR", Date: flightDate}

	cache.On("GetCandidates", ctx, "JFK-LHR:2026-11-03:traveler-1").Return(nil, nil)
	bookings.On("ListConfirmedByRoute", ctx, key, "traveler-1").Return([]domain.Booking{
		{TravelerID: "c1", SeatNumber: "10A"},
		{TravelerID: "c2", SeatNumber: "10B"},
		{TravelerID: "c3", SeatNumber: "10C"},
	}, nil)
	companions.On("Profiles", ctx, []string{"c1", "c2", "c3"}).Return(map[string]domain.CompanionProfile{
		"c1": {ID: "c1", Name: "Ana"},
		"c3": {ID: "c3", Name: "Cleo", Bio: "Frequent flyer"},
	}, nil)
	cache.On("SetCandidates", ctx, "JFK-LHR:2026-11-03:traveler-1", mock.Anything).Return(nil)

	service := NewMatchingService(bookings, companions, cache, logger.Discard())
	result, err := service.Search(ctx, testQuery())

	require.NoError(t, err)
	assert.False(t, result.NoneFound)
	require.Len(t, result.Candidates, 3)
	assert.Equal(t, "c3", result.Candidates[0].CompanionID)
	assert.Equal(t, "Cleo", result.Candidates[0].Name)
	assert.Equal(t, "c2", result.Candidates[2].CompanionID)
	assert.False(t, result.Candidates[2].HasAdjacentVacant)
	cache.AssertExpectations(t)
	bookings.AssertExpectations(t)
	companions.AssertExpectations(t)
}

func TestMatchingService_Search_NoneFound(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepository)
	companions := new(MockCompanionRepository)

	bookings.On("ListConfirmedByRoute", ctx, mock.Anything, "traveler-1").Return([]domain.Booking{}, nil)

	service := NewMatchingService(bookings, companions, nil, logger.Discard())
	result, err := service.Search(ctx, testQuery())

	require.NoError(t, err)
	assert.True(t, result.NoneFound)
	assert.NotNil(t, result.Candidates)
	assert.Empty(t, result.Candidates)
	companions.AssertNotCalled(t, "Profiles", mock.Anything, mock.Anything)
}

func TestMatchingService_Search_CacheHit(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepository)
	cache := new(MockCache)
	cached := []domain.CompanionCandidate{{CompanionID: "c1", MatchScore: 30}}

	cache.On("GetCandidates", ctx, mock.Anything).Return(cached, nil)

	service := NewMatchingService(bookings, new(MockCompanionRepository), cache, logger.Discard())
	result, err := service.Search(ctx, testQuery())

	require.NoError(t, err)
	assert.Equal(t, cached, result.Candidates)
	bookings.AssertNotCalled(t, "ListConfirmedByRoute", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchingService_Search_CacheErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepository)
	cache := new(MockCache)

	cache.On("GetCandidates", ctx, mock.Anything).Return(nil, errors.New("redis down"))
	bookings.On("ListConfirmedByRoute", ctx, mock.Anything, mock.Anything).Return([]domain.Booking{}, nil)

	service := NewMatchingService(bookings, new(MockCompanionRepository), cache, logger.Discard())
	result, err := service.Search(ctx, testQuery())

	require.NoError(t, err)
	assert.True(t, result.NoneFound)
}

func TestMatchingService_Search_StoreError(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepository)
	bookings.On("ListConfirmedByRoute", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	service := NewMatchingService(bookings, new(MockCompanionRepository), nil, logger.Discard())
	_, err := service.Search(ctx, testQuery())

	assert.Error(t, err)
}

func TestMatchingService_Search_Validation(t *testing.T) {
	service := NewMatchingService(new(MockBookingRepository), new(MockCompanionRepository), nil, logger.Discard())

	_, err := service.Search(context.Background(), Query{Date: flightDate})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Search(context.Background(), Query{Route: "JFK-LHR"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
