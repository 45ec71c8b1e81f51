package refund

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/kafka"
	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/Domenick1991/flightbuddy/internal/payment"
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
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, payout *domain.Payout) error {
	return m.Called(ctx, payout).Error(0)
}

func (m *MockPayoutRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *MockPayoutRepository) UpdateStatus(ctx context.Context, id string, from []domain.PayoutStatus, to domain.PayoutStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *MockPayoutRepository) MarkPaidByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

type MockMethod struct {
	mock.Mock
	method domain.PaymentMethod
}

func (m *MockMethod) Method() domain.PaymentMethod { return m.method }

func (m *MockMethod) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Checkout), args.Error(1)
}

func (m *MockMethod) Capture(ctx context.Context, reference string) (*domain.PaymentEvent, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentEvent), args.Error(1)
}

func (m *MockMethod) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundOutcome), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

var refundableFrom = []domain.PayoutStatus{domain.PayoutStatusPending, domain.PayoutStatusPaid}

func confirmedBooking() *domain.Booking {
	return &domain.Booking{
		ID:               "b1",
		TravelerID:       "traveler-1",
		Status:           domain.BookingStatusConfirmed,
		PaymentMethod:    domain.PaymentMethodConnect,
		PaymentReference: "pi_booking",
	}
}

type fixture struct {
	bookings *MockBookingRepository
	payouts  *MockPayoutRepository
	connect  *MockMethod
	direct   *MockMethod
	service  *RefundService
}

func newFixture(opts ...RefundServiceOption) *fixture {
	f := &fixture{
		bookings: new(MockBookingRepository),
		payouts:  new(MockPayoutRepository),
		connect:  &MockMethod{method: domain.PaymentMethodConnect},
		direct:   &MockMethod{method: domain.PaymentMethodDirect},
	}
	f.service = NewRefundService(f.bookings, f.payouts, payment.NewRegistry(f.connect, f.direct), logger.Discard(), opts...)
	return f
}

func TestRefundService_PendingBookingHasNothingToReverse(t *testing.T) {
	f := newFixture()
	b := confirmedBooking()
	b.Status = domain.BookingStatusPending
	f.bookings.On("GetByID", mock.Anything, "b1").Return(b, nil)

	_, err := f.service.Refund(context.Background(), "b1", "requested")

	assert.ErrorIs(t, err, domain.ErrNothingToReverse)
	f.bookings.AssertNotCalled(t, "CompareAndSetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.connect.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefundService_TerminalBookingsAreRejected(t *testing.T) {
	for _, status := range []domain.BookingStatus{domain.BookingStatusRefunded, domain.BookingStatusCancelled} {
		f := newFixture()
		b := confirmedBooking()
		b.Status = status
		f.bookings.On("GetByID", mock.Anything, "b1").Return(b, nil)

		_, err := f.service.Refund(context.Background(), "b1", "")

		assert.ErrorIs(t, err, domain.ErrAlreadyReversed, "%s", status)
	}
}

func TestRefundService_UnknownBooking(t *testing.T) {
	f := newFixture()
	f.bookings.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := f.service.Refund(context.Background(), "missing", "")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefundService_RoutesByPayoutMethod(t *testing.T) {
	ctx := context.Background()
	producer := new(MockProducer)
	f := newFixture(WithProducer(producer, "booking-events"), WithNotificationsTopic("booking-notifications"))
	b := confirmedBooking()
	payout := &domain.Payout{ID: "po1", BookingID: "b1", Method: domain.PaymentMethodDirect, Reference: "CAPTURE-1", Status: domain.PayoutStatusPending}
	refunded := *b
	refunded.Status = domain.BookingStatusRefunded

	f.bookings.On("GetByID", ctx, "b1").Return(b, nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(payout, nil)
	f.direct.On("Refund", ctx, payment.RefundRequest{BookingID: "b1", TravelerID: "traveler-1", Reference: "CAPTURE-1", Reason: "duplicate"}).
		Return(&payment.RefundOutcome{RefundID: "R-1", Reference: "CAPTURE-1"}, nil)
	f.bookings.On("CompareAndSetStatus", ctx, "b1", domain.BookingStatusConfirmed, domain.BookingStatusRefunded).Return(&refunded, nil)
	f.payouts.On("UpdateStatus", ctx, "po1", refundableFrom, domain.PayoutStatusRefunded).Return(nil)
	isRefunded := mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == "booking_refunded" && e.Status == "REFUNDED"
	})
	producer.On("Publish", ctx, "booking-events", "b1", isRefunded).Return(nil).Once()
	producer.On("Publish", ctx, "booking-notifications", "b1", isRefunded).Return(nil).Once()

	result, err := f.service.Refund(ctx, "b1", "duplicate")

	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSucceeded, result.Status)
	assert.Equal(t, domain.PaymentMethodDirect, result.Method)
	assert.Equal(t, "R-1", result.Reference)
	f.connect.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	f.direct.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.payouts.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestRefundService_FallsBackToBookingMethod(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	b := confirmedBooking()
	refunded := *b
	refunded.Status = domain.BookingStatusRefunded

	f.bookings.On("GetByID", ctx, "b1").Return(b, nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(nil, domain.ErrNotFound)
	f.connect.On("Refund", ctx, mock.MatchedBy(func(req payment.RefundRequest) bool { return req.Reference == "pi_booking" })).
		Return(&payment.RefundOutcome{RefundID: "re_1"}, nil)
	f.bookings.On("CompareAndSetStatus", ctx, "b1", domain.BookingStatusConfirmed, domain.BookingStatusRefunded).Return(&refunded, nil)

	result, err := f.service.Refund(ctx, "b1", "")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodConnect, result.Method)
	f.payouts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundService_MissingCaptureReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	b := confirmedBooking()
	b.PaymentMethod = domain.PaymentMethodDirect
	b.PaymentReference = ""

	f.bookings.On("GetByID", ctx, "b1").Return(b, nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(nil, domain.ErrNotFound)
	f.direct.On("Refund", ctx, mock.Anything).Return(nil, domain.ErrNoCaptureReference)

	_, err := f.service.Refund(ctx, "b1", "")

	assert.ErrorIs(t, err, domain.ErrNoCaptureReference)
	assert.Equal(t, "no capture reference on file", domain.ErrNoCaptureReference.Error())
	f.bookings.AssertNotCalled(t, "CompareAndSetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundService_ManualRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	b := confirmedBooking()
	b.PaymentReference = ""
	refunded := *b
	refunded.Status = domain.BookingStatusRefunded
	payout := &domain.Payout{ID: "po1", BookingID: "b1", Method: domain.PaymentMethodConnect, Status: domain.PayoutStatusPending}

	f.bookings.On("GetByID", ctx, "b1").Return(b, nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(payout, nil)
	f.connect.On("Refund", ctx, mock.Anything).Return(&payment.RefundOutcome{ManualRequired: true, Note: "no checkout session found"}, nil)
	f.bookings.On("CompareAndSetStatus", ctx, "b1", domain.BookingStatusConfirmed, domain.BookingStatusRefunded).Return(&refunded, nil)
	f.payouts.On("UpdateStatus", ctx, "po1", refundableFrom, domain.PayoutStatusRefunded).Return(nil)

	result, err := f.service.Refund(ctx, "b1", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusManualRequired, result.Status)
	assert.Equal(t, "no checkout session found", result.Note)
}

func TestRefundService_ProviderFailureLeavesBookingAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.bookings.On("GetByID", ctx, "b1").Return(confirmedBooking(), nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(nil, domain.ErrNotFound)
	f.connect.On("Refund", ctx, mock.Anything).Return(nil, &payment.UpstreamError{Provider: "provider_a", Operation: "refund", StatusCode: 500})

	_, err := f.service.Refund(ctx, "b1", "")

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	f.bookings.AssertNotCalled(t, "CompareAndSetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundService_WebhookWonTheRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	refunded := confirmedBooking()
	refunded.Status = domain.BookingStatusRefunded

	f.bookings.On("GetByID", ctx, "b1").Return(confirmedBooking(), nil).Once()
	f.payouts.On("GetByBookingID", ctx, "b1").Return(nil, domain.ErrNotFound)
	f.connect.On("Refund", ctx, mock.Anything).Return(&payment.RefundOutcome{RefundID: "re_1"}, nil)
	f.bookings.On("CompareAndSetStatus", ctx, "b1", domain.BookingStatusConfirmed, domain.BookingStatusRefunded).Return(nil, domain.ErrStatusConflict)
	f.bookings.On("GetByID", ctx, "b1").Return(refunded, nil).Once()

	result, err := f.service.Refund(ctx, "b1", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSucceeded, result.Status)
}

func TestRefundService_UnknownMethod(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	b := confirmedBooking()
	b.PaymentMethod = ""
	f.bookings.On("GetByID", ctx, "b1").Return(b, nil)
	f.payouts.On("GetByBookingID", ctx, "b1").Return(nil, domain.ErrNotFound)

	_, err := f.service.Refund(ctx, "b1", "")

	assert.ErrorIs(t, err, domain.ErrUnknownMethod)
}
