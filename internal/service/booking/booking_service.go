package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/kafka"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/Domenick1991/flightbuddy/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	SelectCompanion(ctx context.Context, input SelectCompanionInput) (*domain.Pairing, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	Apply(ctx context.Context, event domain.PaymentEvent) (*Outcome, error)
}

type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, flight domain.RouteKey, seat string, holder string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flight domain.RouteKey, seat string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Methods interface {
	Get(method domain.PaymentMethod) (payment.Method, error)
}

type BookingService struct {
	bookings           repository.BookingRepository
	pairings           repository.PairingRepository
	payouts            repository.PayoutRepository
	companions         repository.CompanionRepository
	sessions           repository.CheckoutSessionRepository
	methods            Methods
	locks              SeatLocker
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	seatLockTTL        time.Duration
	log                *logrus.Logger
}

type Repositories struct {
	Bookings   repository.BookingRepository
	Pairings   repository.PairingRepository
	Payouts    repository.PayoutRepository
	Companions repository.CompanionRepository
	Sessions   repository.CheckoutSessionRepository
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithSeatLocks(locks SeatLocker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locks = locks
		s.seatLockTTL = ttl
	}
}

func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func NewBookingService(repos Repositories, methods Methods, log *logrus.Logger, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		bookings:    repos.Bookings,
		pairings:    repos.Pairings,
		payouts:     repos.Payouts,
		companions:  repos.Companions,
		sessions:    repos.Sessions,
		methods:     methods,
		log:         log,
		seatLockTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CheckoutInput struct {
	TravelerID  string               `json:"traveler_id"`
	CompanionID string               `json:"companion_id"`
	Flight      domain.Flight        `json:"flight"`
	SeatNumber  string               `json:"seat_number"`
	PriceCents  int64                `json:"price_cents"`
	Currency    string               `json:"currency"`
	Method      domain.PaymentMethod `json:"payment_method"`
}

type CheckoutResult struct {
	Booking     *domain.Booking
	SessionID   string
	RedirectURL string
}

// Checkout creates the PENDING booking and opens a payment with the chosen provider.
// The provider echoes the traveler and companion back on every later event.
func (s *BookingService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	method, err := s.methods.Get(input.Method)
	if err != nil {
		return nil, err
	}

	seat := strings.ToUpper(strings.TrimSpace(input.SeatNumber))
	if seat == "" {
		seat = "TBD"
	}
	booking := &domain.Booking{
		ID:          uuid.NewString(),
		TravelerID:  input.TravelerID,
		CompanionID: input.CompanionID,
		Flight:      input.Flight,
		SeatNumber:  seat,
		PriceCents:  input.PriceCents,
		Currency:    strings.ToUpper(input.Currency),
		Status:      domain.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	checkout, err := method.CreateCheckout(ctx, payment.CheckoutRequest{
		BookingID:   booking.ID,
		TravelerID:  booking.TravelerID,
		CompanionID: booking.CompanionID,
		AmountCents: booking.PriceCents,
		Currency:    booking.Currency,
		Description: fmt.Sprintf("%s %s %s", booking.Flight.Airline, booking.Flight.Number, booking.Flight.Route),
	})
	if err != nil {
		// Nothing was charged; close the attempt so it cannot absorb a later capture.
		if _, cerr := Transition(ctx, s.bookings, booking.ID, domain.BookingStatusPending, domain.BookingStatusCancelled); cerr != nil {
			s.log.WithError(cerr).WithField("booking_id", booking.ID).Error("cancel booking after checkout failure")
		}
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	if s.sessions != nil {
		session := &domain.CheckoutSession{
			ID:          checkout.SessionID,
			Method:      input.Method,
			TravelerID:  booking.TravelerID,
			BookingID:   booking.ID,
			PaymentRef:  checkout.PaymentRef,
			RedirectURL: checkout.RedirectURL,
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			// Refunds fall back to scanning the provider's sessions.
			s.log.WithError(err).WithField("booking_id", booking.ID).Warn("save checkout session")
		}
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"traveler_id": booking.TravelerID,
		"method":      input.Method,
		"session_id":  checkout.SessionID,
	}).Info("checkout created")
	s.publish(ctx, "booking_created", booking)

	return &CheckoutResult{Booking: booking, SessionID: checkout.SessionID, RedirectURL: checkout.RedirectURL}, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

func (in CheckoutInput) validate() error {
	switch {
	case in.TravelerID == "":
		return invalid("traveler id is required")
	case in.Flight.Number == "" || in.Flight.Route == "":
		return invalid("flight number and route are required")
	case in.Flight.Date.IsZero():
		return invalid("flight date is required")
	case in.PriceCents <= 0:
		return invalid("price must be positive")
	case in.Currency == "":
		return invalid("currency is required")
	}
	return nil
}

type SelectCompanionInput struct {
	TravelerID  string        `json:"traveler_id"`
	CompanionID string        `json:"companion_id"`
	Flight      domain.Flight `json:"flight"`
	SeatNumber  string        `json:"seat_number"`
}

// SelectCompanion records the traveler's choice and holds the seat next to the
// companion until payment settles it. Once a pairing for the seat is CONFIRMED the
// seat stays taken; the lock only covers the window before payment.
func (s *BookingService) SelectCompanion(ctx context.Context, input SelectCompanionInput) (*domain.Pairing, error) {
	if input.TravelerID == "" || input.CompanionID == "" {
		return nil, invalid("traveler id and companion id are required")
	}
	if input.TravelerID == input.CompanionID {
		return nil, invalid("traveler cannot pair with themselves")
	}
	seat := strings.ToUpper(strings.TrimSpace(input.SeatNumber))
	if seat == "" {
		return nil, invalid("seat number is required")
	}

	flight := domain.RouteKey{Route: input.Flight.Route, Date: input.Flight.Date}
	taken, err := s.pairings.SeatConfirmed(ctx, flight, seat)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("seat %s on %s is confirmed: %w", seat, flight, domain.ErrSeatTaken)
	}

	locked := false
	if s.locks != nil {
		ok, err := s.locks.AcquireSeatLock(ctx, flight, seat, input.TravelerID, s.seatLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire seat lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("seat %s on %s: %w", seat, flight, domain.ErrSeatTaken)
		}
		locked = true
	}

	pairing := &domain.Pairing{
		ID:          uuid.NewString(),
		TravelerID:  input.TravelerID,
		CompanionID: input.CompanionID,
		SeatNumber:  seat,
		Status:      domain.PairingStatusPendingPayment,
		Flight:      input.Flight,
	}
	if err := s.pairings.Create(ctx, pairing); err != nil {
		if locked {
			_ = s.locks.ReleaseSeatLock(ctx, flight, seat)
		}
		return nil, fmt.Errorf("create pairing: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"pairing_id":   pairing.ID,
		"traveler_id":  pairing.TravelerID,
		"companion_id": pairing.CompanionID,
		"seat":         seat,
	}).Info("companion selected")
	return pairing, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := BookingEventFor(eventType, booking)
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.ID, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"booking_id": booking.ID, "type": eventType}).Warn("publish booking event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"booking_id": booking.ID, "type": eventType}).Warn("publish notification")
		}
	}
}

// BookingEventFor builds the lifecycle message published for a booking.
func BookingEventFor(eventType string, b *domain.Booking) kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		TravelerID:    b.TravelerID,
		CompanionID:   b.CompanionID,
		FlightNumber:  b.Flight.Number,
		Route:         b.Flight.Route,
		SeatNumber:    b.SeatNumber,
		Status:        string(b.Status),
		PaymentMethod: string(b.PaymentMethod),
		AmountCents:   b.PriceCents,
		Currency:      b.Currency,
		OccurredAt:    time.Now().UTC(),
	}
}

var _ BookingUseCase = (*BookingService)(nil)
