package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender hands booking notifications to the transactional mail service. Delivery
// itself is external; this records what would be sent.
type Sender struct {
	log *logrus.Logger
}

func NewSender(log *logrus.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, ok := Subject(event)
	if !ok {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"traveler_id":  event.TravelerID,
		"companion_id": event.CompanionID,
		"booking_id":   event.BookingID,
		"subject":      subject,
	}).Info("notification queued")
	return nil
}

// Subject picks the message subject for events travelers are told about.
func Subject(event kafka.BookingEvent) (string, bool) {
	switch event.Type {
	case "booking_confirmed":
		return fmt.Sprintf("Your flight %s is confirmed, seat %s", event.FlightNumber, event.SeatNumber), true
	case "booking_cancelled":
		return fmt.Sprintf("Payment for flight %s was not completed", event.FlightNumber), true
	case "booking_refunded":
		return fmt.Sprintf("Your booking for flight %s has been refunded", event.FlightNumber), true
	default:
		return "", false
	}
}
