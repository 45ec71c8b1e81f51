package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStatusConflict = errors.New("status precondition no longer holds")
	ErrSeatTaken      = errors.New("seat is already being paired")

	ErrNothingToReverse   = errors.New("booking is still pending, nothing to reverse")
	ErrAlreadyReversed    = errors.New("booking is already refunded or cancelled")
	ErrNoCaptureReference = errors.New("no capture reference on file")
	ErrUnknownMethod      = errors.New("no payment method recorded for booking")

	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
