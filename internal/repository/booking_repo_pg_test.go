package repository

import (
	"errors"
	"testing"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewPairingRepository(pool))
	assert.NotNil(t, NewPayoutRepository(pool))
	assert.NotNil(t, NewCompanionRepository(pool))
	assert.NotNil(t, NewCheckoutSessionRepository(pool))
}

func TestNotFound(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "booking %s", "b-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "booking b-1: not found", err.Error())

	other := errors.New("connection reset")
	assert.Same(t, other, notFound(other, "booking %s", "b-1"))
}
