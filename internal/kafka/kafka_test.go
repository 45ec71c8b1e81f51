package kafka

import (
	"context"
	"net"
	"testing"

	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBookingEvent(t *testing.T) {
	event, err := DecodeBookingEvent([]byte(`{"type":"booking_confirmed","booking_id":"b-1","traveler_id":"t-1","status":"CONFIRMED","amount_cents":10000}`))
	require.NoError(t, err)
	assert.Equal(t, "booking_confirmed", event.Type)
	assert.Equal(t, "b-1", event.BookingID)
	assert.Equal(t, int64(10000), event.AmountCents)

	_, err = DecodeBookingEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())

	p := NewProducer([]string{"localhost:9092"}, logger.Discard())
	assert.NoError(t, p.Close())
}

func TestCheckConnection_NoBrokers(t *testing.T) {
	err := NewProducer(nil, logger.Discard()).CheckConnection(context.Background())
	assert.EqualError(t, err, "no kafka brokers configured")
}

func TestCheckConnection_Unreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	err = NewProducer([]string{addr}, logger.Discard()).CheckConnection(context.Background())
	assert.ErrorContains(t, err, "failed to connect to Kafka")
}
