package events

import (
	"context"
	"errors"
	"testing"

	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/pkg/websocket"
	"github.com/stretchr/testify/assert"
)

type fakeHub struct {
	users    []string
	bookings []string
}

func (h *fakeHub) SendToUser(userID, userType string, message websocket.Message) int {
	h.users = append(h.users, userType+":"+userID)
	return 1
}

func (h *fakeHub) SendToBooking(bookingID string, message websocket.Message) {
	h.bookings = append(h.bookings, bookingID)
}

type fakeBroker struct {
	keys []string
	err  error
}

func (b *fakeBroker) PublishJSON(ctx context.Context, routingKey string, msg interface{}) error {
	b.keys = append(b.keys, routingKey)
	return b.err
}

func event() booking.Event {
	return booking.Event{
		Type:    booking.EventStatusChanged,
		Booking: &booking.Booking{ID: "b1", RiderID: "r1", DriverID: "d1", Status: booking.StatusInProgress},
	}
}

func TestHubPublisher_AddressesParticipants(t *testing.T) {
	hub := &fakeHub{}
	assert.NoError(t, NewHubPublisher(hub).Publish(context.Background(), event()))
	assert.Equal(t, []string{"USER:r1", "DRIVER:d1"}, hub.users)
	assert.Equal(t, []string{"b1"}, hub.bookings)
}

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	hub := &fakeHub{}
	broker := &fakeBroker{err: errors.New("unroutable")}
	f := Fanout{NewBrokerPublisher(broker), nil, NewHubPublisher(hub)}

	err := f.Publish(context.Background(), event())
	assert.ErrorContains(t, err, "unroutable")
	assert.Equal(t, []string{"booking.status_changed"}, broker.keys)
	assert.Len(t, hub.users, 2)
}
