// Package events delivers booking lifecycle events to connected clients and
// to the message broker.
package events

import (
	"context"
	"errors"

	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/pkg/websocket"
)

// RoutingKey is the topic key an event is published under
func RoutingKey(evt booking.Event) string {
	return "booking." + string(evt.Type)
}

// Fanout publishes to every publisher and joins their errors
type Fanout []booking.Publisher

// Publish implements booking.Publisher
func (f Fanout) Publish(ctx context.Context, evt booking.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hub is the part of the websocket hub used for delivery
type Hub interface {
	SendToUser(userID, userType string, message websocket.Message) int
	SendToBooking(bookingID string, message websocket.Message)
}

// HubPublisher pushes events to the rider and driver of the booking and to
// clients following it
type HubPublisher struct {
	hub Hub
}

// NewHubPublisher creates a publisher over hub
func NewHubPublisher(hub Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Publish implements booking.Publisher
func (p *HubPublisher) Publish(ctx context.Context, evt booking.Event) error {
	msg := websocket.Message{Type: RoutingKey(evt), Data: evt}
	p.hub.SendToUser(evt.Booking.RiderID, string(auth.RoleUser), msg)
	p.hub.SendToUser(evt.Booking.DriverID, string(auth.RoleDriver), msg)
	p.hub.SendToBooking(evt.Booking.ID, msg)
	return nil
}

// JSONPublisher is satisfied by the RabbitMQ broker
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, msg interface{}) error
}

// BrokerPublisher forwards events to the message broker
type BrokerPublisher struct {
	broker JSONPublisher
}

// NewBrokerPublisher creates a publisher over broker
func NewBrokerPublisher(broker JSONPublisher) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

// Publish implements booking.Publisher
func (p *BrokerPublisher) Publish(ctx context.Context, evt booking.Event) error {
	return p.broker.PublishJSON(ctx, RoutingKey(evt), evt)
}
