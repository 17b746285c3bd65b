package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/events"
)

// NotificationService relays reservation lifecycle events to the outside
// world. Delivery to users is left to whatever consumes the broker.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	forward    events.EventHandler
}

// NewNotificationService creates the service. forward may be nil, in which
// case events are only logged.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, forward events.EventHandler) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		forward:    forward,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReservationCreated, n.handleReservationCreated)
	n.dispatcher.Subscribe(events.EventReservationCancelled, n.handleReservationChanged)
	n.dispatcher.Subscribe(events.EventReservationActivated, n.handleReservationChanged)
	n.dispatcher.Subscribe(events.EventReservationExpired, n.handleReservationChanged)
	n.dispatcher.Subscribe(events.EventReservationStatusOverride, n.handleReservationChanged)
	n.dispatcher.Subscribe(events.EventReservationPasswordReset, n.handleReservationChanged)
}

func (n *NotificationService) handleReservationCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ReservationCreated", zap.String("reservation_id", event.TargetID), zap.Any("payload", event.Payload))
	n.relay(ctx, event)
	return nil
}

func (n *NotificationService) handleReservationChanged(ctx context.Context, event events.Event) error {
	n.logger.Debug("ReservationChanged",
		zap.String("reservation_id", event.TargetID),
		zap.String("event_type", string(event.Type)))
	n.relay(ctx, event)
	return nil
}

func (n *NotificationService) relay(ctx context.Context, event events.Event) {
	if n.forward == nil {
		return
	}
	if err := n.forward(ctx, event); err != nil {
		n.logger.Warn("notification relay failed",
			zap.String("reservation_id", event.TargetID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
