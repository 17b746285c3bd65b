package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/events"
	"github.com/spec-kit/labbook/internal/repository"
)

// AuditService writes every domain event to the action log. A failed write
// is logged and never fails the operation that raised the event.
type AuditService struct {
	dispatcher events.Dispatcher
	audit      repository.AuditRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, audit repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, audit: audit, logger: logger}
}

// RegisterHandlers subscribes to every event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil || a.audit == nil {
		return
	}
	events.SubscribeAll(a.dispatcher, a.record)
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	entry := &domain.AuditEntry{
		ActorID:    event.Actor.UserID,
		Action:     string(event.Type),
		TargetType: event.TargetType,
		TargetID:   event.TargetID,
		Details:    auditDetails(event),
	}
	if err := a.audit.Create(ctx, entry); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("event", string(event.Type)),
			zap.String("target_id", event.TargetID),
			zap.Error(err))
	}
	return nil
}

func auditDetails(event events.Event) map[string]any {
	details := map[string]any{"event_id": event.ID}
	switch p := event.Payload.(type) {
	case events.ReservationPayload:
		details["status"] = p.Status
		details["start_time"] = p.StartTime
		details["end_time"] = p.EndTime
		if p.ResourceID != nil {
			details["resource_id"] = *p.ResourceID
		}
		if p.OldStatus != "" {
			details["old_status"] = p.OldStatus
		}
	case events.ChangePayload:
		details["operation"] = p.Operation
		for k, v := range p.Fields {
			details[k] = v
		}
	case map[string]any:
		for k, v := range p {
			details[k] = v
		}
	}
	return details
}
