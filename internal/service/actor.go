package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/booking"
	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/events"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

func (a Actor) eventActor() events.Actor {
	id := a.UserID
	return events.Actor{UserID: &id, Role: a.Role}
}

func (a Actor) auditID() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// rejectionError converts an engine rejection into the public error taxonomy.
// Anything that is not a rejection is an infrastructure failure.
func rejectionError(err error) error {
	var rejection *booking.Rejection
	if !errors.As(err, &rejection) {
		return fmt.Errorf("validate booking: %w", err)
	}
	details := map[string]any{"reason": string(rejection.Reason)}
	switch rejection.Kind {
	case booking.KindValidation:
		return apperrors.NewValidationError(rejection.Message, details)
	case booking.KindNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, rejection.Message, http.StatusNotFound, details)
	default:
		if rejection.Reason == booking.ReasonCooldownActive {
			details["days_remaining"] = rejection.DaysRemaining()
		}
		return apperrors.NewPolicyViolation(rejection.Message, details)
	}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
