package worker

import (
	"github.com/spec-kit/labbook/internal/service"
)

// StartNotificationWorker registers the event subscribers: notifications
// first, then the audit log.
func StartNotificationWorker(notificationService *service.NotificationService, auditService *service.AuditService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if auditService != nil {
		auditService.RegisterHandlers()
	}
}
