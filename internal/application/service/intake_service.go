// Package service wires inbound message events to conversation sessions
// and fans the resulting notifications out for delivery.
package service

import (
	"context"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/application/dispatcher"
	"github.com/garyjia/reimbursement-bot/internal/domain/event"
	"github.com/garyjia/reimbursement-bot/internal/domain/flow"
	"github.com/garyjia/reimbursement-bot/internal/session"
	"go.uber.org/zap"
)

// SessionResolver provides the per-requester session lookup
type SessionResolver interface {
	Resolve(requesterID string, now time.Time) *session.Session
}

// NotificationDeliverer delivers session notifications to their destinations
type NotificationDeliverer interface {
	Deliver(ctx context.Context, requesterID string, notifications []session.Notification)
}

// IntakeService consumes inbound message events, drives the requester's
// conversation session and delivers the resulting notifications. When a
// conversation reaches its terminal phase a request.completed event is
// published for downstream consumers.
type IntakeService struct {
	registry   SessionResolver
	router     NotificationDeliverer
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewIntakeService creates a new intake service
func NewIntakeService(registry SessionResolver, router NotificationDeliverer, d dispatcher.Dispatcher, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		registry:   registry,
		router:     router,
		dispatcher: d,
		logger:     logger,
	}
}

// Register subscribes the service to inbound message events
func (s *IntakeService) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeMessageReceived, "intake", s.HandleMessageReceived)
}

// HandleMessageReceived processes one inbound direct message event
func (s *IntakeService) HandleMessageReceived(ctx context.Context, evt *event.Event) error {
	requesterID := evt.RequesterID
	text := evt.GetPayloadString("text")
	files := evt.GetPayloadStrings("files")

	// An attachment the gateway could not download never reaches the
	// session; the requester still gets the processing apology.
	if evt.GetPayloadBool("download_failed") {
		s.logger.Warn("Attachment download failed before validation",
			zap.String("requester_id", requesterID))
		s.router.Deliver(ctx, requesterID, []session.Notification{session.DownloadFailureNotification()})
		return nil
	}

	sess := s.registry.Resolve(requesterID, time.Now())
	wasComplete := sess.Phase() == flow.StateComplete

	notifications := sess.Handle(ctx, text, files)

	s.logger.Debug("Session turn handled",
		zap.String("requester_id", requesterID),
		zap.String("phase", sess.Phase().String()),
		zap.Int("notifications", len(notifications)))

	s.router.Deliver(ctx, requesterID, notifications)

	// Publish completion exactly once, on the turn that crossed into the
	// terminal phase
	if !wasComplete && sess.Phase() == flow.StateComplete {
		completed := event.NewEventWithCorrelation(event.TypeRequestCompleted, requesterID, map[string]interface{}{
			"fields": sess.Fields(),
		}, evt.CorrelationID)

		s.dispatcher.DispatchAsync(ctx, completed)

		s.logger.Info("Reimbursement request completed",
			zap.String("requester_id", requesterID),
			zap.String("event_id", completed.ID))
	}

	return nil
}
