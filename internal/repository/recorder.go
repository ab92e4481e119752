package repository

import (
	"context"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/application/dispatcher"
	"github.com/garyjia/reimbursement-bot/internal/domain/event"
	"go.uber.org/zap"
)

// Recorder subscribes to completion events and writes one history row per
// finished request. Recording is best effort; a storage failure is logged
// but never affects the conversation that produced the event.
type Recorder struct {
	repo   *RequestRepository
	logger *zap.Logger
}

// NewRecorder creates a new completion recorder
func NewRecorder(repo *RequestRepository, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
	}
}

// Register subscribes the recorder to completion events
func (r *Recorder) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeRequestCompleted, "history-recorder", r.HandleRequestCompleted)
}

// HandleRequestCompleted persists one completed request
func (r *Recorder) HandleRequestCompleted(ctx context.Context, evt *event.Event) error {
	req := &CompletedRequest{
		RequesterID: evt.RequesterID,
		Fields:      evt.GetPayloadMap("fields"),
		CompletedAt: evt.Timestamp,
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = time.Now()
	}

	if err := r.repo.Create(req); err != nil {
		r.logger.Error("Failed to record completed request",
			zap.String("requester_id", evt.RequesterID),
			zap.Error(err))
		return err
	}

	r.logger.Info("Completed request recorded",
		zap.Int64("request_id", req.ID),
		zap.String("requester_id", req.RequesterID))
	return nil
}
