// Package notification delivers session notifications to their Lark
// destinations.
package notification

import (
	"context"

	"github.com/garyjia/reimbursement-bot/internal/lark"
	"github.com/garyjia/reimbursement-bot/internal/session"
	"go.uber.org/zap"
)

// TextSender defines the messaging contract for the router
type TextSender interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error)
}

// Router maps abstract notification destinations to concrete Lark targets:
// the requester's direct chat or the shared approval channel. Delivery runs
// in notification order and a failed send never interrupts the rest of the
// batch.
type Router struct {
	sender         TextSender
	approvalChatID string
	logger         *zap.Logger
}

// NewRouter creates a new notification router
func NewRouter(sender TextSender, approvalChatID string, logger *zap.Logger) *Router {
	return &Router{
		sender:         sender,
		approvalChatID: approvalChatID,
		logger:         logger,
	}
}

// Deliver sends each notification to its destination, preserving order.
// Failures are logged and swallowed so one bad send cannot drop the
// notifications queued behind it.
func (r *Router) Deliver(ctx context.Context, requesterID string, notifications []session.Notification) {
	for _, n := range notifications {
		receiveIDType, receiveID := r.resolve(requesterID, n.Destination)
		if receiveID == "" {
			r.logger.Warn("No target configured for destination, dropping notification",
				zap.String("destination", string(n.Destination)),
				zap.String("requester_id", requesterID))
			continue
		}

		if _, err := r.sender.SendText(ctx, receiveIDType, receiveID, n.Text); err != nil {
			r.logger.Error("Notification delivery failed",
				zap.String("destination", string(n.Destination)),
				zap.String("requester_id", requesterID),
				zap.Error(err))
		}
	}
}

func (r *Router) resolve(requesterID string, dest session.Destination) (receiveIDType, receiveID string) {
	switch dest {
	case session.DestRequesterDM:
		return lark.ReceiveIDTypeOpenID, requesterID
	case session.DestApprovalChannel:
		return lark.ReceiveIDTypeChatID, r.approvalChatID
	default:
		return "", ""
	}
}
