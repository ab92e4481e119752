// Package websocket provides WebSocket adapters for external event sources.
// This package translates protocol-specific events into domain events.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/garyjia/reimbursement-bot/internal/application/dispatcher"
	"github.com/garyjia/reimbursement-bot/internal/domain/event"
	larkdispatcher "github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// AttachmentFetcher downloads a message attachment and persists it locally,
// returning the path of the stored file.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, messageID, fileKey, resourceType string) (string, error)
}

// LarkAdapter wraps the Lark WebSocket SDK client and translates inbound
// direct messages into domain events for the application dispatcher. Group
// chat traffic is ignored; the bot only converses over direct messages.
type LarkAdapter struct {
	appID      string
	appSecret  string
	fetcher    AttachmentFetcher
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	wsClient *larkws.Client
	mu       sync.RWMutex
	started  bool
}

// LarkAdapterConfig holds configuration for the Lark WebSocket adapter.
type LarkAdapterConfig struct {
	AppID     string
	AppSecret string
}

// NewLarkAdapter creates a new Lark WebSocket adapter.
func NewLarkAdapter(cfg LarkAdapterConfig, fetcher AttachmentFetcher, d dispatcher.Dispatcher, logger *zap.Logger) *LarkAdapter {
	return &LarkAdapter{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		fetcher:    fetcher,
		dispatcher: d,
		logger:     logger,
	}
}

// Start initializes the WebSocket connection and begins listening for Lark
// events. This method blocks until the context is cancelled or an error
// occurs.
func (a *LarkAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("adapter already started")
	}

	// Empty strings for verification token and encrypt key (not needed for
	// WebSocket mode)
	sdkDispatcher := larkdispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(a.handleMessageEvent)

	a.wsClient = larkws.NewClient(
		a.appID,
		a.appSecret,
		larkws.WithEventHandler(sdkDispatcher),
	)

	a.started = true
	a.mu.Unlock()

	a.logger.Info("Starting Lark WebSocket adapter",
		zap.String("app_id", a.appID))

	if err := a.wsClient.Start(ctx); err != nil {
		a.logger.Error("Lark WebSocket client error", zap.Error(err))
		return fmt.Errorf("websocket client error: %w", err)
	}

	return nil
}

// Stop gracefully stops the WebSocket adapter.
// Note: The Lark SDK WebSocket client is stopped by cancelling the context
// passed to Start.
func (a *LarkAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	a.started = false
	a.logger.Info("Lark WebSocket adapter stopped")
	return nil
}

// IsRunning returns whether the adapter is currently running.
func (a *LarkAdapter) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.started
}

// messageContent covers the content envelopes of the message types the bot
// understands: text, file and image.
type messageContent struct {
	Text     string `json:"text"`
	FileKey  string `json:"file_key"`
	FileName string `json:"file_name"`
	ImageKey string `json:"image_key"`
}

// handleMessageEvent is called by the Lark SDK for every inbound message
// the bot can see. It filters to direct chats, downloads any attachment and
// dispatches a domain event. A failed download still dispatches, flagged, so
// the requester gets a reply rather than silence.
func (a *LarkAdapter) handleMessageEvent(ctx context.Context, evt *larkIm.P2MessageReceiveV1) error {
	if evt.Event == nil || evt.Event.Message == nil || evt.Event.Sender == nil {
		a.logger.Warn("Received message event with missing fields")
		return nil
	}

	msg := evt.Event.Message
	if msg.ChatType == nil || *msg.ChatType != "p2p" {
		a.logger.Debug("Ignoring non-direct message",
			zap.Stringp("chat_type", msg.ChatType))
		return nil
	}

	senderID := ""
	if evt.Event.Sender.SenderId != nil && evt.Event.Sender.SenderId.OpenId != nil {
		senderID = *evt.Event.Sender.SenderId.OpenId
	}
	if senderID == "" {
		a.logger.Warn("Message event missing sender open id")
		return nil
	}

	text, files, err := a.extractContent(ctx, msg)
	payload := map[string]interface{}{
		"text":  text,
		"files": files,
	}
	if err != nil {
		// The requester still hears about a failed download; the intake
		// side answers with the processing apology instead of going silent.
		a.logger.Error("Failed to extract message content",
			zap.String("sender_id", senderID),
			zap.Error(err))
		payload = map[string]interface{}{
			"text":            "",
			"files":           []string{},
			"download_failed": true,
		}
	}

	domainEvent := event.NewEvent(event.TypeMessageReceived, senderID, payload)

	if err := a.dispatcher.Dispatch(ctx, domainEvent); err != nil {
		a.logger.Error("Failed to dispatch domain event",
			zap.Error(err),
			zap.String("event_id", domainEvent.ID),
			zap.String("sender_id", senderID))
		return fmt.Errorf("failed to dispatch event: %w", err)
	}

	a.logger.Info("Message event dispatched",
		zap.String("event_id", domainEvent.ID),
		zap.String("sender_id", senderID),
		zap.Int("files", len(files)))

	return nil
}

// extractContent parses the message content envelope and downloads any
// attachment to local storage.
func (a *LarkAdapter) extractContent(ctx context.Context, msg *larkIm.EventMessage) (string, []string, error) {
	msgType := ""
	if msg.MessageType != nil {
		msgType = *msg.MessageType
	}

	var content messageContent
	if msg.Content != nil && *msg.Content != "" {
		if err := json.Unmarshal([]byte(*msg.Content), &content); err != nil {
			return "", nil, fmt.Errorf("failed to parse message content: %w", err)
		}
	}

	messageID := ""
	if msg.MessageId != nil {
		messageID = *msg.MessageId
	}

	switch msgType {
	case larkIm.MsgTypeText:
		return content.Text, nil, nil

	case larkIm.MsgTypeFile:
		path, err := a.fetcher.Fetch(ctx, messageID, content.FileKey, "file")
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch file attachment: %w", err)
		}
		return "", []string{path}, nil

	case larkIm.MsgTypeImage:
		path, err := a.fetcher.Fetch(ctx, messageID, content.ImageKey, "image")
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch image attachment: %w", err)
		}
		return "", []string{path}, nil

	default:
		a.logger.Debug("Unsupported message type treated as empty text",
			zap.String("message_type", msgType))
		return "", nil, nil
	}
}
