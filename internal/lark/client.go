// Package lark wraps the Lark open-platform SDK behind small, focused
// gateways for messaging and attachment retrieval.
package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Client wraps the Lark SDK client
type Client struct {
	client *lark.Client
	appID  string
	logger *zap.Logger
}

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Client{
		client: client,
		appID:  cfg.AppID,
		logger: logger,
	}
}

// Raw returns the underlying Lark SDK client
func (c *Client) Raw() *lark.Client {
	return c.client
}

// AppID returns the configured application identifier
func (c *Client) AppID() string {
	return c.appID
}
