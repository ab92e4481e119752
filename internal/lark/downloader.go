package lark

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Resource types accepted by the message resource endpoint.
const (
	ResourceTypeFile  = "file"
	ResourceTypeImage = "image"
)

// resourceGetter abstracts the SDK's message resource endpoint for testability
type resourceGetter interface {
	Get(ctx context.Context, req *larkIm.GetMessageResourceReq, options ...larkcore.RequestOptionFunc) (*larkIm.GetMessageResourceResp, error)
}

// Downloader retrieves message attachments through the IM resource API.
// API-level failures are treated as permanent; only transport errors are
// retried, with exponential backoff.
type Downloader struct {
	resources   resourceGetter
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewDownloader creates a new attachment downloader
func NewDownloader(client *Client, logger *zap.Logger) *Downloader {
	return &Downloader{
		resources:   client.client.Im.MessageResource,
		logger:      logger,
		maxAttempts: 3,
		backoff:     time.Second,
	}
}

// Download fetches a single attachment attached to a message.
// It returns the file content and the original file name when available.
func (d *Downloader) Download(ctx context.Context, messageID, fileKey, resourceType string) ([]byte, string, error) {
	req := larkIm.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(fileKey).
		Type(resourceType).
		Build()

	resp, err := d.resources.Get(ctx, req)
	if err != nil {
		d.logger.Warn("Resource request failed",
			zap.String("message_id", messageID),
			zap.String("file_key", fileKey),
			zap.Error(err))
		return nil, "", fmt.Errorf("resource request failed: %w", err)
	}

	if !resp.Success() {
		d.logger.Error("Resource API returned failure",
			zap.String("message_id", messageID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return nil, "", fmt.Errorf("resource API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	content, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read resource body: %w", err)
	}

	d.logger.Debug("Attachment downloaded",
		zap.String("message_id", messageID),
		zap.String("file_name", resp.FileName),
		zap.Int("size", len(content)))

	return content, resp.FileName, nil
}

// DownloadWithRetry downloads an attachment, retrying transient failures
func (d *Downloader) DownloadWithRetry(ctx context.Context, messageID, fileKey, resourceType string) ([]byte, string, error) {
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		content, name, err := d.Download(ctx, messageID, fileKey, resourceType)
		if err == nil {
			return content, name, nil
		}

		lastErr = err

		// API-level rejections carry a response code and will not change
		// on retry
		if isPermanentError(err) {
			d.logger.Info("Permanent error, not retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, "", err
		}

		if attempt < d.maxAttempts {
			backoff := time.Duration(1<<uint(attempt-1)) * d.backoff
			d.logger.Info("Retrying download",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	d.logger.Error("Failed to download after retries",
		zap.Int("max_attempts", d.maxAttempts),
		zap.Error(lastErr))
	return nil, "", fmt.Errorf("download failed after %d attempts: %w", d.maxAttempts, lastErr)
}

// isPermanentError checks if an error is permanent (should not retry)
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "code=")
}
