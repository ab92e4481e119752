package lark

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AttachmentSaver persists downloaded attachment content and returns the
// stored path.
type AttachmentSaver interface {
	Save(scope, fileName string, content []byte) (string, error)
}

// Fetcher downloads message attachments and hands them to local storage.
// Stored files are scoped by message id so concurrent uploads from
// different conversations never interleave.
type Fetcher struct {
	downloader *Downloader
	store      AttachmentSaver
	logger     *zap.Logger
}

// NewFetcher creates a new attachment fetcher
func NewFetcher(downloader *Downloader, store AttachmentSaver, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		downloader: downloader,
		store:      store,
		logger:     logger,
	}
}

// Fetch downloads one attachment and saves it locally, returning the path
func (f *Fetcher) Fetch(ctx context.Context, messageID, fileKey, resourceType string) (string, error) {
	content, name, err := f.downloader.DownloadWithRetry(ctx, messageID, fileKey, resourceType)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment: %w", err)
	}

	if name == "" {
		name = fileKey
	}

	path, err := f.store.Save(messageID, name, content)
	if err != nil {
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}

	f.logger.Debug("Attachment fetched",
		zap.String("message_id", messageID),
		zap.String("path", path))

	return path, nil
}
