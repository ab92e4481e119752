package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/receipt"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Extractor implements receipt.DocumentExtractor using the Vision API.
// Each call is bounded by the configured timeout; expiry surfaces to the
// caller like any other transport failure.
type Extractor struct {
	client  *openai.Client
	reader  *receipt.PageReader
	prompts *PromptConfig
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewExtractor creates a new Vision-based document extractor
func NewExtractor(client *openai.Client, reader *receipt.PageReader, prompts *PromptConfig, model string, timeout time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{
		client:  client,
		reader:  reader,
		prompts: prompts,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Extract reads the locally stored attachment and asks the Vision API for a
// structured receipt judgment
func (e *Extractor) Extract(ctx context.Context, path string) (*receipt.ExtractionResult, error) {
	imageData, mimeType, err := e.reader.ReadPage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachment: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	base64Img := base64.StdEncoding.EncodeToString(imageData)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   e.prompts.Extraction.MaxTokens,
		Temperature: e.prompts.Extraction.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: e.prompts.Extraction.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: e.prompts.Extraction.User,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64Img),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	content := resp.Choices[0].Message.Content

	result, err := parseExtraction(content)
	if err != nil {
		e.logger.Error("Failed to parse vision response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	e.logger.Info("Document extracted",
		zap.String("path", path),
		zap.Bool("is_receipt", result.IsReceipt),
		zap.Bool("too_blurry", result.TooBlurry),
		zap.Int("field_count", len(result.Fields)))

	return result, nil
}

// parseExtraction decodes the model output, tolerating markdown-fenced JSON
func parseExtraction(content string) (*receipt.ExtractionResult, error) {
	var result receipt.ExtractionResult
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return &result, nil
	}

	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
