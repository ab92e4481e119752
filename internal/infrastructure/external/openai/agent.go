package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/session"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// completionToken is the legacy soft completion signal: a reply containing it
// is treated as complete when the model fails to return structured output.
const completionToken = "done"

// Agent implements session.Agent using chat completions. The model is asked
// for a structured {reply, complete} object so completion detection does not
// depend on fragile text matching; the completion-token substring probe
// remains only as a fallback for unstructured output.
type Agent struct {
	client  *openai.Client
	prompts *PromptConfig
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAgent creates a new conversational agent
func NewAgent(client *openai.Client, prompts *PromptConfig, model string, timeout time.Duration, logger *zap.Logger) *Agent {
	return &Agent{
		client:  client,
		prompts: prompts,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Reply composes the next conversational turn from the accumulated context
func (a *Agent) Reply(ctx context.Context, contextText string) (*session.Reply, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.prompts.Agent.Temperature,
		MaxTokens:   a.prompts.Agent.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.prompts.Agent.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: contextText,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.logger.Error("Agent call failed", zap.Error(err))
		return nil, fmt.Errorf("agent call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from agent")
	}

	reply := parseReply(resp.Choices[0].Message.Content)

	a.logger.Debug("Agent replied",
		zap.Bool("complete", reply.Complete),
		zap.Int("reply_length", len(reply.Text)))

	return reply, nil
}

// agentResponse is the structured contract requested from the model
type agentResponse struct {
	Reply    string `json:"reply"`
	Complete bool   `json:"complete"`
}

// parseReply decodes the structured agent output. When the model returns
// prose instead, the raw text is relayed and completion falls back to the
// case-insensitive completion-token probe.
func parseReply(content string) *session.Reply {
	var parsed agentResponse
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && parsed.Reply != "" {
		return &session.Reply{Text: parsed.Reply, Complete: parsed.Complete}
	}

	if jsonStr := extractJSON(content); jsonStr != "" {
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err == nil && parsed.Reply != "" {
			return &session.Reply{Text: parsed.Reply, Complete: parsed.Complete}
		}
	}

	return &session.Reply{
		Text:     content,
		Complete: strings.Contains(strings.ToLower(content), completionToken),
	}
}
