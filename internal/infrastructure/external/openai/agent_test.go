package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReply_StructuredOutput(t *testing.T) {
	reply := parseReply(`{"reply": "What was the business purpose?", "complete": false}`)
	assert.Equal(t, "What was the business purpose?", reply.Text)
	assert.False(t, reply.Complete)

	reply = parseReply(`{"reply": "All details collected, thank you!", "complete": true}`)
	assert.True(t, reply.Complete)
}

func TestParseReply_FencedJSON(t *testing.T) {
	content := "```json\n{\"reply\": \"Anything else?\", \"complete\": false}\n```"
	reply := parseReply(content)
	assert.Equal(t, "Anything else?", reply.Text)
	assert.False(t, reply.Complete)
}

func TestParseReply_ProseFallbackUsesCompletionToken(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		complete bool
	}{
		{"plain question", "What project was this for?", false},
		{"completion token present", "Done! All set.", true},
		{"token case-insensitive", "DONE, your request is submitted.", true},
		{"token embedded in word", "I've abandoned that approach.", true},
		{"no token", "Could you share the project code?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := parseReply(tt.content)
			assert.Equal(t, tt.content, reply.Text, "prose is relayed verbatim")
			assert.Equal(t, tt.complete, reply.Complete)
		})
	}
}

func TestParseReply_EmptyStructuredReplyFallsBack(t *testing.T) {
	// A JSON object with an empty reply is not a usable structured response
	reply := parseReply(`{"reply": "", "complete": true}`)
	assert.Equal(t, `{"reply": "", "complete": true}`, reply.Text)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", `Here you go: {"a": {"b": 2}} hope that helps`, `{"a": {"b": 2}}`},
		{"braces inside strings", `{"text": "curly } brace"}`, `{"text": "curly } brace"}`},
		{"escaped quote in string", `{"text": "she said \"hi}\""}`, `{"text": "she said \"hi}\""}`},
		{"no object", "just prose", ""},
		{"unbalanced", `{"a": 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.content))
		})
	}
}

func TestParseExtraction(t *testing.T) {
	result, err := parseExtraction(`{"is_receipt": true, "too_blurry": false, "fields": {"total": "24.50"}}`)
	assert.NoError(t, err)
	assert.True(t, result.IsReceipt)
	assert.Equal(t, "24.50", result.Fields["total"])

	result, err = parseExtraction("```json\n{\"is_receipt\": false}\n```")
	assert.NoError(t, err)
	assert.False(t, result.IsReceipt)

	_, err = parseExtraction("not json at all")
	assert.Error(t, err)
}

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts()
	assert.NotEmpty(t, p.Extraction.System)
	assert.Contains(t, p.Extraction.User, "is_receipt")
	assert.Contains(t, p.Agent.System, "complete")
	assert.Greater(t, p.Agent.MaxTokens, 0)
}

func TestLoadPrompts_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPrompts("")
	assert.NoError(t, err)
	assert.Equal(t, DefaultPrompts().Agent.System, p.Agent.System)
}
