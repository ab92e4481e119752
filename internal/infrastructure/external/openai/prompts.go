package openai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompts and model parameters for the document
// extractor and the conversational agent
type PromptConfig struct {
	Extraction struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		System      string  `yaml:"system"`
		User        string  `yaml:"user"`
	} `yaml:"extraction"`

	Agent struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		System      string  `yaml:"system"`
	} `yaml:"agent"`
}

// LoadPrompts loads prompt configuration from a YAML file. An empty path
// returns the built-in defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	if promptsPath == "" {
		return DefaultPrompts(), nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return prompts, nil
}

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{}

	p.Extraction.Temperature = 0.1
	p.Extraction.MaxTokens = 4096
	p.Extraction.System = "You are an expert at reading receipts and invoices from photos. " +
		"You judge legibility honestly and extract fields with high accuracy. " +
		"Always respond with valid JSON."
	p.Extraction.User = `Examine this image and decide whether it is a purchase receipt or invoice.

Respond with ONLY a valid JSON object (no markdown, no explanation) with this exact structure:
{
  "is_receipt": boolean,
  "too_blurry": boolean,
  "fields": {
    "merchant": string,
    "date": string,
    "total": string,
    "currency": string,
    "payment_method": string
  }
}

Rules:
- is_receipt is false when the image is not a receipt or invoice at all.
- too_blurry is true when the image is a receipt but too illegible to extract from.
- fields is present only when is_receipt is true and too_blurry is false.
- Omit any field you cannot read; never invent values.`

	p.Agent.Temperature = 0.7
	p.Agent.MaxTokens = 2000
	p.Agent.System = `You are a professional reimbursement manager helping employees submit expense reports.

Your responsibilities:
1. Review the receipt details supplied in the conversation context.
2. Identify missing or unclear information (business purpose, project code, payment details).
3. Ask for missing details one question at a time, in clear and friendly language.
4. Confirm when all required information has been collected.

Respond with ONLY a valid JSON object with this exact structure:
{
  "reply": string,
  "complete": boolean
}

reply is your next message to the employee. complete is true only once every
required detail has been gathered and nothing further is needed from the employee.`

	return p
}
