package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockExtractor struct {
	extractFunc func(ctx context.Context, path string) (*ExtractionResult, error)
	calls       []string
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (*ExtractionResult, error) {
	m.calls = append(m.calls, path)
	if m.extractFunc != nil {
		return m.extractFunc(ctx, path)
	}
	return &ExtractionResult{IsReceipt: true}, nil
}

func TestValidator_Validate_VerdictMapping(t *testing.T) {
	tests := []struct {
		name     string
		result   *ExtractionResult
		expected VerdictTag
	}{
		{
			name:     "not a receipt",
			result:   &ExtractionResult{IsReceipt: false},
			expected: VerdictNotAReceipt,
		},
		{
			name:     "receipt but illegible",
			result:   &ExtractionResult{IsReceipt: true, TooBlurry: true},
			expected: VerdictUnreadable,
		},
		{
			name: "legible receipt",
			result: &ExtractionResult{
				IsReceipt: true,
				Fields:    map[string]string{"merchant": "Sample Coffee Shop", "total": "24.50"},
			},
			expected: VerdictValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &mockExtractor{
				extractFunc: func(ctx context.Context, path string) (*ExtractionResult, error) {
					return tt.result, nil
				},
			}
			validator := NewValidator(extractor, zap.NewNop())

			verdict, err := validator.Validate(context.Background(), []string{"receipt.png"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, verdict.Tag)

			if tt.expected == VerdictValid {
				assert.Equal(t, tt.result.Fields, verdict.Fields)
			}
		})
	}
}

func TestValidator_Validate_FirstFileWins(t *testing.T) {
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, path string) (*ExtractionResult, error) {
			if path == "bad.png" {
				return &ExtractionResult{IsReceipt: false}, nil
			}
			return &ExtractionResult{IsReceipt: true, Fields: map[string]string{"total": "10.00"}}, nil
		},
	}
	validator := NewValidator(extractor, zap.NewNop())

	verdict, err := validator.Validate(context.Background(), []string{"bad.png", "good.png"})
	require.NoError(t, err)

	assert.Equal(t, VerdictNotAReceipt, verdict.Tag)
	assert.Equal(t, []string{"bad.png"}, extractor.calls, "later files must never be extracted")
}

func TestValidator_Validate_ExtractionFailure(t *testing.T) {
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, path string) (*ExtractionResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	validator := NewValidator(extractor, zap.NewNop())

	verdict, err := validator.Validate(context.Background(), []string{"receipt.png"})
	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.ErrorIs(t, err, ErrExtraction, "extractor failure must not become NOT_A_RECEIPT")
}

func TestValidator_Validate_NoFiles(t *testing.T) {
	validator := NewValidator(&mockExtractor{}, zap.NewNop())

	_, err := validator.Validate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestValidator_Validate_NilFieldsNormalized(t *testing.T) {
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, path string) (*ExtractionResult, error) {
			return &ExtractionResult{IsReceipt: true, Fields: nil}, nil
		},
	}
	validator := NewValidator(extractor, zap.NewNop())

	verdict, err := validator.Validate(context.Background(), []string{"receipt.png"})
	require.NoError(t, err)
	assert.NotNil(t, verdict.Fields)
}

func TestVerdict_Summary(t *testing.T) {
	verdict := &Verdict{
		Tag: VerdictValid,
		Fields: map[string]string{
			"total":    "24.50",
			"merchant": "Sample Coffee Shop",
			"date":     "2024-01-15",
		},
	}

	summary := verdict.Summary()
	assert.Contains(t, summary, "merchant: Sample Coffee Shop")
	assert.Contains(t, summary, "total: 24.50")

	// Sorted field order keeps the agent context stable
	assert.Less(t, indexOf(summary, "date:"), indexOf(summary, "merchant:"))
	assert.Less(t, indexOf(summary, "merchant:"), indexOf(summary, "total:"))

	rejected := &Verdict{Tag: VerdictNotAReceipt}
	assert.Empty(t, rejected.Summary())
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
