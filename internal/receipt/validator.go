package receipt

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrExtraction is returned when the document extractor itself fails
// (transport error, unparseable output, timeout). It must never be collapsed
// into a NOT_A_RECEIPT verdict.
var ErrExtraction = errors.New("document extraction failed")

// ExtractionResult is the structured response from the document extractor
type ExtractionResult struct {
	IsReceipt bool              `json:"is_receipt"`
	TooBlurry bool              `json:"too_blurry"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// DocumentExtractor turns a locally stored file into structured receipt data
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) (*ExtractionResult, error)
}

// Validator wraps the document extractor and normalizes its output into a
// tri-state verdict
type Validator struct {
	extractor DocumentExtractor
	logger    *zap.Logger
}

// NewValidator creates a new receipt validator
func NewValidator(extractor DocumentExtractor, logger *zap.Logger) *Validator {
	return &Validator{
		extractor: extractor,
		logger:    logger,
	}
}

// Validate evaluates the attached files in the order supplied and returns at
// the first verdict. Files after the first are never extracted; exactly one
// receipt backs one session, so there is nothing to aggregate.
func (v *Validator) Validate(ctx context.Context, paths []string) (*Verdict, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to validate", ErrExtraction)
	}

	for _, path := range paths {
		result, err := v.extractor.Extract(ctx, path)
		if err != nil {
			v.logger.Error("Document extraction failed",
				zap.String("path", path),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}

		verdict := v.toVerdict(result)
		v.logger.Info("Receipt validated",
			zap.String("path", path),
			zap.String("verdict", verdict.Tag.String()),
			zap.Int("field_count", len(verdict.Fields)))
		return verdict, nil
	}

	// Unreachable; the empty-slice case returns above
	return nil, fmt.Errorf("%w: no files to validate", ErrExtraction)
}

func (v *Validator) toVerdict(result *ExtractionResult) *Verdict {
	switch {
	case !result.IsReceipt:
		return &Verdict{Tag: VerdictNotAReceipt}
	case result.TooBlurry:
		return &Verdict{Tag: VerdictUnreadable}
	default:
		fields := result.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		return &Verdict{Tag: VerdictValid, Fields: fields}
	}
}
