package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/newsprobe/internal/model"
)

// MaxNumFeatures caps the attribution count a caller may request
const MaxNumFeatures = 50

// Request is one article to analyze
type Request struct {
	Text        string `json:"text" validate:"required"`
	Explain     bool   `json:"explain"`
	NumFeatures int    `json:"num_features" validate:"gte=0,lte=50"` // 0 uses the configured default
	Subject     string `json:"subject,omitempty"`
	SourceURL   string `json:"source_url,omitempty" validate:"omitempty,url"`
}

// Validate checks a request; blank text counts as missing
func (e *Engine) Validate(req Request) error {
	req.Text = strings.TrimSpace(req.Text)
	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "text is required"
	case "gte", "lte":
		return fmt.Sprintf("num_features must be between 0 and %d", MaxNumFeatures)
	case "url":
		return "source_url must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Analyze validates the request, predicts and optionally explains.
// The explanation never changes the prediction.
func (e *Engine) Analyze(ctx context.Context, req Request) (*model.Verdict, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := &model.Verdict{
		Subject:    req.Subject,
		SourceURL:  req.SourceURL,
		AnalyzedAt: time.Now().UTC(),
		Text:       req.Text,
		Model:      e.fingerprint,
	}
	verdict.Warnings = append(verdict.Warnings, languageWarnings(req.Text)...)

	normalized := e.normalizer.Normalize(req.Text)
	X, err := e.vectorizer.Transform([]string{normalized})
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	if X[0].NNZ() == 0 {
		verdict.Warnings = append(verdict.Warnings, "no known vocabulary words; prediction is driven by the model bias")
	}
	probas, err := e.scorer.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	verdict.Prediction = model.NewPrediction(probas[0])

	if req.Explain {
		exp, err := e.Explain(ctx, req.Text, req.NumFeatures)
		if err != nil {
			return nil, fmt.Errorf("explain: %w", err)
		}
		verdict.Explanation = exp
	}

	e.log.Debug("analyzed", "label", verdict.Prediction.LabelName,
		"confidence", verdict.Prediction.Confidence, "explained", req.Explain)
	return verdict, nil
}

// languageWarnings flags input that is reliably detected as non-English
func languageWarnings(raw string) []string {
	info := whatlanggo.Detect(raw)
	if !info.IsReliable() || info.Lang == whatlanggo.Eng {
		return nil
	}
	return []string{fmt.Sprintf("input looks like %s; the model was trained on English news", info.Lang.String())}
}
