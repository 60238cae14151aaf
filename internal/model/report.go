package model

import "time"

// Verdict is the complete inference response for one article
type Verdict struct {
	ID          string       `json:"id,omitempty"`          // Request identifier (HTTP API only)
	Subject     string       `json:"subject,omitempty"`     // Title or URL subject, when known
	SourceURL   string       `json:"source_url,omitempty"`  // URL the article was fetched from
	AnalyzedAt  time.Time    `json:"analyzed_at"`           // When the analysis ran
	Text        string       `json:"text"`                  // Input text as received
	Prediction  Prediction   `json:"prediction"`            // Label and confidence
	Explanation *Explanation `json:"explanation,omitempty"` // Attribution report (omitted for predict-only)
	Warnings    []string     `json:"warnings,omitempty"`    // Non-fatal issues (e.g. non-English input)
	Model       string       `json:"model,omitempty"`       // Artifact fingerprint

	Narrative *Narrative `json:"narrative,omitempty"` // Optional LLM narrative (separate, never affects the prediction)
}

// Narrative contains an optional LLM-written reading of a verdict
// It never alters the prediction or the attributions
type Narrative struct {
	Enabled     bool     `json:"enabled"`
	Provider    string   `json:"provider,omitempty"` // openai, ollama
	Model       string   `json:"model,omitempty"`
	StrictWords bool     `json:"strict_words"` // Whether quoted words were checked against the attributions
	SummaryMD   string   `json:"summary_md,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ClassMetrics holds per-class diagnostics on the test partition
type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// Evaluation is the classification report produced after training
type Evaluation struct {
	Accuracy    float64         `json:"accuracy"`
	PerClass    [2]ClassMetrics `json:"per_class"` // Indexed by Label
	MacroAvg    ClassMetrics    `json:"macro_avg"`
	WeightedAvg ClassMetrics    `json:"weighted_avg"`
	Confusion   [2][2]int       `json:"confusion"` // [actual][predicted]
	Total       int             `json:"total"`
}

// TrainingSummary describes one training run
type TrainingSummary struct {
	TrainedAt     time.Time  `json:"trained_at"`
	Documents     int        `json:"documents"`
	TrainSize     int        `json:"train_size"`
	TestSize      int        `json:"test_size"`
	Vocabulary    int        `json:"vocabulary"`
	Iterations    int        `json:"iterations"`
	Converged     bool       `json:"converged"`
	Seed          uint64     `json:"seed"`
	Evaluation    Evaluation `json:"evaluation"`
	VectorizerURI string     `json:"vectorizer_path"`
	ModelURI      string     `json:"model_path"`
}
