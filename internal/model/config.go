package model

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full newsprobe configuration
// Populated from defaults, then the config file, NEWSPROBE_* env vars and flags
type Config struct {
	Vectorizer VectorizerConfig `yaml:"vectorizer" mapstructure:"vectorizer"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Training   TrainingConfig   `yaml:"training" mapstructure:"training"`
	Explain    ExplainConfig    `yaml:"explain" mapstructure:"explain"`
	Inference  InferenceConfig  `yaml:"inference" mapstructure:"inference"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Feedback   FeedbackConfig   `yaml:"feedback" mapstructure:"feedback"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
}

// VectorizerConfig controls TF-IDF vocabulary pruning
type VectorizerConfig struct {
	MaxDF       float64 `yaml:"max_df" mapstructure:"max_df" validate:"gt=0,lte=1"`          // Drop terms in more than this fraction of documents
	MinDF       int     `yaml:"min_df" mapstructure:"min_df" validate:"gte=1"`               // Drop terms in fewer than this many documents
	MinTokenLen int     `yaml:"min_token_len" mapstructure:"min_token_len" validate:"gte=1"` // Shorter tokens are ignored
}

// ClassifierConfig controls logistic regression fitting
type ClassifierConfig struct {
	C         float64 `yaml:"c" mapstructure:"c" validate:"gt=0"`                 // Inverse L2 regularization strength
	MaxIter   int     `yaml:"max_iter" mapstructure:"max_iter" validate:"gte=1"`  // Optimizer iteration cap
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance" validate:"gt=0"` // Gradient norm threshold
}

// TrainingConfig controls the training pipeline and artifact locations
type TrainingConfig struct {
	TestFraction   float64 `yaml:"test_fraction" mapstructure:"test_fraction" validate:"gt=0,lt=1"`
	Seed           uint64  `yaml:"seed" mapstructure:"seed"`
	ArtifactsDir   string  `yaml:"artifacts_dir" mapstructure:"artifacts_dir" validate:"required"`
	VectorizerFile string  `yaml:"vectorizer_file" mapstructure:"vectorizer_file" validate:"required"`
	ModelFile      string  `yaml:"model_file" mapstructure:"model_file" validate:"required"`
}

// ExplainConfig controls the perturbation explainer
type ExplainConfig struct {
	NumFeatures      int     `yaml:"num_features" mapstructure:"num_features" validate:"gte=1,lte=50"`
	NumSamples       int     `yaml:"num_samples" mapstructure:"num_samples" validate:"gte=2"`
	KernelWidth      float64 `yaml:"kernel_width" mapstructure:"kernel_width" validate:"gt=0"`
	FeatureSelection string  `yaml:"feature_selection" mapstructure:"feature_selection" validate:"oneof=auto forward highest_weights none"`
	MaskString       string  `yaml:"mask_string" mapstructure:"mask_string"` // Placeholder for masked words ("" drops them)
	Seed             uint64  `yaml:"seed" mapstructure:"seed"`
}

// InferenceConfig controls batched scoring
type InferenceConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=1"` // Texts per worker job
}

// CacheConfig controls explanation caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Empty disables the disk layer
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ExplainTimeout    time.Duration `yaml:"explain_timeout" mapstructure:"explain_timeout"` // Wall-clock budget per explanation
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// FeedbackConfig controls the feedback sink
type FeedbackConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// HTTPConfig controls article fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig controls the optional narrative
type LLMConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model       string `yaml:"model" mapstructure:"model"`
	APIKey      string `yaml:"-" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictWords bool   `yaml:"strict_words" mapstructure:"strict_words"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	Color         bool `yaml:"color" mapstructure:"color"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Vectorizer: VectorizerConfig{
			MaxDF:       0.8,
			MinDF:       5,
			MinTokenLen: 2,
		},
		Classifier: ClassifierConfig{
			C:         1.0,
			MaxIter:   1000,
			Tolerance: 1e-4,
		},
		Training: TrainingConfig{
			TestFraction:   0.2,
			Seed:           42,
			ArtifactsDir:   ".",
			VectorizerFile: "tfidf_vectorizer.bin",
			ModelFile:      "fake_news_model.bin",
		},
		Explain: ExplainConfig{
			NumFeatures:      10,
			NumSamples:       5000,
			KernelWidth:      25,
			FeatureSelection: "auto",
			Seed:             42,
		},
		Inference: InferenceConfig{
			Workers:   runtime.NumCPU(),
			ChunkSize: 500,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 5,
			Burst:             10,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			ExplainTimeout:    30 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Feedback: FeedbackConfig{
			Path: "user_feedback.csv",
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "newsprobe/0.1 (+https://github.com/ppiankov/newsprobe)",
			MaxBodyBytes:  2_000_000,
			MaxRetries:    2,
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Timeout:     30,
			MaxTokens:   600,
			StrictWords: true,
		},
		Output: OutputConfig{
			Color:         true,
			IncludeFooter: true,
		},
	}
}

// Validate checks value ranges after all configuration layers are merged
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %s=%s (got %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
