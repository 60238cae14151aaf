package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsprobe/internal/model"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile      string
	verbose      bool
	logLevel     string
	artifactsDir string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newsprobe",
	Short: "newsprobe - fake/real news classifier with word-level explanations",
	Long: `newsprobe trains a TF-IDF logistic regression model on labeled news articles,
classifies new articles as Fake or Real, and explains which words drove each
decision with a local perturbation surrogate.

A prediction is a statistical estimate from word usage. It does not verify facts.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel the command context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsprobe %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newsprobe/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "artifacts-dir", "", "directory holding the vectorizer and model artifacts")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("training.artifacts_dir", rootCmd.PersistentFlags().Lookup("artifacts-dir"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".newsprobe"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// NEWSPROBE_SERVER_ADDR overrides server.addr
	viper.SetEnvPrefix("NEWSPROBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key", "NEWSPROBE_LLM_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("llm.base_url", "NEWSPROBE_LLM_BASE_URL", "OLLAMA_BASE_URL")
	_ = viper.BindEnv("http.http_proxy", "NEWSPROBE_HTTP_HTTP_PROXY")
	_ = viper.BindEnv("http.https_proxy", "NEWSPROBE_HTTP_HTTPS_PROXY")
	_ = viper.BindEnv("http.no_proxy", "NEWSPROBE_HTTP_NO_PROXY")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and bound flags, then validates
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	// Registering every default key lets AutomaticEnv resolve it during Unmarshal
	defaults, err := flatDefaults(cfg)
	if err != nil {
		return nil, err
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flatDefaults turns the default config into dotted viper keys ("server.addr" -> ":8080")
func flatDefaults(cfg *model.Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}
	out := make(map[string]any)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// newLogger builds the stderr text logger; --verbose raises the default level to info
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "Unknown log level %q, using warn\n", logLevel)
			level = slog.LevelWarn
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
