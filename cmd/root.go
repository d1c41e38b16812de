package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/resume-agent/internal/ai/gemini"
	"github.com/spigell/resume-agent/internal/document"
	"github.com/spigell/resume-agent/internal/server"
	"github.com/spigell/resume-agent/internal/workflow"
)

const (
	appName = "resume-agent"

	driverFile  = "file"
	driverRedis = "redis"
)

type Config struct {
	AI       AIConfig       `mapstructure:"ai"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	MaxAttempts int           `mapstructure:"max-attempts"`
	BaseDelay   time.Duration `mapstructure:"base-delay"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	Temperature       float32 `mapstructure:"temperature"`
	MaxOutputTokens   int32   `mapstructure:"max-output-tokens"`
	RequestsPerMinute int     `mapstructure:"requests-per-minute"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type WorkflowConfig struct {
	FitScoreThreshold int    `mapstructure:"fit-score-threshold"`
	OutputDir         string `mapstructure:"output-dir"`
}

type StorageConfig struct {
	Driver   string      `mapstructure:"driver"`
	BasePath string      `mapstructure:"base-path"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	URL    string        `mapstructure:"url"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type PDFConfig struct {
	MaxFileSize int64 `mapstructure:"max-file-size"`
}

type ServerConfig struct {
	Listen     string `mapstructure:"listen"`
	UploadsDir string `mapstructure:"uploads-dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "resume-agent evaluates resumes against job requirements with an LLM and prepares tailored applications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	setDefaults(viper.GetViper())
	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatalf("binding environment variables: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", gemini.Provider)
	v.SetDefault("ai.max-attempts", 3)
	v.SetDefault("ai.base-delay", time.Second)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.temperature", 0.7)
	v.SetDefault("ai.gemini.max-output-tokens", 4000)
	v.SetDefault("ai.gemini.requests-per-minute", 0)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("workflow.fit-score-threshold", workflow.DefaultThreshold)
	v.SetDefault("workflow.output-dir", workflow.DefaultOutputDir)

	v.SetDefault("storage.driver", driverFile)
	v.SetDefault("storage.base-path", "data")
	v.SetDefault("storage.redis.prefix", appName)

	v.SetDefault("pdf.max-file-size", document.DefaultMaxFileSize)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.uploads-dir", server.DefaultUploadsDir)
}

func bindEnv(v *viper.Viper) error {
	for key, env := range map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"storage.redis.url":      "REDIS_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

func initConfig() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
	}

	// Every key has a default, so only an explicit or broken config is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Workflow.FitScoreThreshold < 0 || c.Workflow.FitScoreThreshold > 100 {
		return fmt.Errorf("workflow.fit-score-threshold %d is outside [0, 100]", c.Workflow.FitScoreThreshold)
	}
	if c.AI.MaxAttempts < 1 {
		return fmt.Errorf("ai.max-attempts must be at least 1, got %d", c.AI.MaxAttempts)
	}
	if c.AI.BaseDelay < 0 {
		return fmt.Errorf("ai.base-delay must not be negative, got %s", c.AI.BaseDelay)
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case driverFile:
	case driverRedis:
		if strings.TrimSpace(c.Storage.Redis.URL) == "" {
			return errors.New("storage.redis.url is required for the redis driver (or set REDIS_URL)")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q, expected %s or %s", c.Storage.Driver, driverFile, driverRedis)
	}

	return nil
}
