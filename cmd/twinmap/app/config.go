package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/twinmap/internal/cmd/globals"
	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "TWINMAP"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Sources
	SPARQLEndpoint  string
	APIEndpoint     string
	ArticleLanguage string
	UserAgent       string
	Timeout         time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	RateLimit       float64
	Cache           bool

	// Comparison
	FoldDiacritics bool
	ParallelFetch  bool

	// Publishing credentials
	Username string
	Password string
	Token    string
	BotEdits bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (TWINMAP_*)
// 3. .env files
// 4. Config file (~/.twinmap.yaml or ./.twinmap.yaml)
// 5. Defaults
//
// An explicitly named config file must exist; the default locations are optional.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".twinmap")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, errors.NewConfigError("config", "cannot read "+v.ConfigFileUsed(), err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Output:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		SPARQLEndpoint:  v.GetString("sparql_endpoint"),
		APIEndpoint:     v.GetString("api_endpoint"),
		ArticleLanguage: v.GetString("article_language"),
		UserAgent:       v.GetString("user_agent"),
		Timeout:         v.GetDuration("timeout"),
		RetryAttempts:   v.GetInt("retry_attempts"),
		RetryBaseDelay:  v.GetDuration("retry_base_delay"),
		RateLimit:       v.GetFloat64("rate_limit"),
		Cache:           v.GetBool("cache"),

		FoldDiacritics: v.GetBool("fold_diacritics"),
		ParallelFetch:  v.GetBool("parallel_fetch"),

		Username: v.GetString("username"),
		Password: v.GetString("password"),
		Token:    v.GetString("token"),
		BotEdits: v.GetBool("bot_edits"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log_format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log_output")),
	}
	// The unprefixed names come from older .env files. USER alone is set by
	// every shell, so it only counts next to PASSWORD.
	if config.Username == "" && config.Password == "" {
		if user, pass := os.Getenv("USER"), os.Getenv("PASSWORD"); user != "" && pass != "" {
			config.Username, config.Password = user, pass
		}
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sparql_endpoint", constants.WikidataSPARQLEndpoint)
	v.SetDefault("api_endpoint", constants.WikidataAPIEndpoint)
	v.SetDefault("article_language", constants.DefaultArticleLanguage)
	v.SetDefault("user_agent", constants.DefaultUserAgent)
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("retry_attempts", constants.MaxRetries)
	v.SetDefault("retry_base_delay", constants.RetryBackoff)
	v.SetDefault("rate_limit", constants.DefaultRateLimit)
	v.SetDefault("cache", false)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(flags *globals.Flags) {
	if flags == nil {
		return
	}
	c.Verbose = c.Verbose || flags.Verbose
	c.Quiet = c.Quiet || flags.Quiet
	c.NoColor = c.NoColor || flags.NoColor
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.Language != "" {
		c.ArticleLanguage = flags.Language
	}
	if flags.Timeout > 0 {
		c.Timeout = flags.Timeout
	}
}

// Credentials returns the publishing credentials.
func (c *Config) Credentials() present.Credentials {
	return present.Credentials{Username: c.Username, Password: c.Password, Token: c.Token}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first because godotenv never overrides a set variable.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
