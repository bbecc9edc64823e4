// Package app provides the application context and dependency management
// for the twinmap CLI. It centralizes configuration, logging and the
// lifecycle of the twinmap client.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/twinmap"
	"github.com/agentstation/twinmap/cmd/application"
	"github.com/agentstation/twinmap/pkg/errors"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the twinmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// extra client options, applied before per-command options
	clientOpts []twinmap.Option

	// Client instance (lazy-initialized, cached)
	mu     sync.RWMutex
	client twinmap.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string {
	return a.config.Output
}

// Twinmap returns the client. Without options the instance is created once
// and cached; with options a new instance is created every time.
func (a *App) Twinmap(opts ...twinmap.Option) (twinmap.Client, error) {
	if len(opts) > 0 {
		tm, err := twinmap.New(append(a.clientOptions(), opts...)...)
		if err != nil {
			return nil, errors.WrapResource("create", "client", "with custom options", err)
		}
		return tm, nil
	}

	a.mu.RLock()
	if a.client != nil {
		tm := a.client
		a.mu.RUnlock()
		return tm, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	tm, err := twinmap.New(a.clientOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = tm
	return tm, nil
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() []twinmap.Option {
	c := a.config
	opts := []twinmap.Option{
		twinmap.WithSPARQLEndpoint(c.SPARQLEndpoint),
		twinmap.WithAPIEndpoint(c.APIEndpoint),
		twinmap.WithLanguage(c.ArticleLanguage),
		twinmap.WithUserAgent(c.UserAgent),
		twinmap.WithTimeout(c.Timeout),
		twinmap.WithRetry(c.RetryAttempts, c.RetryBaseDelay),
		twinmap.WithRateLimit(c.RateLimit),
		twinmap.WithCache(c.Cache),
		twinmap.WithDiacriticFolding(c.FoldDiacritics),
		twinmap.WithParallelFetch(c.ParallelFetch),
		twinmap.WithCredentials(c.Credentials()),
		twinmap.WithBotEdits(c.BotEdits),
	}
	return append(opts, a.clientOpts...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClientOptions adds client options to every client the app creates,
// e.g. offline sources in tests.
func WithClientOptions(opts ...twinmap.Option) Option {
	return func(a *App) error {
		a.clientOpts = append(a.clientOpts, opts...)
		return nil
	}
}
