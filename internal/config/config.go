// Package config loads the post pager configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/post-pager/pkg/aggregate"
	"github.com/Sternrassler/post-pager/pkg/client"
	"github.com/Sternrassler/post-pager/pkg/controller"
	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/Sternrassler/post-pager/pkg/render"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvPostsURL        = "POSTS_URL"
	EnvCommentsURL     = "COMMENTS_URL"
	EnvPageSize        = "PAGE_SIZE"
	EnvMaxConcurrency  = "MAX_CONCURRENCY"
	EnvJoinPolicy      = "JOIN_POLICY"
	EnvHTTPTimeout     = "HTTP_TIMEOUT"
	EnvCommentsTimeout = "COMMENTS_TIMEOUT"
	EnvMaxRetries      = "MAX_RETRIES"
	EnvUserAgent       = "USER_AGENT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogPretty       = "LOG_PRETTY"
	EnvRedisURL        = "REDIS_URL"
	EnvMetricsAddr     = "METRICS_ADDR"
	EnvNoScroll        = "NO_SCROLL"
)

// Config is the post pager configuration.
type Config struct {
	PostsURL    string `validate:"required,url"`
	CommentsURL string `validate:"required,url"`

	PageSize       int    `validate:"min=1,max=100"`
	MaxConcurrency int    `validate:"min=0,max=100"`
	JoinPolicy     string `validate:"oneof=all partial"`

	// CommentsTimeout bounds each comments fetch of a page; 0 means none.
	CommentsTimeout time.Duration `validate:"gte=0s"`

	HTTPTimeout time.Duration `validate:"gt=0"`
	MaxRetries  int           `validate:"min=0,max=10"`
	UserAgent   string        `validate:"required"`

	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogPretty bool

	// RedisURL selects the redis rate-limit store; empty keeps state in memory.
	RedisURL string `validate:"omitempty,url"`

	// MetricsAddr enables the /metrics and /health listener.
	MetricsAddr string `validate:"omitempty,hostname_port"`

	NoScroll bool
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	def := client.DefaultConfig()
	return Config{
		PostsURL:    def.PostsURL,
		CommentsURL: def.CommentsURL,
		PageSize:    controller.DefaultConfig().PageSize,
		JoinPolicy:  string(aggregate.JoinAll),
		HTTPTimeout: def.Timeout,
		MaxRetries:  def.MaxRetries,
		UserAgent:   def.UserAgent,
		LogLevel:    string(logging.LevelInfo),
	}
}

// Load reads .env files (variables already set win), then the environment,
// and validates the result. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	def := Default()
	p := &parser{}

	cfg := &Config{
		PostsURL:        getEnvOrDefault(EnvPostsURL, def.PostsURL),
		CommentsURL:     getEnvOrDefault(EnvCommentsURL, def.CommentsURL),
		PageSize:        p.int(EnvPageSize, def.PageSize),
		MaxConcurrency:  p.int(EnvMaxConcurrency, def.MaxConcurrency),
		JoinPolicy:      strings.ToLower(getEnvOrDefault(EnvJoinPolicy, def.JoinPolicy)),
		HTTPTimeout:     p.duration(EnvHTTPTimeout, def.HTTPTimeout),
		CommentsTimeout: p.duration(EnvCommentsTimeout, def.CommentsTimeout),
		MaxRetries:      p.int(EnvMaxRetries, def.MaxRetries),
		UserAgent:       getEnvOrDefault(EnvUserAgent, def.UserAgent),
		LogLevel:        strings.ToLower(getEnvOrDefault(EnvLogLevel, def.LogLevel)),
		LogPretty:       p.bool(EnvLogPretty, def.LogPretty),
		RedisURL:        os.Getenv(EnvRedisURL),
		MetricsAddr:     os.Getenv(EnvMetricsAddr),
		NoScroll:        p.bool(EnvNoScroll, def.NoScroll),
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(p.errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("validation errors: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Client returns the API client configuration. The rate-limit store is
// left to the caller.
func (c *Config) Client() client.Config {
	cfg := client.DefaultConfig()
	cfg.PostsURL = c.PostsURL
	cfg.CommentsURL = c.CommentsURL
	cfg.UserAgent = c.UserAgent
	cfg.Timeout = c.HTTPTimeout
	cfg.MaxRetries = c.MaxRetries
	return cfg
}

// Aggregate returns the aggregator configuration. MaxConcurrency 0 means
// one fetch per post of a page.
func (c *Config) Aggregate() aggregate.Config {
	limit := c.MaxConcurrency
	if limit == 0 {
		limit = c.PageSize
	}
	return aggregate.Config{
		MaxConcurrency: limit,
		Policy:         aggregate.JoinPolicy(c.JoinPolicy),
		Timeout:        c.CommentsTimeout,
	}
}

// Controller returns the controller configuration.
func (c *Config) Controller() controller.Config {
	return controller.Config{PageSize: c.PageSize}
}

// Logging returns the logger configuration writing to stderr.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// Render returns the terminal renderer options.
func (c *Config) Render() render.Options {
	return render.Options{Scroll: !c.NoScroll}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and collects malformed values.
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
