package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/post-pager/pkg/aggregate"
	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	EnvPostsURL, EnvCommentsURL, EnvPageSize, EnvMaxConcurrency, EnvJoinPolicy,
	EnvHTTPTimeout, EnvMaxRetries, EnvUserAgent, EnvLogLevel, EnvLogPretty,
	EnvRedisURL, EnvMetricsAddr, EnvNoScroll, EnvCommentsTimeout,
}

// clearEnv unsets all config variables for the test and restores them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", cfg.PostsURL)
	assert.Equal(t, "https://jsonplaceholder.typicode.com/comments", cfg.CommentsURL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 0, cfg.MaxConcurrency)
	assert.Equal(t, "all", cfg.JoinPolicy)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.CommentsTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "post-pager/0.1.0", cfg.UserAgent)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.MetricsAddr)
	assert.False(t, cfg.NoScroll)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPostsURL, "http://localhost:3000/posts")
	t.Setenv(EnvCommentsURL, "http://localhost:3000/comments")
	t.Setenv(EnvPageSize, "5")
	t.Setenv(EnvMaxConcurrency, "2")
	t.Setenv(EnvJoinPolicy, "Partial")
	t.Setenv(EnvHTTPTimeout, "5s")
	t.Setenv(EnvCommentsTimeout, "1500ms")
	t.Setenv(EnvMaxRetries, "3")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogPretty, "true")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvMetricsAddr, ":9090")
	t.Setenv(EnvNoScroll, "1")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "partial", cfg.JoinPolicy)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.NoScroll)

	cc := cfg.Client()
	assert.Equal(t, "http://localhost:3000/posts", cc.PostsURL)
	assert.Equal(t, 3, cc.MaxRetries)
	assert.Equal(t, 5*time.Second, cc.Timeout)

	ac := cfg.Aggregate()
	assert.Equal(t, 2, ac.MaxConcurrency)
	assert.Equal(t, aggregate.JoinPartial, ac.Policy)
	assert.Equal(t, 1500*time.Millisecond, ac.Timeout)

	assert.Equal(t, 5, cfg.Controller().PageSize)
	assert.Equal(t, logging.LevelDebug, cfg.Logging().Level)
	assert.False(t, cfg.Render().Scroll)
}

func TestAggregate_ConcurrencyDefaultsToPageSize(t *testing.T) {
	cfg := Default()
	cfg.PageSize = 7
	assert.Equal(t, 7, cfg.Aggregate().MaxConcurrency)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"page_size_not_int", EnvPageSize, "ten"},
		{"page_size_zero", EnvPageSize, "0"},
		{"negative_concurrency", EnvMaxConcurrency, "-1"},
		{"unknown_policy", EnvJoinPolicy, "some"},
		{"bad_timeout", EnvHTTPTimeout, "soon"},
		{"zero_timeout", EnvHTTPTimeout, "0s"},
		{"bad_comments_timeout", EnvCommentsTimeout, "later"},
		{"negative_comments_timeout", EnvCommentsTimeout, "-1s"},
		{"negative_retries", EnvMaxRetries, "-2"},
		{"bad_url", EnvPostsURL, "not a url"},
		{"bad_level", EnvLogLevel, "verbose"},
		{"bad_bool", EnvLogPretty, "maybe"},
		{"bad_metrics_addr", EnvMetricsAddr, "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvUserAgent, "from-shell/1.0")

	path := filepath.Join(t.TempDir(), ".env")
	content := "PAGE_SIZE=4\nJOIN_POLICY=partial\nUSER_AGENT=from-file/1.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.PageSize)
	assert.Equal(t, "partial", cfg.JoinPolicy)
	assert.Equal(t, "from-shell/1.0", cfg.UserAgent, "environment wins over .env")
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PageSize)
}
