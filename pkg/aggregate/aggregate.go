// Package aggregate composes posts with their comments, fanning out one
// comments fetch per post and joining the results for a page.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/Sternrassler/post-pager/pkg/posts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	detailFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpager_detail_failures_total",
		Help: "Total number of failed per-post comments fetches",
	})

	pageJoinDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postpager_page_join_duration_seconds",
		Help:    "Time to fetch and join all comments of a page by join policy",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"policy"})
)

// ErrAllFailed is returned by a partial join when no post could be composed.
var ErrAllFailed = errors.New("all detail fetches failed")

// CommentFetcher fetches all comments of a post in server order.
type CommentFetcher interface {
	Comments(ctx context.Context, postID int) ([]posts.Comment, error)
}

// JoinPolicy decides what a page join does when some fetches fail.
type JoinPolicy string

const (
	// JoinAll fails the whole page if any fetch fails.
	JoinAll JoinPolicy = "all"

	// JoinPartial keeps the posts that could be composed and reports the rest.
	JoinPartial JoinPolicy = "partial"
)

// ParseJoinPolicy parses "all" or "partial" (case-insensitive).
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch JoinPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case JoinAll:
		return JoinAll, nil
	case JoinPartial:
		return JoinPartial, nil
	default:
		return "", fmt.Errorf("unknown join policy %q", s)
	}
}

// Config holds aggregator configuration.
type Config struct {
	// MaxConcurrency bounds in-flight comments fetches per page.
	MaxConcurrency int
	// Policy is the join policy for AggregatePage.
	Policy JoinPolicy
	// Timeout per comments fetch (0 means none).
	Timeout time.Duration
}

// DefaultConfig returns the all-or-nothing join with one fetch per post of
// a default page in flight.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Policy:         JoinAll,
	}
}

// Failure is a post whose comments could not be fetched.
type Failure struct {
	PostID int
	Err    error
}

// Result of a page join. Records keep the order of the input summaries.
type Result struct {
	Records []posts.Record
	Failed  []Failure
}

// Aggregator composes post records.
type Aggregator struct {
	fetcher CommentFetcher
	config  Config
	logger  zerolog.Logger
}

// New creates an aggregator.
func New(fetcher CommentFetcher, config Config) *Aggregator {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Policy == "" {
		config.Policy = JoinAll
	}

	return &Aggregator{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("aggregator"),
	}
}

// Policy returns the configured join policy.
func (a *Aggregator) Policy() JoinPolicy {
	return a.config.Policy
}

// Aggregate fetches the comments of post and composes its record, keeping
// the first posts.MaxComments comments.
func (a *Aggregator) Aggregate(ctx context.Context, post posts.Summary) (posts.Record, error) {
	fetchCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	comments, err := a.fetcher.Comments(fetchCtx, post.ID)
	if err != nil {
		logger := logging.Ctx(ctx, a.logger)
		if ctx.Err() != nil {
			// Cancelled by a sibling failure or a newer navigation.
			logger.Debug().Err(err).Int("post_id", post.ID).Msg("Comments fetch cancelled")
		} else {
			detailFailuresTotal.Inc()
			logger.Error().Err(err).Int("post_id", post.ID).Msg("Comments fetch failed")
		}
		return posts.Record{}, err
	}

	return posts.NewRecord(post, comments), nil
}

// AggregatePage composes records for all summaries concurrently and joins
// them according to the configured policy.
//
// Under JoinAll the first failure cancels the remaining fetches and is
// returned with no records. Under JoinPartial every failure is listed in
// Result.Failed and an error is returned only if nothing succeeded.
func (a *Aggregator) AggregatePage(ctx context.Context, summaries []posts.Summary) (Result, error) {
	if len(summaries) == 0 {
		return Result{}, nil
	}

	start := time.Now()
	defer func() {
		pageJoinDuration.WithLabelValues(string(a.config.Policy)).Observe(time.Since(start).Seconds())
	}()

	if a.config.Policy == JoinPartial {
		return a.joinPartial(ctx, summaries)
	}
	return a.joinAll(ctx, summaries)
}

func (a *Aggregator) joinAll(ctx context.Context, summaries []posts.Summary) (Result, error) {
	records := make([]posts.Record, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.MaxConcurrency)

	for i, summary := range summaries {
		g.Go(func() error {
			rec, err := a.Aggregate(gctx, summary)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("join page: %w", err)
	}

	return Result{Records: records}, nil
}

func (a *Aggregator) joinPartial(ctx context.Context, summaries []posts.Summary) (Result, error) {
	records := make([]posts.Record, len(summaries))
	errs := make([]error, len(summaries))

	var g errgroup.Group
	g.SetLimit(a.config.MaxConcurrency)

	for i, summary := range summaries {
		g.Go(func() error {
			records[i], errs[i] = a.Aggregate(ctx, summary)
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, Failure{PostID: summaries[i].ID, Err: err})
			continue
		}
		result.Records = append(result.Records, records[i])
	}

	if len(result.Records) == 0 {
		return result, fmt.Errorf("%w (%d posts): %w", ErrAllFailed, len(summaries), result.Failed[0].Err)
	}

	if len(result.Failed) > 0 {
		logger := logging.Ctx(ctx, a.logger)
		logger.Warn().
			Int("composed", len(result.Records)).
			Int("failed", len(result.Failed)).
			Msg("Partial page join")
	}

	return result, nil
}
