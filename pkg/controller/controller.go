// Package controller drives the paginated post view: it owns the page
// state, turns UI events into fetches of the listing and comments, and
// emits render commands.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/post-pager/pkg/aggregate"
	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/Sternrassler/post-pager/pkg/pagination"
	"github.com/Sternrassler/post-pager/pkg/posts"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	navigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpager_navigations_total",
		Help: "Navigation events by action and result",
	}, []string{"action", "result"})

	pageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postpager_page_loads_total",
		Help: "Page load pipeline runs by result",
	}, []string{"result"})
)

// Errors returned by Dispatch.
var (
	// ErrNotStarted is returned for events dispatched before Start.
	ErrNotStarted = errors.New("controller not started")

	// ErrAlreadyStarted is returned when Start is dispatched twice.
	ErrAlreadyStarted = errors.New("controller already started")

	// ErrNavigationRejected is returned when a navigation guard fails.
	ErrNavigationRejected = errors.New("navigation rejected")

	// ErrStaleLoad is returned by a load superseded by a newer navigation.
	ErrStaleLoad = errors.New("page load superseded")

	// ErrUnknownPost is returned when toggling a post that is not rendered.
	ErrUnknownPost = errors.New("post not on current page")

	// ErrUnknownEvent is returned for event types the controller does not handle.
	ErrUnknownEvent = errors.New("unknown event")
)

// ListingFetcher fetches a page of posts and the total post count.
type ListingFetcher interface {
	ListPosts(ctx context.Context, page, limit int) ([]posts.Summary, error)
	CountPosts(ctx context.Context) (int, error)
}

// DetailAggregator composes a page of posts with their comments.
type DetailAggregator interface {
	AggregatePage(ctx context.Context, summaries []posts.Summary) (aggregate.Result, error)
}

// Config holds controller configuration.
type Config struct {
	PageSize int
}

// DefaultConfig returns the default page size.
func DefaultConfig() Config {
	return Config{PageSize: pagination.DefaultPageSize}
}

// Controller owns the page state. It is safe for concurrent Dispatch calls;
// a navigation supersedes any load still in flight.
type Controller struct {
	listing ListingFetcher
	details DetailAggregator
	view    Renderer
	logger  zerolog.Logger

	// renderMu serializes Renderer calls. Lock order: renderMu, then mu.
	renderMu sync.Mutex

	mu          sync.Mutex
	state       pagination.State
	started     bool
	generation  uint64
	cancelLoad  context.CancelFunc
	cancelCount context.CancelFunc
	views       []PostView
	viewsPage   int
}

// New creates a controller at page 1.
func New(listing ListingFetcher, details DetailAggregator, view Renderer, cfg Config) *Controller {
	return &Controller{
		listing: listing,
		details: details,
		view:    view,
		logger:  logging.NewLogger("controller"),
		state:   pagination.New(cfg.PageSize),
	}
}

// State returns a copy of the current page state.
func (c *Controller) State() pagination.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Views returns a copy of the posts currently rendered and their page.
func (c *Controller) Views() (int, []PostView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewsPage, copyViews(c.views)
}

// Dispatch handles one event. Navigation events block until the page has
// been rendered, failed, or been superseded.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case Start:
		return c.start(ctx)
	case Next:
		return c.navigate(ctx, pagination.Next)
	case Previous:
		return c.navigate(ctx, pagination.Previous)
	case ToggleComments:
		return c.toggle(e.PostID)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownEvent, ev)
	}
}

// Close cancels any page load or count fetch in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	if c.cancelCount != nil {
		c.cancelCount()
		c.cancelCount = nil
	}
}

// start fetches page 1 and the total count concurrently.
func (c *Controller) start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	gen, loadCtx := c.beginLoadLocked(ctx)
	countCtx, cancelCount := context.WithCancel(ctx)
	c.cancelCount = cancelCount
	page := c.state.CurrentPage
	c.mu.Unlock()

	countErr := make(chan error, 1)
	go func() {
		defer c.finishCount()
		countErr <- c.loadTotal(countCtx)
	}()

	loadErr := c.load(loadCtx, gen, page)
	return errors.Join(loadErr, <-countErr)
}

func (c *Controller) finishCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelCount != nil {
		c.cancelCount()
		c.cancelCount = nil
	}
}

// loadTotal fetches the total count and renders the pagination controls.
func (c *Controller) loadTotal(ctx context.Context) error {
	total, err := c.listing.CountPosts(ctx)
	if err != nil {
		logger := logging.Ctx(ctx, c.logger)
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("Total post count fetch cancelled")
		} else {
			logger.Error().Err(err).Msg("Failed to fetch total post count")
		}
		return fmt.Errorf("load total: %w", err)
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	c.state = pagination.WithTotal(c.state, total)
	controls := pagination.ControlsFor(c.state)
	c.mu.Unlock()

	c.logger.Info().
		Int("total_items", total).
		Int("total_pages", controls.TotalPages).
		Msg("Total post count loaded")

	return c.view.RenderControls(controls)
}

// navigate applies a guarded transition and loads the new page.
func (c *Controller) navigate(ctx context.Context, action pagination.Action) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	next, ok := pagination.Apply(c.state, action)
	if !ok {
		page := c.state.CurrentPage
		c.mu.Unlock()
		navigationsTotal.WithLabelValues(action.String(), "rejected").Inc()
		c.logger.Debug().Str("action", action.String()).Int("page", page).Msg("Navigation rejected")
		return fmt.Errorf("%w: %s from page %d", ErrNavigationRejected, action, page)
	}
	c.state = next
	gen, loadCtx := c.beginLoadLocked(ctx)
	controls := pagination.ControlsFor(c.state)
	c.mu.Unlock()

	navigationsTotal.WithLabelValues(action.String(), "accepted").Inc()

	if err := c.renderIfCurrent(gen, func() error {
		c.view.ScrollToTop()
		return c.view.RenderControls(controls)
	}); err != nil && !errors.Is(err, ErrStaleLoad) {
		c.logger.Error().Err(err).Msg("Failed to render pagination controls")
	}

	return c.load(loadCtx, gen, controls.CurrentPage)
}

// beginLoadLocked cancels the load in flight and starts a new generation.
// c.mu must be held.
func (c *Controller) beginLoadLocked(parent context.Context) (uint64, context.Context) {
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.generation++
	ctx, cancel := context.WithCancel(parent)
	c.cancelLoad = cancel
	return c.generation, ctx
}

// finishLoad releases the context of gen if it is still the current load.
func (c *Controller) finishLoad(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen && c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

// renderIfCurrent runs fn under the render lock if gen is still current.
func (c *Controller) renderIfCurrent(gen uint64, fn func() error) error {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if !c.isCurrent(gen) {
		return ErrStaleLoad
	}
	return fn()
}

// load runs the listing -> comments -> render pipeline for page.
func (c *Controller) load(ctx context.Context, gen uint64, page int) error {
	defer c.finishLoad(gen)

	ctx = logging.WithLoadID(ctx, uuid.NewString())
	logger := logging.Ctx(ctx, c.logger).With().
		Uint64("generation", gen).
		Int("page", page).
		Logger()

	c.mu.Lock()
	pageSize := c.state.PageSize
	c.mu.Unlock()

	summaries, err := c.listing.ListPosts(ctx, page, pageSize)
	if err != nil {
		return c.loadFailed(logger, gen, page, err)
	}

	result, err := c.details.AggregatePage(ctx, summaries)
	if err != nil {
		return c.loadFailed(logger, gen, page, err)
	}

	views := newViews(result.Records)
	err = c.renderIfCurrent(gen, func() error {
		c.mu.Lock()
		c.views = views
		c.viewsPage = page
		c.mu.Unlock()
		return c.view.RenderPosts(page, copyViews(views))
	})
	if errors.Is(err, ErrStaleLoad) {
		pageLoadsTotal.WithLabelValues("stale").Inc()
		logger.Debug().Msg("Discarding superseded page")
		return fmt.Errorf("%w: page %d", ErrStaleLoad, page)
	}
	if err != nil {
		pageLoadsTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Failed to render page")
		return fmt.Errorf("render page %d: %w", page, err)
	}

	if len(result.Failed) > 0 {
		pageLoadsTotal.WithLabelValues("partial").Inc()
		for _, f := range result.Failed {
			logger.Warn().Err(f.Err).Int("post_id", f.PostID).Msg("Post omitted from page, comments fetch failed")
		}
	} else {
		pageLoadsTotal.WithLabelValues("ok").Inc()
	}

	logger.Info().Int("posts", len(views)).Msg("Page rendered")
	return nil
}

func (c *Controller) loadFailed(logger zerolog.Logger, gen uint64, page int, err error) error {
	if !c.isCurrent(gen) {
		pageLoadsTotal.WithLabelValues("stale").Inc()
		logger.Debug().Err(err).Msg("Superseded page load ended")
		return fmt.Errorf("%w: page %d", ErrStaleLoad, page)
	}

	pageLoadsTotal.WithLabelValues("failed").Inc()
	logger.Error().Err(err).Msg("Page load failed, keeping previous content")
	return fmt.Errorf("load page %d: %w", page, err)
}

// toggle flips comments visibility of postID and re-renders the page
// followed by the pagination controls once the total is known.
func (c *Controller) toggle(postID int) error {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	idx := -1
	for i := range c.views {
		if c.views[i].Record.Post.ID == postID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownPost, postID)
	}
	c.views[idx].ToggleComments()
	page, views := c.viewsPage, copyViews(c.views)
	visible := c.views[idx].CommentsVisible
	controls, totalKnown := pagination.ControlsFor(c.state), c.state.TotalKnown
	c.mu.Unlock()

	c.logger.Debug().Int("post_id", postID).Bool("visible", visible).Msg("Toggled comments")
	if err := c.view.RenderPosts(page, views); err != nil {
		return err
	}
	if !totalKnown {
		return nil
	}
	return c.view.RenderControls(controls)
}
