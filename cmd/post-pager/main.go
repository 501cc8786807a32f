// Command post-pager browses a paginated blog API in the terminal.
//
// Commands (one per line on stdin):
//
//	n, next         next page
//	p, prev         previous page
//	t <id>          show or hide the comments of post <id>
//	h, help         list commands
//	q, quit         exit
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Sternrassler/post-pager/internal/config"
	"github.com/Sternrassler/post-pager/pkg/aggregate"
	"github.com/Sternrassler/post-pager/pkg/client"
	"github.com/Sternrassler/post-pager/pkg/controller"
	"github.com/Sternrassler/post-pager/pkg/logging"
	"github.com/Sternrassler/post-pager/pkg/metrics"
	"github.com/Sternrassler/post-pager/pkg/pagination"
	"github.com/Sternrassler/post-pager/pkg/ratelimit"
	"github.com/Sternrassler/post-pager/pkg/render"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const helpText = "commands: n (next), p (prev), t <id> (toggle comments), q (quit)\n"

var (
	// errQuit ends the command loop.
	errQuit = errors.New("quit")
	errHelp = errors.New("help")
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "post-pager: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("post-pager failed")
		os.Exit(1)
	}
}

// run wires the pager and processes commands from in until quit, EOF or
// cancellation of ctx. At EOF loads in flight finish; quit cancels them.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger := logging.NewLogger("main")

	store, closeStore, err := newRateLimitStore(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeStore()

	clientCfg := cfg.Client()
	clientCfg.RateLimitStore = store
	apiClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer apiClient.Close()

	agg := aggregate.New(apiClient, cfg.Aggregate())
	view := render.NewTerminal(out, cfg.Render())
	ctrl := controller.New(apiClient, agg, view, cfg.Controller())
	defer ctrl.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newRouter(ctrl, apiClient),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Starting metrics listener")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Str("posts_url", cfg.PostsURL).
		Int("page_size", cfg.PageSize).
		Str("join_policy", cfg.JoinPolicy).
		Msg("Starting post pager")

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := ctrl.Dispatch(loopCtx, controller.Start{}); err != nil {
		logger.Warn().Err(err).Msg("Start incomplete")
	}
	fmt.Fprint(out, helpText)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	lines := readLines(loopCtx, in)
	for {
		select {
		case <-loopCtx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// EOF: let loads in flight render.
				inflight.Wait()
				return nil
			}

			ev, err := parseCommand(line)
			switch {
			case errors.Is(err, errQuit):
				cancel()
				return nil
			case errors.Is(err, errHelp):
				fmt.Fprint(out, helpText)
				continue
			case err != nil:
				fmt.Fprintf(out, "%v\n%s", err, helpText)
				continue
			case ev == nil:
				continue
			}

			switch ev.(type) {
			case controller.ToggleComments:
				dispatch(loopCtx, ctrl, ev, out)
			default:
				// Navigation runs concurrently so a newer one supersedes it.
				inflight.Add(1)
				go func() {
					defer inflight.Done()
					dispatch(loopCtx, ctrl, ev, out)
				}()
			}
		}
	}
}

// dispatch sends ev and reports errors a user can act on.
func dispatch(ctx context.Context, ctrl *controller.Controller, ev controller.Event, out io.Writer) {
	err := ctrl.Dispatch(ctx, ev)
	switch {
	case err == nil, errors.Is(err, controller.ErrStaleLoad), errors.Is(err, context.Canceled):
	case errors.Is(err, controller.ErrNavigationRejected), errors.Is(err, controller.ErrUnknownPost):
		log.Debug().Err(err).Str("event", ev.String()).Msg("Event ignored")
		fmt.Fprintf(out, "%v\n", err)
	default:
		log.Error().Err(err).Str("event", ev.String()).Msg("Event failed")
	}
}

// parseCommand maps an input line to an event. Blank lines yield nil.
func parseCommand(line string) (controller.Event, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil, nil
	}

	switch fields[0] {
	case "n", "next":
		return controller.Next{}, nil
	case "p", "prev", "previous":
		return controller.Previous{}, nil
	case "t", "toggle":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: t <post id>")
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid post id %q", fields[1])
		}
		return controller.ToggleComments{PostID: id}, nil
	case "h", "help", "?":
		return nil, errHelp
	case "q", "quit", "exit":
		return nil, errQuit
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

// readLines streams lines of in until EOF or cancellation.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// newRateLimitStore returns a redis store for redisURL, or nil to keep the
// state in memory.
func newRateLimitStore(ctx context.Context, redisURL string) (ratelimit.Store, func(), error) {
	if redisURL == "" {
		return nil, func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	redisClient := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Rate limit state stored in redis")
	return ratelimit.NewRedisStore(redisClient), func() { redisClient.Close() }, nil
}

// statusSource provides the state reported by /health.
type statusSource interface {
	State() pagination.State
}

type rateLimitSource interface {
	RateLimitState(ctx context.Context) (*ratelimit.RateLimitState, error)
}

// newRouter serves /metrics and /health.
func newRouter(pager statusSource, limits rateLimitSource) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(pager, limits)).Methods(http.MethodGet)
	return r
}

type healthResponse struct {
	Status             string `json:"status"`
	Page               int    `json:"page"`
	TotalPages         int    `json:"total_pages"`
	TotalKnown         bool   `json:"total_known"`
	RateLimitRemaining int    `json:"rate_limit_remaining"`
	RateLimitHealthy   bool   `json:"rate_limit_healthy"`
}

func healthHandler(pager statusSource, limits rateLimitSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := pager.State()
		resp := healthResponse{
			Status:     "ok",
			Page:       state.CurrentPage,
			TotalPages: state.TotalPages(),
			TotalKnown: state.TotalKnown,
		}

		status := http.StatusOK
		rl, err := limits.RateLimitState(r.Context())
		if err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.RateLimitRemaining = rl.Remaining
			resp.RateLimitHealthy = rl.IsHealthy
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
