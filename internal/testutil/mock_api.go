// Package testutil provides a mock blog API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/post-pager/pkg/posts"
)

// Paths served by MockAPI.
const (
	PostsPath    = "/posts"
	CommentsPath = "/comments"
)

// MockResponse defines a fixed response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of a json-server style blog API. By default
// it serves the seeded posts and comments with the _limit/_page, _start/_end
// and postId query semantics of jsonplaceholder.
type MockAPI struct {
	server *httptest.Server

	mu           sync.RWMutex
	handlers     map[string]func(w http.ResponseWriter, r *http.Request)
	posts        []posts.Summary
	comments     []posts.Comment
	failComments map[int]int
	delay        func(r *http.Request) time.Duration
	omitTotal    bool
	rateHeaders  map[string]string
	requests     []url.URL

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server with no data.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failComments: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.requests = append(mock.requests, *r.URL)
		delay := mock.delay
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if delay != nil {
			if d := delay(r); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// PostsURL returns the posts collection URL.
func (m *MockAPI) PostsURL() string {
	return m.server.URL + PostsPath
}

// CommentsURL returns the comments collection URL.
func (m *MockAPI) CommentsURL() string {
	return m.server.URL + CommentsPath
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.requests = nil
}

// Seed generates total posts with ids 1..total; commentsPer returns the
// number of comments for a post id.
func (m *MockAPI) Seed(total int, commentsPer func(postID int) int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = m.posts[:0]
	m.comments = m.comments[:0]
	commentID := 1
	for id := 1; id <= total; id++ {
		m.posts = append(m.posts, posts.Summary{
			ID:     id,
			UserID: (id-1)/10 + 1,
			Title:  fmt.Sprintf("post %d", id),
			Body:   fmt.Sprintf("body of post %d", id),
		})
		n := 0
		if commentsPer != nil {
			n = commentsPer(id)
		}
		for i := 0; i < n; i++ {
			m.comments = append(m.comments, posts.Comment{
				ID:     commentID,
				PostID: id,
				Name:   fmt.Sprintf("comment %d", commentID),
				Email:  fmt.Sprintf("user%d@example.com", commentID),
				Body:   fmt.Sprintf("comment %d on post %d", commentID, id),
			})
			commentID++
		}
	}
}

// FailComments makes the comments request for postID answer with status.
func (m *MockAPI) FailComments(postID, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failComments[postID] = status
}

// SetDelay installs a per-request delay function.
func (m *MockAPI) SetDelay(delay func(r *http.Request) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// OmitTotalCount stops sending X-Total-Count.
func (m *MockAPI) OmitTotalCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitTotal = true
}

// SetRateLimitHeaders adds X-RateLimit-* headers to every default response.
func (m *MockAPI) SetRateLimitHeaders(limit, remaining, reset int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateHeaders = map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(limit),
		"X-RateLimit-Remaining": strconv.Itoa(remaining),
		"X-RateLimit-Reset":     strconv.Itoa(reset),
	}
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Requests returns a copy of all request URLs seen so far.
func (m *MockAPI) Requests() []url.URL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.URL, len(m.requests))
	copy(out, m.requests)
	return out
}

// ListingRequests returns the _page values of all listing requests, in
// arrival order.
func (m *MockAPI) ListingRequests() []int {
	var pages []int
	for _, u := range m.Requests() {
		if u.Path != PostsPath {
			continue
		}
		if p := u.Query().Get("_page"); p != "" {
			n, _ := strconv.Atoi(p)
			pages = append(pages, n)
		}
	}
	return pages
}

// CountRequests returns how many total-count requests were made.
func (m *MockAPI) CountRequests() int {
	n := 0
	for _, u := range m.Requests() {
		if u.Path == PostsPath && u.Query().Get("_end") != "" {
			n++
		}
	}
	return n
}

// CommentRequests returns how many comments requests were made.
func (m *MockAPI) CommentRequests() int {
	n := 0
	for _, u := range m.Requests() {
		if u.Path == CommentsPath {
			n++
		}
	}
	return n
}

func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, value := range m.rateHeaders {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch r.URL.Path {
	case PostsPath:
		m.servePosts(w, r.URL.Query())
	case CommentsPath:
		m.serveComments(w, r.URL.Query())
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}
}

func (m *MockAPI) servePosts(w http.ResponseWriter, q url.Values) {
	items := make([]posts.Summary, len(m.posts))
	copy(items, m.posts)

	if q.Get("_sort") == "id" {
		desc := q.Get("_order") == "desc"
		sort.Slice(items, func(i, j int) bool {
			if desc {
				return items[i].ID > items[j].ID
			}
			return items[i].ID < items[j].ID
		})
	}

	start, end := 0, len(items)
	switch {
	case q.Get("_start") != "" || q.Get("_end") != "":
		start = atoiDefault(q.Get("_start"), 0)
		end = atoiDefault(q.Get("_end"), len(items))
	case q.Get("_page") != "":
		page := atoiDefault(q.Get("_page"), 1)
		limit := atoiDefault(q.Get("_limit"), 10)
		start = (page - 1) * limit
		end = start + limit
	case q.Get("_limit") != "":
		end = atoiDefault(q.Get("_limit"), len(items))
	}
	start = clamp(start, 0, len(items))
	end = clamp(end, start, len(items))

	if !m.omitTotal {
		w.Header().Set("X-Total-Count", strconv.Itoa(len(m.posts)))
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(items[start:end])
}

func (m *MockAPI) serveComments(w http.ResponseWriter, q url.Values) {
	postID := atoiDefault(q.Get("postId"), 0)
	if status, fail := m.failComments[postID]; fail {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": "comments unavailable"}`))
		return
	}

	out := []posts.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewTooManyRequestsResponse creates a 429 response with an exhausted budget.
func NewTooManyRequestsResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "1000",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
