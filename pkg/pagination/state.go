package pagination

import "fmt"

// DefaultPageSize is the number of posts per page.
const DefaultPageSize = 10

// Action is a navigation step.
type Action int

const (
	// Previous moves one page back.
	Previous Action = iota
	// Next moves one page forward.
	Next
)

// String returns the action name used in logs and metrics.
func (a Action) String() string {
	switch a {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// State is the current page of the listing.
type State struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
	// TotalKnown is false until the total count has been fetched.
	TotalKnown bool
}

// New returns the startup state: page 1, total unknown.
// A pageSize below 1 falls back to DefaultPageSize.
func New(pageSize int) State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return State{
		CurrentPage: 1,
		PageSize:    pageSize,
	}
}

// TotalPages returns ceil(totalItems / pageSize). It is 0 for no items or
// a non-positive page size.
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// TotalPages returns the page count of s, 0 while the total is unknown.
func (s State) TotalPages() int {
	if !s.TotalKnown {
		return 0
	}
	return TotalPages(s.TotalItems, s.PageSize)
}

// WithTotal records the total item count and clamps CurrentPage into
// [1, max(TotalPages, 1)].
func WithTotal(s State, totalItems int) State {
	if totalItems < 0 {
		totalItems = 0
	}
	s.TotalItems = totalItems
	s.TotalKnown = true

	last := s.TotalPages()
	if last < 1 {
		last = 1
	}
	if s.CurrentPage > last {
		s.CurrentPage = last
	}
	if s.CurrentPage < 1 {
		s.CurrentPage = 1
	}
	return s
}

// CanApply reports whether the guard of a holds in s.
func CanApply(s State, a Action) bool {
	switch a {
	case Previous:
		return s.CurrentPage > 1
	case Next:
		return s.TotalKnown && s.CurrentPage < s.TotalPages()
	default:
		return false
	}
}

// Apply returns the state after a and true, or s unchanged and false when
// the guard of a does not hold.
func Apply(s State, a Action) (State, bool) {
	if !CanApply(s, a) {
		return s, false
	}
	switch a {
	case Previous:
		s.CurrentPage--
	case Next:
		s.CurrentPage++
	}
	return s, true
}

// Controls describes the pagination affordances for a state.
type Controls struct {
	CurrentPage  int
	TotalPages   int
	PrevDisabled bool
	NextDisabled bool
}

// ControlsFor derives the controls to render for s.
func ControlsFor(s State) Controls {
	total := s.TotalPages()
	return Controls{
		CurrentPage:  s.CurrentPage,
		TotalPages:   total,
		PrevDisabled: s.CurrentPage == 1,
		NextDisabled: !s.TotalKnown || total == 0 || s.CurrentPage == total,
	}
}
