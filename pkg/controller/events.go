package controller

import "fmt"

// Event is a UI message handled by Controller.Dispatch.
type Event interface {
	fmt.Stringer
	isEvent()
}

// Start loads page 1 and the total count. It may be dispatched once.
type Start struct{}

// Next moves to the following page.
type Next struct{}

// Previous moves to the preceding page.
type Previous struct{}

// ToggleComments flips the comments visibility of a post on the current page.
type ToggleComments struct {
	PostID int
}

func (Start) isEvent()          {}
func (Next) isEvent()           {}
func (Previous) isEvent()       {}
func (ToggleComments) isEvent() {}

func (Start) String() string    { return "start" }
func (Next) String() string     { return "next" }
func (Previous) String() string { return "previous" }

func (e ToggleComments) String() string {
	return fmt.Sprintf("toggle_comments(%d)", e.PostID)
}
