package controller

import (
	"github.com/Sternrassler/post-pager/pkg/pagination"
	"github.com/Sternrassler/post-pager/pkg/posts"
)

// Labels of the comments toggle.
const (
	LabelShow = "show"
	LabelHide = "hide"
)

// PostView is a rendered post and its comments visibility.
type PostView struct {
	Record          posts.Record
	CommentsVisible bool
}

// ToggleLabel is the label of the comments toggle: the action it performs.
func (v PostView) ToggleLabel() string {
	if v.CommentsVisible {
		return LabelHide
	}
	return LabelShow
}

// ToggleComments flips comments visibility.
func (v *PostView) ToggleComments() {
	v.CommentsVisible = !v.CommentsVisible
}

// Renderer draws the controller output. Calls are serialized by the
// controller; RenderPosts replaces the whole post list.
type Renderer interface {
	RenderPosts(page int, views []PostView) error
	RenderControls(controls pagination.Controls) error
	ScrollToTop()
}

func newViews(records []posts.Record) []PostView {
	views := make([]PostView, len(records))
	for i, rec := range records {
		views[i] = PostView{Record: rec}
	}
	return views
}

func copyViews(views []PostView) []PostView {
	out := make([]PostView, len(views))
	copy(out, views)
	return out
}
