// Package render draws controller output on a terminal.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/post-pager/pkg/controller"
	"github.com/Sternrassler/post-pager/pkg/pagination"
	"github.com/fatih/color"
)

// ClearScreen moves the cursor home and clears the screen.
const ClearScreen = "\x1b[H\x1b[2J"

// Options configures a Terminal.
type Options struct {
	// Scroll enables ScrollToTop (clear screen on navigation).
	Scroll bool

	// NoColor disables colored output regardless of the terminal.
	NoColor bool
}

// Terminal renders pages and controls as text. Each RenderPosts call writes
// the whole page with a single Write.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	scroll bool

	title   *color.Color
	meta    *color.Color
	label   *color.Color
	enabled *color.Color
	dimmed  *color.Color
}

var _ controller.Renderer = (*Terminal)(nil)

// NewTerminal creates a renderer writing to out.
func NewTerminal(out io.Writer, opts Options) *Terminal {
	t := &Terminal{
		out:     out,
		scroll:  opts.Scroll,
		title:   color.New(color.Bold),
		meta:    color.New(color.FgCyan),
		label:   color.New(color.FgYellow),
		enabled: color.New(color.FgGreen, color.Bold),
		dimmed:  color.New(color.Faint),
	}

	if opts.NoColor {
		for _, c := range []*color.Color{t.title, t.meta, t.label, t.enabled, t.dimmed} {
			c.DisableColor()
		}
	}

	return t
}

// RenderPosts replaces the post list with views.
func (t *Terminal) RenderPosts(page int, views []controller.PostView) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n\n", t.meta.Sprintf("Page %d", page))
	for _, v := range views {
		t.writePost(&buf, v)
	}

	return t.write(buf.Bytes())
}

func (t *Terminal) writePost(buf *bytes.Buffer, v controller.PostView) {
	post := v.Record.Post

	fmt.Fprintf(buf, "%s\n", t.title.Sprintf("#%d | %s", post.ID, post.Title))
	if post.Body != "" {
		fmt.Fprintf(buf, "%s\n", post.Body)
	}

	fmt.Fprintf(buf, "%s\n", t.meta.Sprint("Comments:"))
	if v.CommentsVisible {
		if len(v.Record.Comments) == 0 {
			fmt.Fprintf(buf, "  %s\n", t.dimmed.Sprint("(none)"))
		}
		for _, c := range v.Record.Comments {
			body := strings.ReplaceAll(c.Body, "\n", " ")
			fmt.Fprintf(buf, "  - %s: %s\n", t.meta.Sprint(c.Email), body)
		}
	}

	fmt.Fprintf(buf, "[%s]\n\n", t.label.Sprint(v.ToggleLabel()))
}

// RenderControls draws the pagination line.
func (t *Terminal) RenderControls(controls pagination.Controls) error {
	prev := t.button("< prev", controls.PrevDisabled)
	next := t.button("next >", controls.NextDisabled)

	line := fmt.Sprintf("[%s] %d/%d [%s]\n", prev, controls.CurrentPage, controls.TotalPages, next)
	return t.write([]byte(line))
}

func (t *Terminal) button(text string, disabled bool) string {
	if disabled {
		return t.dimmed.Sprint(text)
	}
	return t.enabled.Sprint(text)
}

// ScrollToTop clears the screen when scrolling is enabled.
func (t *Terminal) ScrollToTop() {
	if !t.scroll {
		return
	}
	_ = t.write([]byte(ClearScreen))
}

func (t *Terminal) write(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.out.Write(p); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
