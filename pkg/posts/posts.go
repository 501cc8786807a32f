// Package posts holds the records returned by the blog API and the
// composed post record rendered per page.
package posts

// MaxComments is the number of comments kept per post, in server order.
const MaxComments = 5

// Summary is a post as returned by the listing endpoint.
type Summary struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Comment belongs to exactly one post via PostID.
type Comment struct {
	ID     int    `json:"id"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Record is a post composed with its (truncated) comments.
type Record struct {
	Post     Summary
	Comments []Comment
}

// TruncateComments returns at most MaxComments comments, keeping order.
// The returned slice does not alias the input.
func TruncateComments(comments []Comment) []Comment {
	n := len(comments)
	if n > MaxComments {
		n = MaxComments
	}
	out := make([]Comment, n)
	copy(out, comments[:n])
	return out
}

// NewRecord composes a record from a summary and its comments.
func NewRecord(post Summary, comments []Comment) Record {
	return Record{
		Post:     post,
		Comments: TruncateComments(comments),
	}
}
