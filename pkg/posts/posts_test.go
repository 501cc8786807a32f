package posts

import (
	"encoding/json"
	"testing"
)

func makeComments(n int) []Comment {
	out := make([]Comment, n)
	for i := range out {
		out[i] = Comment{ID: i + 1, PostID: 1, Email: "user@example.com", Body: "body"}
	}
	return out
}

func TestTruncateComments(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		expected int
	}{
		{name: "no comments", count: 0, expected: 0},
		{name: "fewer than max", count: 3, expected: 3},
		{name: "exactly max", count: MaxComments, expected: MaxComments},
		{name: "more than max", count: 12, expected: MaxComments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := makeComments(tt.count)
			got := TruncateComments(in)

			if len(got) != tt.expected {
				t.Fatalf("len = %d, want %d", len(got), tt.expected)
			}
			for i := range got {
				if got[i].ID != i+1 {
					t.Errorf("comment %d has ID %d, want %d (server order)", i, got[i].ID, i+1)
				}
			}
		})
	}
}

func TestTruncateComments_DoesNotAlias(t *testing.T) {
	in := makeComments(2)
	got := TruncateComments(in)
	got[0].Body = "changed"

	if in[0].Body != "body" {
		t.Error("TruncateComments result aliases the input slice")
	}
}

func TestNewRecord(t *testing.T) {
	post := Summary{ID: 7, Title: "title", Body: "body"}
	rec := NewRecord(post, makeComments(9))

	if rec.Post != post {
		t.Errorf("Post = %+v, want %+v", rec.Post, post)
	}
	if len(rec.Comments) != MaxComments {
		t.Errorf("len(Comments) = %d, want %d", len(rec.Comments), MaxComments)
	}
}

func TestSummary_DecodesAPIShape(t *testing.T) {
	raw := `{"userId": 1, "id": 3, "title": "ea molestias", "body": "et iusto sed"}`

	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s.ID != 3 || s.UserID != 1 || s.Title != "ea molestias" {
		t.Errorf("decoded %+v", s)
	}
}
