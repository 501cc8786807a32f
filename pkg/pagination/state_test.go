package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		totalItems int
		pageSize   int
		expected   int
	}{
		{totalItems: 100, pageSize: 10, expected: 10},
		{totalItems: 95, pageSize: 10, expected: 10},
		{totalItems: 101, pageSize: 10, expected: 11},
		{totalItems: 1, pageSize: 10, expected: 1},
		{totalItems: 0, pageSize: 10, expected: 0},
		{totalItems: 7, pageSize: 1, expected: 7},
		{totalItems: 10, pageSize: 0, expected: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TotalPages(tt.totalItems, tt.pageSize),
			"TotalPages(%d, %d)", tt.totalItems, tt.pageSize)
	}
}

func TestTotalPages_MatchesCeil(t *testing.T) {
	for pageSize := 1; pageSize <= 12; pageSize++ {
		for total := 0; total <= 150; total++ {
			want := total / pageSize
			if total%pageSize != 0 {
				want++
			}
			require.Equal(t, want, TotalPages(total, pageSize), "total=%d pageSize=%d", total, pageSize)
		}
	}
}

func TestNew(t *testing.T) {
	s := New(10)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, 10, s.PageSize)
	assert.False(t, s.TotalKnown)
	assert.Equal(t, 0, s.TotalPages())

	assert.Equal(t, DefaultPageSize, New(0).PageSize)
}

func TestWithTotal_Clamps(t *testing.T) {
	s := New(10)
	s.CurrentPage = 12

	s = WithTotal(s, 95)
	assert.True(t, s.TotalKnown)
	assert.Equal(t, 10, s.TotalPages())
	assert.Equal(t, 10, s.CurrentPage)

	s = WithTotal(s, 0)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, 0, s.TotalPages())
}

func TestApply_Next(t *testing.T) {
	s := WithTotal(New(10), 100)

	for p := 1; p < 10; p++ {
		next, ok := Apply(s, Next)
		require.True(t, ok, "Next from page %d", p)
		assert.Equal(t, p+1, next.CurrentPage)
		assert.Equal(t, p, s.CurrentPage, "Apply must not mutate its input")
		s = next
	}

	last, ok := Apply(s, Next)
	assert.False(t, ok)
	assert.Equal(t, s, last)
}

func TestApply_NextRejectedWhileTotalUnknown(t *testing.T) {
	s := New(10)
	next, ok := Apply(s, Next)
	assert.False(t, ok)
	assert.Equal(t, 1, next.CurrentPage)
}

func TestApply_Previous(t *testing.T) {
	s := WithTotal(New(10), 100)

	_, ok := Apply(s, Previous)
	assert.False(t, ok, "Previous must be rejected on page 1")

	s.CurrentPage = 3
	prev, ok := Apply(s, Previous)
	require.True(t, ok)
	assert.Equal(t, 2, prev.CurrentPage)
}

func TestApply_UnknownAction(t *testing.T) {
	s := WithTotal(New(10), 100)
	_, ok := Apply(s, Action(42))
	assert.False(t, ok)
	assert.Equal(t, "action(42)", Action(42).String())
}

func TestControlsFor(t *testing.T) {
	tests := []struct {
		name         string
		state        State
		prevDisabled bool
		nextDisabled bool
	}{
		{
			name:         "first page",
			state:        State{CurrentPage: 1, PageSize: 10, TotalItems: 100, TotalKnown: true},
			prevDisabled: true,
			nextDisabled: false,
		},
		{
			name:         "middle page",
			state:        State{CurrentPage: 5, PageSize: 10, TotalItems: 100, TotalKnown: true},
			prevDisabled: false,
			nextDisabled: false,
		},
		{
			name:         "last page",
			state:        State{CurrentPage: 10, PageSize: 10, TotalItems: 95, TotalKnown: true},
			prevDisabled: false,
			nextDisabled: true,
		},
		{
			name:         "single page",
			state:        State{CurrentPage: 1, PageSize: 10, TotalItems: 3, TotalKnown: true},
			prevDisabled: true,
			nextDisabled: true,
		},
		{
			name:         "total unknown",
			state:        State{CurrentPage: 1, PageSize: 10},
			prevDisabled: true,
			nextDisabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ControlsFor(tt.state)
			assert.Equal(t, tt.state.CurrentPage, c.CurrentPage)
			assert.Equal(t, tt.prevDisabled, c.PrevDisabled, "PrevDisabled")
			assert.Equal(t, tt.nextDisabled, c.NextDisabled, "NextDisabled")
		})
	}
}

func TestControlsFor_DisabledMatchesGuards(t *testing.T) {
	for total := 1; total <= 35; total++ {
		s := WithTotal(New(10), total)
		for page := 1; page <= s.TotalPages(); page++ {
			s.CurrentPage = page
			c := ControlsFor(s)
			assert.Equal(t, page == 1, c.PrevDisabled, "total=%d page=%d", total, page)
			assert.Equal(t, page == s.TotalPages(), c.NextDisabled, "total=%d page=%d", total, page)
			assert.Equal(t, !c.PrevDisabled, CanApply(s, Previous))
			assert.Equal(t, !c.NextDisabled, CanApply(s, Next))
		}
	}
}
