package textcoord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeCoordSet spans document positions [2,5], [6,9], [10,15].
func threeCoordSet() *Set {
	set := NewSet()
	set.Add(&Coordinate{Text: "one", Order: 0, DocumentIndexFirst: 2, DocumentIndexLast: 5})
	set.Add(&Coordinate{Text: "two", Order: 1, DocumentIndexFirst: 6, DocumentIndexLast: 9})
	set.Add(&Coordinate{Text: "three", Order: 2, DocumentIndexFirst: 10, DocumentIndexLast: 15})
	return set
}

func TestFindCoords(t *testing.T) {
	set := threeCoordSet()

	t.Run("overlapping start only", func(t *testing.T) {
		got := set.FindCoords(1, 8)
		require.Len(t, got, 1)
		assert.Equal(t, "one", got[0].Text)
	})

	t.Run("empty range", func(t *testing.T) {
		assert.Empty(t, set.FindCoords(1, 1))
	})

	t.Run("past all coordinates", func(t *testing.T) {
		assert.Empty(t, set.FindCoords(16, 20))
	})

	t.Run("before all coordinates", func(t *testing.T) {
		assert.Empty(t, set.FindCoords(0, 2))
	})

	t.Run("full span", func(t *testing.T) {
		assert.Len(t, set.FindCoords(2, 16), 3)
	})

	t.Run("query begins mid-coordinate", func(t *testing.T) {
		got := set.FindCoords(7, 10)
		require.Len(t, got, 1)
		assert.Equal(t, "two", got[0].Text)
	})

	t.Run("empty set", func(t *testing.T) {
		assert.Empty(t, NewSet().FindCoords(0, 100))
	})
}

func TestByUUID(t *testing.T) {
	set := threeCoordSet()

	c, ok := set.ByUUID("1")
	require.True(t, ok)
	assert.Equal(t, "two", c.Text)

	_, ok = set.ByUUID("missing")
	assert.False(t, ok)

	// The materialized map stays fresh across later appends.
	set.Add(&Coordinate{Text: "four", Order: 3, DocumentIndexFirst: 16, DocumentIndexLast: 19})
	c, ok = set.ByUUID("3")
	require.True(t, ok)
	assert.Equal(t, "four", c.Text)
}

func TestLines(t *testing.T) {
	set := NewSet()
	set.Add(&Coordinate{Text: "a", Order: 0, Spaces: 1})
	set.Add(&Coordinate{Text: "b", Order: 1, NewLine: true})
	set.Add(&Coordinate{Text: "c", Order: 2, NewLine: true})
	set.Add(&Coordinate{Text: "d", Order: 3})

	// Final partial line without a trailing new_line is still emitted.
	assert.Equal(t, [][]string{{"0", "1"}, {"2"}, {"3"}}, set.Lines())
}

func TestLinesInRange(t *testing.T) {
	set := NewSet()
	set.Add(&Coordinate{Text: "a", Order: 0, NewLine: true})
	set.Add(&Coordinate{Text: "b", Order: 1, NewLine: true})
	set.Add(&Coordinate{Text: "c", Order: 2, NewLine: true})

	assert.Equal(t, [][]string{{"1"}, {"2"}}, set.LinesInRange(2, 3))
	assert.Equal(t, [][]string{{"0"}, {"1"}, {"2"}}, set.LinesInRange(0, 99))
	assert.Empty(t, set.LinesInRange(4, 5))
}

func TestJoinText(t *testing.T) {
	coords := []*Coordinate{
		{Text: "para", Hyphen: true},
		{Text: "chute", Spaces: 1},
		{Text: "landing", NewLine: true},
		{Text: "zone"},
	}

	assert.Equal(t, "para-chute landing\nzone", JoinText(coords, "\n"))
	assert.Equal(t, "para-chute landing zone", JoinText(coords, " "))
	assert.Equal(t, "", JoinText(nil, "\n"))
}

func TestText(t *testing.T) {
	set := NewSet()
	set.Add(&Coordinate{Text: "first", Order: 0, NewLine: true})
	set.Add(&Coordinate{Text: "second", Order: 1, Spaces: 2})
	set.Add(&Coordinate{Text: "line", Order: 2})

	assert.Equal(t, "first\nsecond  line", set.Text())
}

func TestUpdateFromPageRanges(t *testing.T) {
	set := NewSet()
	set.Add(&Coordinate{Text: "a", Order: 0, Page: 1, PageIndexFirst: 0, PageIndexLast: 0})
	set.Add(&Coordinate{Text: "b", Order: 1, Page: 2, PageIndexFirst: 0, PageIndexLast: 0})
	set.Add(&Coordinate{Text: "c", Order: 2, Page: 2, PageIndexFirst: 2, PageIndexLast: 2})

	set.UpdateFromPageRanges([]PageRange{
		{Page: 1, Start: 0, End: 2},
		{Page: 2, Start: 2, End: 6},
	})

	assert.Equal(t, 0, set.Coordinates[0].DocumentIndexFirst)
	assert.Equal(t, 2, set.Coordinates[1].DocumentIndexFirst)
	assert.Equal(t, 4, set.Coordinates[2].DocumentIndexFirst)

	// The range-query index reflects the rewrite.
	got := set.FindCoords(2, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)
}
