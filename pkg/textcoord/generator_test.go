package textcoord

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGeneratorLineGrouping(t *testing.T) {
	coords := []*Coordinate{
		{Text: "a", Order: 0},
		{Text: "b", Order: 1, NewLine: true},
		{Text: "c", Order: 2},
	}
	gen := NewSetGenerator(slices.Values(coords))

	_, err := gen.Lines()
	assert.Error(t, err, "lines must not be available before the stream is drained")

	var seen []string
	for c := range gen.Coordinates() {
		seen = append(seen, c.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	lines, err := gen.Lines()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "1"}, {"2"}}, lines)
}

func TestSetGeneratorSingleUse(t *testing.T) {
	gen := NewSetGenerator(slices.Values([]*Coordinate{{Text: "a", Order: 0}}))
	for range gen.Coordinates() {
	}
	assert.Panics(t, func() {
		for range gen.Coordinates() {
		}
	})
}
