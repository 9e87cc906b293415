package textcoord

import (
	"errors"
	"iter"
)

// SetGenerator adapts a one-pass coordinate stream for storage writes
// without holding the full collection in memory. It performs the same
// line-grouping pass as Set.Lines incrementally while coordinates flow
// through it.
//
// The generator is consumable exactly once, and Lines only produces
// correct data after the full stream has been drained.
type SetGenerator struct {
	src      iter.Seq[*Coordinate]
	started  bool
	complete bool
	lines    [][]string
	line     []string
}

// NewSetGenerator wraps a one-pass coordinate source.
func NewSetGenerator(src iter.Seq[*Coordinate]) *SetGenerator {
	return &SetGenerator{src: src}
}

// Coordinates returns the pass-through coordinate sequence,
// accumulating line groupings as a side channel. It panics when ranged
// over a second time, since the underlying source is not restartable.
func (g *SetGenerator) Coordinates() iter.Seq[*Coordinate] {
	return func(yield func(*Coordinate) bool) {
		if g.started {
			panic("textcoord: SetGenerator consumed twice")
		}
		g.started = true
		for c := range g.src {
			g.line = append(g.line, c.UUID())
			if c.NewLine {
				g.lines = append(g.lines, g.line)
				g.line = nil
			}
			if !yield(c) {
				return
			}
		}
		if len(g.line) > 0 {
			g.lines = append(g.lines, g.line)
			g.line = nil
		}
		g.complete = true
	}
}

// Lines returns the accumulated line groupings. It fails until the
// coordinate stream has been fully consumed, because a partial pass
// would silently truncate the grouping.
func (g *SetGenerator) Lines() ([][]string, error) {
	if !g.complete {
		return nil, errors.New("coordinate stream not fully consumed")
	}
	return g.lines, nil
}
