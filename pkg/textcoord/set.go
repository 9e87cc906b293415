package textcoord

import (
	"sort"
	"strings"
)

// Set is an append-only, document-ordered collection of coordinates.
// The coordinate slice is the sole source of truth; the uuid map and
// the parallel offset arrays are derived caches maintained alongside
// it.
type Set struct {
	Coordinates []*Coordinate

	byUUID map[string]*Coordinate

	// Parallel arrays over Coordinates used by FindCoords. uint32 keeps
	// them compact for documents with hundreds of thousands of tokens.
	firsts []uint32
	lasts  []uint32

	// Line groupings loaded from storage when the coordinates blob was
	// not requested. Lines falls back to these.
	loadedLines [][]string
}

// NewSet creates an empty coordinate set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a coordinate in document order. The uuid map is only
// updated when it has already been materialized, so Add never forces
// the map into existence.
func (s *Set) Add(c *Coordinate) {
	s.Coordinates = append(s.Coordinates, c)
	s.firsts = append(s.firsts, uint32(c.DocumentIndexFirst))
	s.lasts = append(s.lasts, uint32(c.DocumentIndexLast))
	if s.byUUID != nil {
		s.byUUID[c.UUID()] = c
	}
}

// ByUUID returns the coordinate with the given uuid. The uuid map is
// built on first use since it roughly doubles the set's memory.
func (s *Set) ByUUID(uuid string) (*Coordinate, bool) {
	if s.byUUID == nil {
		s.byUUID = make(map[string]*Coordinate, len(s.Coordinates))
		for _, c := range s.Coordinates {
			s.byUUID[c.UUID()] = c
		}
	}
	c, ok := s.byUUID[uuid]
	return c, ok
}

// FindCoords returns the ordered coordinates whose spans overlap the
// half-open document character range [start, stop).
//
// The lower bound is the first coordinate starting at or after start,
// stepped back one position when the predecessor still extends past
// start. The upper bound is the first coordinate whose inclusive last
// offset reaches past stop-1, so coordinates extending beyond the query
// are excluded.
func (s *Set) FindCoords(start, stop int) []*Coordinate {
	if len(s.Coordinates) == 0 || stop <= start {
		return nil
	}
	if start < 0 {
		start = 0
	}
	lo := sort.Search(len(s.firsts), func(i int) bool {
		return s.firsts[i] >= uint32(start)
	})
	if lo > 0 && s.lasts[lo-1] >= uint32(start) {
		lo--
	}
	hi := sort.Search(len(s.lasts), func(i int) bool {
		return s.lasts[i] > uint32(stop-1)
	})
	if lo >= hi {
		return nil
	}
	return s.Coordinates[lo:hi]
}

// Lines groups coordinate uuids into lines, closing a line at every
// coordinate flagged new_line and emitting a trailing partial line.
// When the set was loaded from a lines blob without coordinates, the
// loaded groupings are returned as-is.
func (s *Set) Lines() [][]string {
	if len(s.Coordinates) == 0 {
		return s.loadedLines
	}
	var lines [][]string
	var line []string
	for _, c := range s.Coordinates {
		line = append(line, c.UUID())
		if c.NewLine {
			lines = append(lines, line)
			line = nil
		}
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

// LinesInRange returns the line groupings for the 1-based inclusive
// line-number interval [first, last], clamped to the available lines.
func (s *Set) LinesInRange(first, last int) [][]string {
	lines := s.Lines()
	if first < 1 {
		first = 1
	}
	if last > len(lines) {
		last = len(lines)
	}
	if first > last {
		return nil
	}
	return lines[first-1 : last]
}

// PageRange is one page's character interval in document space, as
// produced by a page splitter.
type PageRange struct {
	Page  int
	Start int
	End   int
}

// UpdateFromPageRanges rewrites every coordinate's document offsets as
// its page offsets shifted by the page's document-space start. This is
// the seam between per-page OCR output and the document-global
// coordinate space; it must run exactly once per freshly ingested
// document, before any cross-page range query.
func (s *Set) UpdateFromPageRanges(ranges []PageRange) {
	starts := make(map[int]int, len(ranges))
	for _, r := range ranges {
		starts[r.Page] = r.Start
	}
	for i, c := range s.Coordinates {
		off, ok := starts[c.Page]
		if !ok {
			continue
		}
		c.DocumentIndexFirst = c.PageIndexFirst + off
		c.DocumentIndexLast = c.PageIndexLast + off
		s.firsts[i] = uint32(c.DocumentIndexFirst)
		s.lasts[i] = uint32(c.DocumentIndexLast)
	}
}

// JoinText reassembles the text covered by an ordered run of
// coordinates. Hyphenated coordinates join with "-"; otherwise the
// coordinate's space count is inserted and a line break is rendered as
// the given newline string. No separator follows the final coordinate.
func JoinText(coords []*Coordinate, newline string) string {
	var b strings.Builder
	for i, c := range coords {
		b.WriteString(c.Text)
		if i == len(coords)-1 {
			break
		}
		if c.Hyphen {
			b.WriteString("-")
			continue
		}
		if c.Spaces > 0 {
			b.WriteString(strings.Repeat(" ", c.Spaces))
		}
		if c.NewLine {
			b.WriteString(newline)
		}
	}
	return b.String()
}

// Text reconstructs the full document text from the coordinate
// sequence.
func (s *Set) Text() string {
	return JoinText(s.Coordinates, "\n")
}
