// Package annotation models labeled text spans over clinical documents
// and their file formats.
//
// Two tab-delimited line dialects share the .ann file extension: a
// legacy three-column form compatible with the brat annotation tool,
// including its discontinuous-span variant, and an extended
// seven-column form that additionally carries the category label,
// text-coordinate back-references, and source line numbers. Parsing
// auto-detects the dialect per line. A Set collects annotations keyed
// by uuid with construction from files, lists, and model output, plus
// dedup and a cached storage round trip.
package annotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Span is a half-open character interval [Start, End) in document
// space. It serializes as a two-element JSON array.
type Span struct {
	Start int
	End   int
}

// MarshalJSON emits the span as [start, end].
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON fills the span from [start, end].
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Start = pair[0]
	s.End = pair[1]
	return nil
}

// Annotation is one labeled span: a label, a character range, and the
// literal annotated text, optionally with a category, back-references
// to text-coordinate uuids, and the source line interval. The stored
// text is a consistency cross-check against Range; downstream
// consumers re-slice the document from Range rather than trust it.
type Annotation struct {
	UUID          string
	Label         string
	CategoryLabel string
	Range         Span
	Text          string
	CoordUUIDs    []string
	LineStart     int
	LineStop      int

	// Link names the base annotation this one is a fragment of, for
	// fragments decoded from a discontinuous legacy line.
	Link string
}

// NewUUID returns a fresh dash-stripped hex annotation id.
func NewUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ToFileLine serializes the annotation as one .ann line, newline
// included. The extended form is used when the category, coordinate
// back-references, and both line numbers are all present; anything less
// falls back to the legacy form. A missing uuid is synthesized for the
// line but not stored back.
func (a *Annotation) ToFileLine() string {
	id := a.UUID
	if id == "" {
		id = NewUUID()
	}
	if a.CategoryLabel != "" && len(a.CoordUUIDs) > 0 && a.LineStart != 0 && a.LineStop != 0 {
		return fmt.Sprintf("%s\t%s\t%d %d\t%s\t%s\t%s\t%d %d\n",
			id, a.Label, a.Range.Start, a.Range.End, a.Text,
			a.CategoryLabel, strings.Join(a.CoordUUIDs, ";"),
			a.LineStart, a.LineStop)
	}
	return fmt.Sprintf("%s\t%s %d %d\t%s\n", id, a.Label, a.Range.Start, a.Range.End, a.Text)
}

// FromFileLine parses one .ann line, dispatching on column count:
// seven tab fields is the extended dialect, anything else the legacy
// dialect. A slice is returned because one legacy line can decode to
// several fragment annotations, and meta or sentinel lines decode to
// none. Malformed lines are logged and skipped rather than failing the
// file.
func FromFileLine(line string, logger *slog.Logger) []*Annotation {
	if logger == nil {
		logger = slog.Default()
	}
	line = strings.TrimSuffix(line, "\n")
	if line == "" {
		return nil
	}
	fields := strings.Split(line, "\t")
	if len(fields) == 7 {
		return parseExtendedLine(fields, logger)
	}
	return parseLegacyLine(fields, logger)
}

// parseExtendedLine decodes the seven-column dialect. A range field of
// the literal "None" marks a sentinel no-op line.
func parseExtendedLine(fields []string, logger *slog.Logger) []*Annotation {
	if strings.HasPrefix(fields[2], "None") {
		return nil
	}
	start, end, ok := parseSpanPair(fields[2])
	if !ok {
		logger.Warn("skipping annotation line with unparseable range", "range", fields[2])
		return nil
	}
	a := &Annotation{
		UUID:          fields[0],
		Label:         fields[1],
		CategoryLabel: fields[4],
		Range:         Span{Start: start, End: end},
		Text:          fields[3],
	}
	if fields[5] != "" {
		a.CoordUUIDs = strings.Split(fields[5], ";")
	}
	if first, last, ok := parseSpanPair(fields[6]); ok {
		a.LineStart = first
		a.LineStop = last
	}
	return []*Annotation{a}
}

// parseLegacyLine decodes the brat dialect: uuid, "label start end",
// text. A semicolon in the coordinate field marks one logical
// annotation split into fragments; fragment texts are sliced
// positionally from the concatenated text field using the cumulative
// fragment lengths, each fragment separated by exactly one joining
// character. Fragment lengths are not validated against the text, to
// stay bit-compatible with existing stored files.
func parseLegacyLine(fields []string, logger *slog.Logger) []*Annotation {
	if len(fields) < 2 {
		logger.Warn("skipping malformed annotation line", "fields", len(fields))
		return nil
	}
	id := fields[0]
	text := ""
	if len(fields) > 2 {
		text = strings.Join(fields[2:], "\t")
	}
	spanField := fields[1]

	if !strings.Contains(spanField, ";") {
		tokens := strings.Split(spanField, " ")
		if len(tokens) != 3 {
			if tokens[0] == "AnnotatorNotes" {
				return nil
			}
			logger.Warn("skipping annotation line with unexpected span field", "field", spanField)
			return nil
		}
		start, err1 := strconv.Atoi(tokens[1])
		end, err2 := strconv.Atoi(tokens[2])
		if err1 != nil || err2 != nil {
			logger.Warn("skipping annotation line with non-numeric range", "field", spanField)
			return nil
		}
		category, _ := CategoryForLabel(tokens[0])
		return []*Annotation{{
			UUID:          id,
			Label:         tokens[0],
			CategoryLabel: category,
			Range:         Span{Start: start, End: end},
			Text:          text,
		}}
	}

	// Discontinuous variant: "label start1 end1;start2 end2;...".
	label, rest, found := strings.Cut(spanField, " ")
	if !found {
		logger.Warn("skipping annotation line with unexpected span field", "field", spanField)
		return nil
	}
	category, _ := CategoryForLabel(label)
	var out []*Annotation
	cursor := 0
	for i, pair := range strings.Split(rest, ";") {
		start, end, ok := parseSpanPair(strings.TrimSpace(pair))
		if !ok {
			logger.Warn("skipping unparseable span fragment", "fragment", pair)
			continue
		}
		fragLen := end - start
		first := cursor
		last := cursor + fragLen
		if first > len(text) {
			first = len(text)
		}
		if last > len(text) {
			last = len(text)
		}
		a := &Annotation{
			UUID:          id,
			Label:         label,
			CategoryLabel: category,
			Range:         Span{Start: start, End: end},
			Text:          text[first:last],
		}
		if i > 0 {
			a.UUID = fmt.Sprintf("%s_%d", id, i)
			a.Link = id
		}
		out = append(out, a)
		cursor += fragLen + 1
	}
	return out
}

// parseSpanPair parses two space-separated integers.
func parseSpanPair(field string) (int, int, bool) {
	tokens := strings.Split(field, " ")
	if len(tokens) != 2 {
		return 0, 0, false
	}
	first, err1 := strconv.Atoi(tokens[0])
	second, err2 := strconv.Atoi(tokens[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return first, second, true
}
