package annotation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gardar/annalign/pkg/blobstore"
	"github.com/gardar/annalign/pkg/textcoord"
)

// VersionInfoKey is the reserved top-level key in biomed model output
// that carries model metadata rather than an annotation category.
const VersionInfoKey = "VersionInfo"

// cacheTag namespaces annotation-set cache keys within the shared
// process cache.
const cacheTag = "annotation.Set"

// Set is a uuid-keyed annotation collection. Insertion enforces uuid
// uniqueness by silently regenerating the incoming entry's uuid on
// collision, so callers must not rely on supplied uuids surviving a
// merge.
type Set struct {
	Directory map[string]*Annotation

	logger *slog.Logger
}

// NewSet creates an empty annotation set. A nil logger means
// slog.Default().
func NewSet(logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{Directory: make(map[string]*Annotation), logger: logger}
}

// Add inserts the annotation, regenerating its uuid until it is unique
// within the set.
func (s *Set) Add(a *Annotation) {
	if a.UUID == "" {
		a.UUID = NewUUID()
	}
	for {
		if _, exists := s.Directory[a.UUID]; !exists {
			break
		}
		a.UUID = NewUUID()
	}
	s.Directory[a.UUID] = a
}

// Entries returns the annotations sorted ascending by range, then uuid
// for a stable order among identical ranges.
func (s *Set) Entries() []*Annotation {
	entries := make([]*Annotation, 0, len(s.Directory))
	for _, a := range s.Directory {
		entries = append(entries, a)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Range.Start != entries[j].Range.Start {
			return entries[i].Range.Start < entries[j].Range.Start
		}
		if entries[i].Range.End != entries[j].Range.End {
			return entries[i].Range.End < entries[j].Range.End
		}
		return entries[i].UUID < entries[j].UUID
	})
	return entries
}

// FromFileContent builds a set from a whole .ann file's text, one
// annotation line per newline-delimited entry.
func FromFileContent(content string, logger *slog.Logger) *Set {
	set := NewSet(logger)
	for _, line := range strings.Split(content, "\n") {
		for _, a := range FromFileLine(line, set.logger) {
			set.Add(a)
		}
	}
	return set
}

// FromList builds a set from existing annotations, applying the same
// collision policy as Add.
func FromList(list []*Annotation, logger *slog.Logger) *Set {
	set := NewSet(logger)
	for _, a := range list {
		set.Add(a)
	}
	return set
}

// biomedItem is one annotation in normalized biomed model output.
type biomedItem struct {
	Text  string `json:"text"`
	Range Span   `json:"range"`
	Label string `json:"label"`
}

// FromBiomedOutput builds a set from normalized biomed model output of
// the shape {category: [{text, range, label}, ...]}. The category label
// comes from the outer key, and the reserved version-info key is
// skipped.
func FromBiomedOutput(data []byte, logger *slog.Logger) (*Set, error) {
	var categories map[string][]biomedItem
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode biomed output: %w", err)
	}
	set := NewSet(logger)
	for category, items := range categories {
		if category == VersionInfoKey {
			continue
		}
		for _, item := range items {
			set.Add(&Annotation{
				Label:         item.Label,
				CategoryLabel: category,
				Range:         item.Range,
				Text:          item.Text,
			})
		}
	}
	return set, nil
}

// matches reports triple-equality on label, range, and text.
func matches(a *Annotation, label string, r Span, text string) bool {
	return a.Label == label && a.Range == r && a.Text == text
}

// RemoveDuplicateEntries drops annotations whose label, range, and text
// all equal an earlier entry's. Pairwise comparison is fine at the
// hundreds-of-spans scale of a single document. Idempotent.
func (s *Set) RemoveDuplicateEntries() {
	entries := s.Entries()
	for i, a := range entries {
		for _, b := range entries[i+1:] {
			if b.UUID == a.UUID {
				continue
			}
			if _, present := s.Directory[b.UUID]; !present {
				continue
			}
			if matches(b, a.Label, a.Range, a.Text) {
				delete(s.Directory, b.UUID)
			}
		}
	}
}

// HasMatchingAnnotation reports whether any entry has the given label,
// range, and text.
func (s *Set) HasMatchingAnnotation(label string, r Span, text string) bool {
	for _, a := range s.Directory {
		if matches(a, label, r, text) {
			return true
		}
	}
	return false
}

// EntriesByLabel returns live references to every entry with the given
// label. Callers may mutate the returned annotations in place.
func (s *Set) EntriesByLabel(label string) []*Annotation {
	var out []*Annotation
	for _, a := range s.Entries() {
		if a.Label == label {
			out = append(out, a)
		}
	}
	return out
}

// ToFileContent serializes every entry, sorted ascending by range so
// file output is stable and reviewable regardless of insertion order.
func (s *Set) ToFileContent() string {
	var b strings.Builder
	for _, a := range s.Entries() {
		b.WriteString(a.ToFileLine())
	}
	return b.String()
}

// AddAnnotation builds and inserts an annotation from an ordered run of
// text-coordinate uuids: the text is reassembled from the coordinates
// with single-space line joins, and the range spans the minimum
// document start to the maximum document end. Duplicate-document
// annotations carry no payload text.
func (s *Set) AddAnnotation(coordUUIDs []string, label, categoryLabel string, coords *textcoord.Set) (*Annotation, error) {
	if len(coordUUIDs) == 0 {
		return nil, fmt.Errorf("no coordinate uuids given")
	}
	run := make([]*textcoord.Coordinate, 0, len(coordUUIDs))
	for _, id := range coordUUIDs {
		c, ok := coords.ByUUID(id)
		if !ok {
			return nil, fmt.Errorf("coordinate %s not in set", id)
		}
		run = append(run, c)
	}

	first := run[0].DocumentIndexFirst
	last := run[0].DocumentIndexLast
	lineStart := run[0].Line
	lineStop := run[0].Line
	for _, c := range run[1:] {
		first = min(first, c.DocumentIndexFirst)
		last = max(last, c.DocumentIndexLast)
		lineStart = min(lineStart, c.Line)
		lineStop = max(lineStop, c.Line)
	}

	text := textcoord.JoinText(run, " ")
	if categoryLabel == CategoryDuplicateDocument {
		text = ""
	}

	a := &Annotation{
		Label:         label,
		CategoryLabel: categoryLabel,
		Range:         Span{Start: first, End: last + 1},
		Text:          text,
		CoordUUIDs:    coordUUIDs,
		LineStart:     lineStart,
		LineStop:      lineStop,
	}
	s.Add(a)
	return a, nil
}

// ToStorage persists the set as a .ann blob and refreshes the cache
// entry so a write-then-read of the same key observes this set without
// a storage round trip.
func (s *Set) ToStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, key string) error {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	if err := store.WriteBytes(ctx, []byte(s.ToFileContent()), key); err != nil {
		return err
	}
	cache.Set(blobstore.Key(cacheTag, key), s)
	return nil
}

// FromStorage loads a set from its .ann blob, consulting the cache
// first.
func FromStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, key string, logger *slog.Logger) (*Set, error) {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	cacheKey := blobstore.Key(cacheTag, key)
	if v, ok := cache.Get(cacheKey); ok {
		if set, ok := v.(*Set); ok {
			return set, nil
		}
	}
	data, err := store.GetObjectContent(ctx, key)
	if err != nil {
		return nil, err
	}
	set := FromFileContent(string(data), logger)
	cache.Set(cacheKey, set)
	return set, nil
}

// DeleteStorage removes the set's blob and evicts the cache entry.
func DeleteStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, key string) error {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	if err := store.Delete(ctx, key); err != nil {
		return err
	}
	cache.Invalidate(blobstore.Key(cacheTag, key))
	return nil
}
