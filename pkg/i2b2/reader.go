// Package i2b2 converts the I2B2 shared-task annotation format into
// document character-offset annotations.
//
// I2B2 addresses text by 1-based line numbers and 0-based
// whitespace-token indices, and its coordinates are frequently
// inconsistent with the actual document: off-by-one token indices on
// lines with leading spaces, end tokens that spill onto the next line,
// and restated annotation text that differs from the document by case,
// pluralization, or typos. The reader reconciles each entry against the
// live document text, trusting the character range over the restated
// text, and makes maximal forward progress over noisy batches by
// logging and skipping per-entry failures.
package i2b2

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gardar/annalign/pkg/annotation"
)

var (
	tokenPattern  = regexp.MustCompile(`\S+`)
	quotedPattern = regexp.MustCompile(`"([^"]*)"`)
	pairPattern   = regexp.MustCompile(`(\d+):(\d+)\s+(\d+):(\d+)`)
)

// cleanCutset is trimmed from both ends of compared texts.
const cleanCutset = " .,;:!?\"'()[]"

// TokenRange is one whitespace token with its half-open character
// interval in document-global coordinates.
type TokenRange struct {
	Token string
	Range annotation.Span
}

// CoordEntry is one parsed I2B2 coordinate pair with its claimed text.
type CoordEntry struct {
	Text       string
	StartLine  int
	StartToken int
	EndLine    int
	EndToken   int
}

// UnmatchedDiscontinuousText reports a discontinuous annotation whose
// ellipsis-delimited text segments do not line up 1:1 with its
// coordinate pairs. Callers treat it as a recoverable per-line failure.
type UnmatchedDiscontinuousText struct {
	Segments int
	Pairs    int
}

func (e *UnmatchedDiscontinuousText) Error() string {
	return fmt.Sprintf("discontinuous annotation has %d text segments but %d coordinate pairs", e.Segments, e.Pairs)
}

// Reader converts I2B2 annotation batches. A nil logger means
// slog.Default().
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// TypeFilter restricts conversion to entries whose separate attribute
// group Marker carries the quoted value Target, e.g. only
// "problem"-typed entries.
type TypeFilter struct {
	Marker string
	Target string
}

// DocTokenRanges tokenizes the document into per-line whitespace tokens
// with document-global character intervals. Each line contributes its
// length plus one for the implicit newline to the running offset. The
// result is indexed [line][token], matching I2B2's coordinate scheme
// after its 1-based line numbers are shifted down.
func DocTokenRanges(rawText string) [][]TokenRange {
	lines := strings.Split(rawText, "\n")
	out := make([][]TokenRange, len(lines))
	offset := 0
	for i, line := range lines {
		for _, loc := range tokenPattern.FindAllStringIndex(line, -1) {
			out[i] = append(out[i], TokenRange{
				Token: line[loc[0]:loc[1]],
				Range: annotation.Span{Start: offset + loc[0], End: offset + loc[1]},
			})
		}
		offset += len(line) + 1
	}
	return out
}

// ExtractTextCoords parses one annotation value of the shape
// `"text" line:token line:token[, ...]`. Multiple comma-separated
// coordinate pairs mark a discontinuous annotation whose quoted text
// carries "..."-delimited segments, one per pair. An end line before
// the start line is a known source quirk and is forced equal to the
// start line. A value with no quoted text at all indicates a
// structurally broken file and fails hard.
func ExtractTextCoords(value string) ([]CoordEntry, error) {
	quoted := quotedPattern.FindStringSubmatch(value)
	if quoted == nil {
		return nil, fmt.Errorf("no quoted text in annotation value %q", value)
	}
	pairs := pairPattern.FindAllStringSubmatch(value, -1)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no coordinate pairs in annotation value %q", value)
	}

	texts := []string{quoted[1]}
	if len(pairs) > 1 {
		texts = strings.Split(quoted[1], "...")
		if len(texts) != len(pairs) {
			return nil, &UnmatchedDiscontinuousText{Segments: len(texts), Pairs: len(pairs)}
		}
	}

	entries := make([]CoordEntry, 0, len(pairs))
	for i, pair := range pairs {
		startLine, _ := strconv.Atoi(pair[1])
		startToken, _ := strconv.Atoi(pair[2])
		endLine, _ := strconv.Atoi(pair[3])
		endToken, _ := strconv.Atoi(pair[4])
		if endLine < startLine {
			endLine = startLine
		}
		entries = append(entries, CoordEntry{
			Text:       strings.TrimSpace(texts[i]),
			StartLine:  startLine,
			StartToken: startToken,
			EndLine:    endLine,
			EndToken:   endToken,
		})
	}
	return entries, nil
}

// groupValue returns the value of the attribute group with the given
// key, along with how many groups carried that key.
func groupValue(groups []string, key string) (string, int) {
	value := ""
	count := 0
	for _, group := range groups {
		k, v, found := strings.Cut(strings.TrimSpace(group), "=")
		if !found || k != key {
			continue
		}
		count++
		value = v
	}
	return value, count
}

// cleanText lowercases and strips boundary punctuation for comparison.
func cleanText(s string) string {
	return strings.Trim(strings.ToLower(s), cleanCutset)
}

// LabelAnnotationSet converts a batch of I2B2 annotation lines into an
// annotation set. Each line is split on "||" into attribute groups and
// the group keyed by i2b2Label supplies the coordinates; entries land
// in the set under targetLabelName, which falls back to i2b2Label when
// empty. Per-entry inconsistencies are logged and skipped; only a
// structurally broken value (no quoted text) aborts the batch.
func (r *Reader) LabelAnnotationSet(annLines []string, docTokenRanges [][]TokenRange, i2b2Label, targetLabelName, rawText string, filter *TypeFilter) (*annotation.Set, error) {
	if targetLabelName == "" {
		targetLabelName = i2b2Label
	}
	set := annotation.NewSet(r.logger)
	rawLines := strings.Split(rawText, "\n")

	for _, line := range annLines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		groups := strings.Split(line, "||")

		value, count := groupValue(groups, i2b2Label)
		if count == 0 {
			r.logger.Warn("annotation line has no group for label", "label", i2b2Label, "line", line)
			continue
		}
		if count > 1 {
			r.logger.Warn("annotation line has ambiguous groups for label", "label", i2b2Label, "line", line)
			continue
		}
		if strings.HasPrefix(value, `"nm"`) {
			continue
		}

		if filter != nil {
			typeValue, typeCount := groupValue(groups, filter.Marker)
			if typeCount != 1 {
				r.logger.Warn("annotation line has no usable type group", "marker", filter.Marker, "line", line)
				continue
			}
			if m := quotedPattern.FindStringSubmatch(typeValue); m == nil || m[1] != filter.Target {
				continue
			}
		}

		entries, err := ExtractTextCoords(value)
		if err != nil {
			var unmatched *UnmatchedDiscontinuousText
			if errors.As(err, &unmatched) {
				r.logger.Warn("skipping discontinuous annotation", "error", err, "line", line)
				continue
			}
			return nil, err
		}

		for _, entry := range entries {
			r.addEntry(set, entry, docTokenRanges, rawLines, rawText, targetLabelName)
		}
	}
	return set, nil
}

// addEntry resolves one coordinate entry to a character range and
// inserts it, applying the leading-space and line-rollover corrections.
func (r *Reader) addEntry(set *annotation.Set, entry CoordEntry, docTokenRanges [][]TokenRange, rawLines []string, rawText, label string) {
	startLine := entry.StartLine
	startToken := entry.StartToken
	endLine := entry.EndLine
	endToken := entry.EndToken

	if startLine < 1 || startLine > len(docTokenRanges) {
		r.logger.Warn("annotation start line out of document", "line", startLine)
		return
	}

	// A line starting with a space makes I2B2's token numbering run one
	// ahead of the whitespace tokenizer's.
	if startLine-1 < len(rawLines) && strings.HasPrefix(rawLines[startLine-1], " ") {
		startToken--
		if endLine == startLine {
			endToken--
		}
	}

	startTokens := docTokenRanges[startLine-1]
	if startToken < 0 || startToken >= len(startTokens) {
		r.logger.Warn("annotation start token out of line", "line", startLine, "token", startToken)
		return
	}

	if endLine < 1 || endLine > len(docTokenRanges) {
		r.logger.Warn("annotation end line out of document", "line", endLine)
		return
	}
	endTokens := docTokenRanges[endLine-1]
	if endToken >= len(endTokens) {
		// The trailing tokens actually sit on the next line.
		endToken = endToken - len(endTokens) - 1
		endLine++
		if endLine > len(docTokenRanges) {
			r.logger.Warn("annotation end rolls past document", "line", endLine)
			return
		}
		endTokens = docTokenRanges[endLine-1]
	}
	if endToken < 0 || endToken >= len(endTokens) {
		r.logger.Warn("annotation end token out of line", "line", endLine, "token", endToken)
		return
	}

	span := annotation.Span{
		Start: startTokens[startToken].Range.Start,
		End:   endTokens[endToken].Range.End,
	}
	if span.Start >= span.End || span.End > len(rawText) {
		r.logger.Warn("annotation resolves to invalid range", "start", span.Start, "end", span.End)
		return
	}

	docText := rawText[span.Start:span.End]
	cleanedAnn := cleanText(entry.Text)
	cleanedDoc := cleanText(docText)

	// The range is ground truth; the restated text is advisory. On any
	// mismatch the document's text wins.
	text := entry.Text
	if cleanedAnn != cleanedDoc {
		plural := len(cleanedAnn) == len(cleanedDoc)+1 && strings.HasPrefix(cleanedAnn, cleanedDoc)
		if !plural {
			r.logger.Error("annotation text does not match document text",
				"annotation", cleanedAnn, "document", cleanedDoc,
				"similarity", ratio(cleanedAnn, cleanedDoc))
		}
		text = cleanedDoc
	}

	category, _ := annotation.CategoryForLabel(label)
	if set.HasMatchingAnnotation(label, span, text) {
		return
	}
	set.Add(&annotation.Annotation{
		Label:         label,
		CategoryLabel: category,
		Range:         span,
		Text:          text,
		LineStart:     startLine,
		LineStop:      endLine,
	})
}

// ParseLabelAnnotationText converts a whole I2B2 annotation file
// against its document text in one call.
func (r *Reader) ParseLabelAnnotationText(annContent, rawText, i2b2Label, targetLabelName string, filter *TypeFilter) (*annotation.Set, error) {
	return r.LabelAnnotationSet(strings.Split(annContent, "\n"), DocTokenRanges(rawText), i2b2Label, targetLabelName, rawText, filter)
}
