package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/annalign/pkg/textcoord"
)

// CoordinatesFromProto converts a Document AI response into a text
// coordinate set, one coordinate per token.
//
// Text anchors supply the document offsets directly; page-local offsets
// subtract the page layout's anchor start. Line numbers run
// document-wide, assigned by containment of the token's anchor in a
// line's anchor. Detected breaks become the layout hints: a plain space
// is one space, a wide space two, and a hyphen break sets the hyphen
// flag. The final token of each line is flagged new_line.
func CoordinatesFromProto(doc *documentaipb.Document) *textcoord.Set {
	set := textcoord.NewSet()
	if doc == nil {
		return set
	}

	order := 0
	lineCount := 0
	for _, page := range doc.Pages {
		pageNum := int(page.PageNumber)
		if pageNum == 0 {
			pageNum = 1
		}
		pageStart, _, _ := anchorRange(page.Layout)

		type lineSpan struct {
			start, end int
			number     int
		}
		var lines []lineSpan
		for _, l := range page.Lines {
			start, end, ok := anchorRange(l.Layout)
			if !ok {
				continue
			}
			lineCount++
			lines = append(lines, lineSpan{start: start, end: end, number: lineCount})
		}

		// First pass: resolve each token's span, text, and line number.
		type tokenInfo struct {
			token      *documentaipb.Document_Page_Token
			start, end int
			text       string
			line       int
		}
		var tokens []tokenInfo
		for _, token := range page.Tokens {
			start, end, ok := anchorRange(token.Layout)
			if !ok || end <= start {
				continue
			}
			text := trimBreak(runeSlice(doc.Text, start, end), token.DetectedBreak)
			if text == "" {
				continue
			}
			info := tokenInfo{token: token, start: start, end: end, text: text}
			for _, ls := range lines {
				if start >= ls.start && start < ls.end {
					info.line = ls.number
					break
				}
			}
			tokens = append(tokens, info)
		}

		// Second pass: emit coordinates, flagging line-final tokens.
		for i, info := range tokens {
			c := &textcoord.Coordinate{
				Text:               info.text,
				Order:              order,
				Page:               pageNum,
				Line:               info.line,
				DocumentIndexFirst: info.start,
				DocumentIndexLast:  info.start + len([]rune(info.text)) - 1,
				PageIndexFirst:     info.start - pageStart,
				PageIndexLast:      info.start + len([]rune(info.text)) - 1 - pageStart,
			}

			if br := info.token.DetectedBreak; br != nil {
				switch br.Type {
				case documentaipb.Document_Page_Token_DetectedBreak_SPACE:
					c.Spaces = 1
				case documentaipb.Document_Page_Token_DetectedBreak_WIDE_SPACE:
					c.Spaces = 2
				case documentaipb.Document_Page_Token_DetectedBreak_HYPHEN:
					c.Hyphen = true
				}
			}
			if i == len(tokens)-1 || tokens[i+1].line != info.line {
				c.NewLine = true
			}

			c.Left, c.Top, c.Right, c.Bottom = pixelBox(info.token.Layout, page.Dimension)
			set.Add(c)
			order++
		}
	}
	return set
}

// anchorRange returns the first text segment of a layout's anchor.
func anchorRange(layout *documentaipb.Document_Page_Layout) (int, int, bool) {
	if layout == nil || layout.TextAnchor == nil || len(layout.TextAnchor.TextSegments) == 0 {
		return 0, 0, false
	}
	seg := layout.TextAnchor.TextSegments[0]
	return int(seg.StartIndex), int(seg.EndIndex), true
}

// runeSlice extracts the anchor's rune range from the full text,
// clamped to the text bounds.
func runeSlice(fullText string, start, end int) string {
	runes := []rune(fullText)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start > end {
		start = end
	}
	return string(runes[start:end])
}

// trimBreak drops the trailing whitespace that Document AI leaves on
// tokens carrying a detected break. For hyphen breaks the literal
// hyphen comes off too, since the hyphen layout hint re-inserts it on
// reassembly.
func trimBreak(text string, br *documentaipb.Document_Page_Token_DetectedBreak) string {
	if br == nil || br.Type == documentaipb.Document_Page_Token_DetectedBreak_TYPE_UNSPECIFIED {
		return text
	}
	text = strings.TrimRight(text, " \n\r\t")
	if br.Type == documentaipb.Document_Page_Token_DetectedBreak_HYPHEN {
		text = strings.TrimSuffix(text, "-")
	}
	return text
}

// pixelBox scales a layout's normalized vertices to pixel coordinates.
func pixelBox(layout *documentaipb.Document_Page_Layout, dimension *documentaipb.Document_Page_Dimension) (left, top, right, bottom *int) {
	if layout == nil || layout.BoundingPoly == nil || dimension == nil || len(layout.BoundingPoly.NormalizedVertices) < 4 {
		return nil, nil, nil, nil
	}
	vertices := layout.BoundingPoly.NormalizedVertices
	l := int(vertices[0].X*dimension.Width + 0.5)
	t := int(vertices[0].Y*dimension.Height + 0.5)
	r := int(vertices[2].X*dimension.Width + 0.5)
	b := int(vertices[2].Y*dimension.Height + 0.5)
	return &l, &t, &r, &b
}
