package hocr

import (
	"fmt"

	"github.com/gardar/annalign/pkg/textcoord"
)

// CoordinatesFromHOCR converts a parsed hOCR document into a text
// coordinate set, one coordinate per word.
//
// hOCR carries no character offsets, so they are synthesized from word
// order: each word advances the running offset by its rune length plus
// one joining character, matching the document text that ExtractText
// produces. Page-local offsets restart on every page. A word ending in
// "-" at the end of a line becomes a hyphen hint with the hyphen
// stripped; other words get a single space, and line-final words are
// flagged new_line.
func CoordinatesFromHOCR(doc *HOCR) *textcoord.Set {
	set := textcoord.NewSet()
	if doc == nil {
		return set
	}

	order := 0
	lineCount := 0
	docPos := 0
	for pi, page := range doc.Pages {
		pageNum := page.PageNumber
		if pageNum == 0 {
			pageNum = pi + 1
		}
		pagePos := 0
		for _, line := range page.Lines {
			lineCount++
			for wi, word := range line.Words {
				text := word.Text
				if text == "" {
					continue
				}
				lastInLine := wi == len(line.Words)-1

				c := &textcoord.Coordinate{
					Text:    text,
					Order:   order,
					Page:    pageNum,
					Line:    lineCount,
					NewLine: lastInLine,
				}
				if lastInLine && len(text) > 1 && text[len(text)-1] == '-' {
					c.Text = text[:len(text)-1]
					c.Hyphen = true
					c.NewLine = false
				} else if !lastInLine {
					c.Spaces = 1
				}

				runeLen := len([]rune(c.Text))
				c.DocumentIndexFirst = docPos
				c.DocumentIndexLast = docPos + runeLen - 1
				c.PageIndexFirst = pagePos
				c.PageIndexLast = pagePos + runeLen - 1

				if word.BBox != (BoundingBox{}) {
					left := int(word.BBox.X1)
					top := int(word.BBox.Y1)
					right := int(word.BBox.X2)
					bottom := int(word.BBox.Y2)
					c.Left, c.Top, c.Right, c.Bottom = &left, &top, &right, &bottom
				}

				set.Add(c)
				order++
				docPos += runeLen + 1
				pagePos += runeLen + 1
			}
		}
	}
	return set
}

// FromCoordinates rebuilds an hOCR document from a coordinate set, for
// review tooling that wants to inspect coordinates in a browser. Line
// and page boxes are the unions of their word boxes.
func FromCoordinates(set *textcoord.Set) *HOCR {
	doc := &HOCR{
		Title:    "Text Coordinates",
		Metadata: map[string]string{"ocr-system": "annalign"},
	}
	if set == nil {
		return doc
	}

	var page *Page
	var line *Line
	currentPage := 0
	currentLine := 0

	flushLine := func() {
		if line != nil && len(line.Words) > 0 {
			for _, w := range line.Words {
				line.BBox = unionBox(line.BBox, w.BBox)
			}
			page.Lines = append(page.Lines, *line)
		}
		line = nil
	}
	flushPage := func() {
		flushLine()
		if page != nil {
			for _, l := range page.Lines {
				page.BBox = unionBox(page.BBox, l.BBox)
			}
			doc.Pages = append(doc.Pages, *page)
		}
		page = nil
	}

	for _, c := range set.Coordinates {
		if page == nil || c.Page != currentPage {
			flushPage()
			currentPage = c.Page
			page = &Page{
				ID:         fmt.Sprintf("page_%d", c.Page),
				PageNumber: c.Page,
				Metadata:   make(map[string]string),
			}
			currentLine = 0
		}
		if line == nil || c.Line != currentLine {
			flushLine()
			currentLine = c.Line
			line = &Line{
				ID:       fmt.Sprintf("line_%d_%d", c.Page, c.Line),
				Metadata: make(map[string]string),
			}
		}

		text := c.Text
		if c.Hyphen {
			text += "-"
		}
		word := Word{
			ID:       fmt.Sprintf("word_%d_%s", c.Page, c.UUID()),
			Text:     text,
			Metadata: make(map[string]string),
		}
		if c.Left != nil && c.Top != nil && c.Right != nil && c.Bottom != nil {
			word.BBox = NewBoundingBox(float64(*c.Left), float64(*c.Top), float64(*c.Right), float64(*c.Bottom))
		}
		line.Words = append(line.Words, word)
	}
	flushPage()

	doc.Metadata["ocr-number-of-pages"] = fmt.Sprintf("%d", len(doc.Pages))
	return doc
}

// unionBox grows a box to cover another, treating the zero box as
// empty.
func unionBox(a, b BoundingBox) BoundingBox {
	if a == (BoundingBox{}) {
		return b
	}
	if b == (BoundingBox{}) {
		return a
	}
	return BoundingBox{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}
