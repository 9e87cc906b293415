package hocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" lang="en">
 <head>
  <title>Test Document</title>
  <meta name="ocr-system" content="tesseract"/>
  <meta name="ocr-number-of-pages" content="1"/>
 </head>
 <body>
  <div class="ocr_page" id="page_1" title="bbox 0 0 1000 1400; image &quot;scan.png&quot;; ppageno 1">
   <div class="ocr_carea" id="carea_1" title="bbox 10 10 990 700">
    <p class="ocr_par" id="par_1" title="bbox 10 10 990 120">
     <span class="ocr_line" id="line_1" title="bbox 10 10 400 40; baseline 0 -3">
      <span class="ocrx_word" id="word_1" title="bbox 10 10 110 40; x_wconf 96">chest</span>
      <span class="ocrx_word" id="word_2" title="bbox 120 10 200 40; x_wconf 91">pain</span>
     </span>
    </p>
   </div>
   <span class="ocr_line" id="line_2" title="bbox 10 50 300 80">
    <span class="ocrx_word" id="word_3" title="bbox 10 50 150 80; x_wconf 88">to-</span>
   </span>
   <span class="ocr_line" id="line_3" title="bbox 10 90 300 120">
    <span class="ocrx_word" id="word_4" title="bbox 10 90 120 120; x_wconf 90">day</span>
   </span>
  </div>
 </body>
</html>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	assert.Equal(t, "Test Document", doc.Title)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "tesseract", doc.Metadata["ocr-system"])

	require.Len(t, doc.Pages, 1)
	page := doc.Pages[0]
	assert.Equal(t, "page_1", page.ID)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, NewBoundingBox(0, 0, 1000, 1400), page.BBox)

	// Lines nested under areas and paragraphs flatten to the page.
	require.Len(t, page.Lines, 3)
	assert.Equal(t, "line_1", page.Lines[0].ID)
	assert.Equal(t, "0 -3", page.Lines[0].Baseline)

	require.Len(t, page.Lines[0].Words, 2)
	word := page.Lines[0].Words[0]
	assert.Equal(t, "chest", word.Text)
	assert.Equal(t, NewBoundingBox(10, 10, 110, 40), word.BBox)
	assert.Equal(t, float64(96), word.Confidence)
}

func TestParseNoPages(t *testing.T) {
	_, err := Parse([]byte("<html><body><p>plain html</p></body></html>"))
	assert.Error(t, err)
}

func TestParseTitle(t *testing.T) {
	props := ParseTitle("bbox 100 200 300 400; x_wconf 95")
	assert.Equal(t, []string{"100", "200", "300", "400"}, props["bbox"])
	assert.Equal(t, []string{"95"}, props["x_wconf"])

	bbox := ParseBoundingBoxFromTitle("bbox 100 200 300 400; x_wconf 95")
	require.NotNil(t, bbox)
	assert.Equal(t, NewBoundingBox(100, 200, 300, 400), *bbox)

	assert.Nil(t, ParseBoundingBoxFromTitle("x_wconf 95"))
}

func TestGenerateRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	html, err := Generate(&doc)
	require.NoError(t, err)
	assert.Contains(t, html, `class="ocr_page"`)
	assert.Contains(t, html, `>chest</span>`)

	reparsed, err := Parse([]byte(html))
	require.NoError(t, err)
	require.Len(t, reparsed.Pages, 1)
	require.Len(t, reparsed.Pages[0].Lines, 3)
	assert.Equal(t, "chest", reparsed.Pages[0].Lines[0].Words[0].Text)
}

func TestExtractText(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	text := ExtractText(&doc)
	assert.True(t, strings.HasPrefix(text, "chest pain\n"))
	assert.Contains(t, text, "to-\nday\n")
}
