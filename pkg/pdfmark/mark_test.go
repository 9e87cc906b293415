package pdfmark

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/annalign/pkg/annotation"
	"github.com/gardar/annalign/pkg/textcoord"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func boxedCoord(text string, order, line, page, first int, left, top, right, bottom int) *textcoord.Coordinate {
	c := &textcoord.Coordinate{
		Text:               text,
		Order:              order,
		Line:               line,
		Page:               page,
		DocumentIndexFirst: first,
		DocumentIndexLast:  first + len(text) - 1,
		Spaces:             1,
	}
	c.Left, c.Top, c.Right, c.Bottom = &left, &top, &right, &bottom
	return c
}

func reviewFixture() (*textcoord.Set, *annotation.Set) {
	coords := textcoord.NewSet()
	coords.Add(boxedCoord("paroxysmal", 0, 1, 1, 0, 100, 100, 220, 130))
	coords.Add(boxedCoord("atrial", 1, 1, 1, 11, 230, 100, 300, 130))
	coords.Add(boxedCoord("fibrillation", 2, 2, 1, 18, 100, 140, 260, 170))

	anns := annotation.NewSet(nil)
	anns.Add(&annotation.Annotation{
		UUID:       annotation.NewUUID(),
		Label:      "diagnosis",
		Range:      annotation.Span{Start: 0, End: 30},
		Text:       "paroxysmal atrial fibrillation",
		CoordUUIDs: []string{"0", "1", "2"},
	})
	return coords, anns
}

func TestAssembleReview(t *testing.T) {
	coords, anns := reviewFixture()
	images := [][]byte{testPNG(t, 400, 300)}

	data, err := AssembleReview(images, coords, anns, DefaultMarkConfig())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "Annotations (Page 1)")
}

func TestAssembleReviewWithoutImage(t *testing.T) {
	coords, anns := reviewFixture()

	var warnings bytes.Buffer
	config := DefaultMarkConfig()
	config.Logger = &warnings
	config.Debug = true

	data, err := AssembleReview(nil, coords, anns, config)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, warnings.String(), "no image for page 1")
}

func TestAssembleReviewByRange(t *testing.T) {
	coords, anns := reviewFixture()
	// Drop the uuid back-references so resolution falls back to the
	// character range.
	for _, a := range anns.Entries() {
		a.CoordUUIDs = nil
	}

	data, err := AssembleReview([][]byte{testPNG(t, 400, 300)}, coords, anns, DefaultMarkConfig())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestAssembleReviewSkipsUnboxedAnnotation(t *testing.T) {
	coords := textcoord.NewSet()
	coords.Add(&textcoord.Coordinate{Text: "bare", Order: 0, Line: 1, Page: 1, DocumentIndexLast: 3})

	anns := annotation.NewSet(nil)
	anns.Add(&annotation.Annotation{
		UUID:       annotation.NewUUID(),
		Label:      "diagnosis",
		Range:      annotation.Span{Start: 0, End: 4},
		CoordUUIDs: []string{"0"},
	})

	var warnings bytes.Buffer
	config := DefaultMarkConfig()
	config.Logger = &warnings

	data, err := AssembleReview(nil, coords, anns, config)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, warnings.String(), "no bounding boxes")
}

func TestAssembleReviewErrors(t *testing.T) {
	coords, anns := reviewFixture()

	_, err := AssembleReview(nil, textcoord.NewSet(), anns, DefaultMarkConfig())
	assert.Error(t, err)

	_, err = AssembleReview(nil, nil, anns, DefaultMarkConfig())
	assert.Error(t, err)

	_, err = AssembleReview(nil, coords, nil, DefaultMarkConfig())
	assert.Error(t, err)

	_, err = AssembleReview([][]byte{[]byte("not an image")}, coords, anns, DefaultMarkConfig())
	assert.Error(t, err)
}
