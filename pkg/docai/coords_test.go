package docai

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchorLayout(start, end int) *documentaipb.Document_Page_Layout {
	return &documentaipb.Document_Page_Layout{
		TextAnchor: &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
				{StartIndex: int64(start), EndIndex: int64(end)},
			},
		},
	}
}

func tokenWithBreak(start, end int, breakType documentaipb.Document_Page_Token_DetectedBreak_Type) *documentaipb.Document_Page_Token {
	return &documentaipb.Document_Page_Token{
		Layout: anchorLayout(start, end),
		DetectedBreak: &documentaipb.Document_Page_Token_DetectedBreak{
			Type: breakType,
		},
	}
}

func TestCoordinatesFromProto(t *testing.T) {
	text := "chest pain\ntoday\n"
	doc := &documentaipb.Document{
		Text: text,
		Pages: []*documentaipb.Document_Page{
			{
				PageNumber: 1,
				Dimension:  &documentaipb.Document_Page_Dimension{Width: 1000, Height: 500},
				Layout:     anchorLayout(0, len(text)),
				Lines: []*documentaipb.Document_Page_Line{
					{Layout: anchorLayout(0, 11)},
					{Layout: anchorLayout(11, 17)},
				},
				Tokens: []*documentaipb.Document_Page_Token{
					tokenWithBreak(0, 6, documentaipb.Document_Page_Token_DetectedBreak_SPACE),
					tokenWithBreak(6, 11, documentaipb.Document_Page_Token_DetectedBreak_SPACE),
					tokenWithBreak(11, 17, documentaipb.Document_Page_Token_DetectedBreak_SPACE),
				},
			},
		},
	}
	doc.Pages[0].Tokens[0].Layout.BoundingPoly = &documentaipb.BoundingPoly{
		NormalizedVertices: []*documentaipb.NormalizedVertex{
			{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.1}, {X: 0.2, Y: 0.15}, {X: 0.1, Y: 0.15},
		},
	}

	set := CoordinatesFromProto(doc)
	require.Len(t, set.Coordinates, 3)

	chest := set.Coordinates[0]
	assert.Equal(t, "chest", chest.Text)
	assert.Equal(t, 0, chest.DocumentIndexFirst)
	assert.Equal(t, 4, chest.DocumentIndexLast)
	assert.Equal(t, 1, chest.Line)
	assert.Equal(t, 1, chest.Page)
	assert.Equal(t, 1, chest.Spaces)
	assert.False(t, chest.NewLine)
	require.NotNil(t, chest.Left)
	assert.Equal(t, 100, *chest.Left)
	assert.Equal(t, 50, *chest.Top)
	assert.Equal(t, 200, *chest.Right)
	assert.Equal(t, 75, *chest.Bottom)

	pain := set.Coordinates[1]
	assert.Equal(t, "pain", pain.Text)
	assert.Equal(t, 6, pain.DocumentIndexFirst)
	assert.Equal(t, 9, pain.DocumentIndexLast)
	assert.Equal(t, 1, pain.Line)
	assert.True(t, pain.NewLine, "line-final token closes the line")
	assert.Nil(t, pain.Left)

	today := set.Coordinates[2]
	assert.Equal(t, "today", today.Text)
	assert.Equal(t, 2, today.Line)
	assert.Equal(t, 11, today.DocumentIndexFirst)
	assert.True(t, today.NewLine, "page-final token closes the line")

	// Tokens land in the range index immediately.
	found := set.FindCoords(6, 10)
	require.Len(t, found, 1)
	assert.Equal(t, "pain", found[0].Text)
}

func TestCoordinatesFromProtoHyphenBreak(t *testing.T) {
	text := "para-\ngraph\n"
	doc := &documentaipb.Document{
		Text: text,
		Pages: []*documentaipb.Document_Page{
			{
				PageNumber: 1,
				Layout:     anchorLayout(0, len(text)),
				Lines: []*documentaipb.Document_Page_Line{
					{Layout: anchorLayout(0, 6)},
					{Layout: anchorLayout(6, 12)},
				},
				Tokens: []*documentaipb.Document_Page_Token{
					tokenWithBreak(0, 6, documentaipb.Document_Page_Token_DetectedBreak_HYPHEN),
					tokenWithBreak(6, 12, documentaipb.Document_Page_Token_DetectedBreak_SPACE),
				},
			},
		},
	}

	set := CoordinatesFromProto(doc)
	require.Len(t, set.Coordinates, 2)
	assert.Equal(t, "para", set.Coordinates[0].Text, "the hyphen hint replaces the literal hyphen")
	assert.True(t, set.Coordinates[0].Hyphen)
	assert.Equal(t, 0, set.Coordinates[0].Spaces)
	assert.Equal(t, 2, set.Coordinates[1].Line)
}

func TestCoordinatesFromProtoEmpty(t *testing.T) {
	assert.Empty(t, CoordinatesFromProto(nil).Coordinates)
	assert.Empty(t, CoordinatesFromProto(&documentaipb.Document{}).Coordinates)
}
