package docai

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := &documentaipb.Document{
		Text: "chest pain\n",
		Pages: []*documentaipb.Document_Page{
			{
				PageNumber: 1,
				Layout:     anchorLayout(0, 11),
				Image: &documentaipb.Document_Page_Image{
					Content:  []byte{0x89, 'P', 'N', 'G'},
					MimeType: "image/png",
				},
			},
		},
	}

	jsonStr, err := RawJSON(doc)
	require.NoError(t, err)
	assert.Contains(t, jsonStr, "chest pain")

	parsed, err := DocumentFromJSON([]byte(jsonStr))
	require.NoError(t, err)
	assert.Equal(t, doc.Text, parsed.Text)
	require.Len(t, parsed.Pages, 1)
	assert.Equal(t, int32(1), parsed.Pages[0].PageNumber)
	assert.Equal(t, doc.Pages[0].Image.Content, parsed.Pages[0].Image.Content)
}

func TestDocumentFromJSONInvalid(t *testing.T) {
	_, err := DocumentFromJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestRawJSONPlainValue(t *testing.T) {
	jsonStr, err := RawJSON(map[string]int{"pages": 3})
	require.NoError(t, err)
	assert.Contains(t, jsonStr, `"pages": 3`)
}

func TestExtractPageImage(t *testing.T) {
	page := &documentaipb.Document_Page{
		Image: &documentaipb.Document_Page_Image{Content: []byte{1, 2, 3}},
	}
	content, err := ExtractPageImage(page)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, content)

	_, err = ExtractPageImage(nil)
	assert.Error(t, err)

	_, err = ExtractPageImage(&documentaipb.Document_Page{})
	assert.Error(t, err)

	_, err = ExtractPageImage(&documentaipb.Document_Page{
		Image: &documentaipb.Document_Page_Image{},
	})
	assert.Error(t, err)
}
