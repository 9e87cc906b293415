package docai

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// RawJSON converts a value to a JSON string for debugging payloads.
// Protocol buffer messages go through protojson, everything else
// through the standard encoder.
func RawJSON(data interface{}) (string, error) {
	switch v := data.(type) {
	case proto.Message:
		jsonData, err := protojson.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(jsonData), nil

	default:
		jsonData, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(jsonData), nil
	}
}

// DocumentFromJSON parses a stored Document AI response back into its
// proto form, the inverse of RawJSON for Document payloads.
func DocumentFromJSON(data []byte) (*documentaipb.Document, error) {
	doc := &documentaipb.Document{}
	if err := protojson.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse documentai response: %w", err)
	}
	return doc, nil
}

// ExtractPageImage pulls the page image data out of a Document AI page,
// for review-PDF assembly.
func ExtractPageImage(page *documentaipb.Document_Page) ([]byte, error) {
	if page == nil {
		return nil, fmt.Errorf("no documentai page provided")
	}
	image := page.GetImage()
	if image == nil {
		return nil, fmt.Errorf("no image found in documentai page")
	}
	content := image.GetContent()
	if len(content) == 0 {
		return nil, fmt.Errorf("image content is empty")
	}
	return content, nil
}
