// Package docai ingests Google Document AI OCR output into text
// coordinates.
//
// ProcessDocument sends a PDF to a Document AI processor and returns
// the raw Document proto. CoordinatesFromProto walks the proto's pages
// and tokens and emits one text coordinate per token, carrying page and
// document character offsets from the text anchors, line membership,
// layout hints from detected breaks, and pixel bounding boxes scaled
// from the normalized vertices.
//
// Authentication uses the GOOGLE_APPLICATION_CREDENTIALS environment
// variable.
package docai

import (
	"context"
	"fmt"
	"os"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// Config identifies the Document AI processor to use.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// ProcessDocument sends PDF bytes to Google Document AI for processing
// and returns the raw Document proto response.
func ProcessDocument(ctx context.Context, pdfBytes []byte, cfg *Config) (*documentaipb.Document, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)

	client, err := documentai.NewDocumentProcessorClient(
		ctx,
		option.WithEndpoint(endpoint),
		option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	defer client.Close()

	name := fmt.Sprintf(
		"projects/%s/locations/%s/processors/%s",
		cfg.ProjectID, cfg.Location, cfg.ProcessorID,
	)

	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
		SkipHumanReview: true,
	}

	resp, err := client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}

	return resp.Document, nil
}
