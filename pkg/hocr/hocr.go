// Package hocr implements parsing and generation of hOCR data, the
// HTML-based standard format for OCR results, as the second OCR
// ingestion seam next to Document AI.
//
// The object model is flattened to the levels that matter for text
// coordinates: Document → Pages → Lines → Words, with bounding boxes
// and metadata at each level. Lines are collected wherever they sit in
// the source markup, so hOCR producers that nest lines under content
// areas or paragraphs parse the same as those that do not.
//
// Main Functions:
//
// - Parse: parses hOCR HTML into the object model
// - Generate: generates valid hOCR HTML from the object model
// - CoordinatesFromHOCR: converts a parsed document into text coordinates
// - FromCoordinates: rebuilds an hOCR document from a coordinate set
package hocr
