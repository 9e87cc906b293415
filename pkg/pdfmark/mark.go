// Package pdfmark assembles annotation review PDFs: page images stacked
// into a document with highlight rectangles drawn at the bounding boxes
// of each annotation's text coordinates, on a toggleable layer per page.
package pdfmark

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/annalign/pkg/annotation"
	"github.com/gardar/annalign/pkg/textcoord"
)

// mark is one rectangle to draw, in page pixel space.
type mark struct {
	x1, y1, x2, y2 float64
	label          string
	word           bool // word-level debug outline, not an annotation highlight
}

// AssembleReview builds a review PDF from page images and a coordinate
// set, drawing a highlight rectangle over every coordinate of every
// annotation in the set. Annotations resolve to coordinates through
// their coordinate uuid back-references when present, otherwise by
// their character range. Page dimensions come from the page image when
// one is supplied, falling back to the union of that page's coordinate
// boxes; imagesData may be shorter than the page count.
func AssembleReview(
	imagesData [][]byte,
	coords *textcoord.Set,
	anns *annotation.Set,
	config MarkConfig,
) ([]byte, error) {
	if coords == nil || len(coords.Coordinates) == 0 {
		return nil, fmt.Errorf("no coordinates to build review pages from")
	}
	if anns == nil {
		return nil, fmt.Errorf("no annotation set to mark")
	}
	logger := getLogger(config)

	pageCount := 0
	for _, c := range coords.Coordinates {
		if c.Page > pageCount {
			pageCount = c.Page
		}
	}

	marksByPage, err := collectMarks(coords, anns, config, logger)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "pt", "A4", "")

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		w, h := pageSize(imagesData, coords, pageNum)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		if pageNum-1 < len(imagesData) && len(imagesData[pageNum-1]) > 0 {
			imageName := fmt.Sprintf("img%d", pageNum-1)
			imageType, err := detectImageType(imagesData[pageNum-1])
			if err != nil {
				return nil, fmt.Errorf("failed to detect image type for page %d: %w", pageNum, err)
			}
			opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
			pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(imagesData[pageNum-1]))
			pdf.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")
		} else if config.LogWarnings {
			fmt.Fprintf(logger, "Warning: no image for page %d, rendering highlights on a blank page\n", pageNum)
		}

		if err := drawMarkLayer(pdf, pageNum, marksByPage[pageNum], config); err != nil {
			return nil, fmt.Errorf("failed to draw annotation layer for page %d: %w", pageNum, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// collectMarks resolves every annotation to coordinate boxes and groups
// the resulting rectangles by page. One highlight per contiguous line
// run of an annotation's coordinates, plus per-word outlines in debug
// mode.
func collectMarks(coords *textcoord.Set, anns *annotation.Set, config MarkConfig, logger io.Writer) (map[int][]mark, error) {
	marksByPage := make(map[int][]mark)

	for _, a := range anns.Entries() {
		resolved := resolveCoords(a, coords)
		if len(resolved) == 0 {
			if config.LogWarnings {
				fmt.Fprintf(logger, "Warning: annotation %s (%q) resolves to no coordinates\n", a.UUID, a.Label)
			}
			continue
		}

		var boxed []*textcoord.Coordinate
		for _, c := range resolved {
			if c.Left != nil && c.Top != nil && c.Right != nil && c.Bottom != nil {
				boxed = append(boxed, c)
			}
		}
		if len(boxed) == 0 {
			if config.LogWarnings {
				fmt.Fprintf(logger, "Warning: annotation %s (%q) has no bounding boxes, skipping\n", a.UUID, a.Label)
			}
			continue
		}

		label := a.Label
		runStart := 0
		for i := 1; i <= len(boxed); i++ {
			if i < len(boxed) && boxed[i].Page == boxed[runStart].Page && boxed[i].Line == boxed[runStart].Line {
				continue
			}
			run := boxed[runStart:i]
			m := mark{
				x1:    float64(*run[0].Left),
				y1:    float64(*run[0].Top),
				x2:    float64(*run[0].Right),
				y2:    float64(*run[0].Bottom),
				label: label,
			}
			for _, c := range run[1:] {
				m.x1 = min(m.x1, float64(*c.Left))
				m.y1 = min(m.y1, float64(*c.Top))
				m.x2 = max(m.x2, float64(*c.Right))
				m.y2 = max(m.y2, float64(*c.Bottom))
			}
			page := run[0].Page
			marksByPage[page] = append(marksByPage[page], m)
			// Only the first highlight of an annotation carries the label.
			label = ""

			if config.Debug {
				for _, c := range run {
					marksByPage[page] = append(marksByPage[page], mark{
						x1:   float64(*c.Left),
						y1:   float64(*c.Top),
						x2:   float64(*c.Right),
						y2:   float64(*c.Bottom),
						word: true,
					})
				}
			}
			runStart = i
		}
	}
	return marksByPage, nil
}

// resolveCoords maps an annotation to its coordinates, preferring the
// explicit uuid back-references over a character-range lookup.
func resolveCoords(a *annotation.Annotation, coords *textcoord.Set) []*textcoord.Coordinate {
	if len(a.CoordUUIDs) > 0 {
		resolved := make([]*textcoord.Coordinate, 0, len(a.CoordUUIDs))
		for _, id := range a.CoordUUIDs {
			if c, ok := coords.ByUUID(id); ok {
				resolved = append(resolved, c)
			}
		}
		return resolved
	}
	return coords.FindCoords(a.Range.Start, a.Range.End)
}

// pageSize picks the page dimensions in points. The page image wins
// when present, then the union of the page's coordinate boxes, then A4.
func pageSize(imagesData [][]byte, coords *textcoord.Set, pageNum int) (float64, float64) {
	if pageNum-1 < len(imagesData) && len(imagesData[pageNum-1]) > 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(imagesData[pageNum-1])); err == nil {
			return float64(cfg.Width), float64(cfg.Height)
		}
	}

	var w, h float64
	for _, c := range coords.Coordinates {
		if c.Page != pageNum || c.Right == nil || c.Bottom == nil {
			continue
		}
		w = max(w, float64(*c.Right))
		h = max(h, float64(*c.Bottom))
	}
	if w > 0 && h > 0 {
		return w, h
	}
	return 595.28, 841.89 // A4 in points
}

// drawMarkLayer draws the highlight rectangles onto a layer in a pdf
// page. The pageNum parameter is used to create unique layer names for
// each page.
func drawMarkLayer(pdf *fpdf.Fpdf, pageNum int, marks []mark, config MarkConfig) error {
	formattedLayerName := config.LayerName
	if pageNum > 0 {
		formattedLayerName = fmt.Sprintf("%s (Page %d)", config.LayerName, pageNum)
	}

	layer := pdf.AddLayer(formattedLayerName, true)
	pdf.BeginLayer(layer)
	pdf.SetFont(config.Font.Name, config.Font.Style, config.Font.Size)
	pdf.SetLineWidth(config.LineWidth)

	encodingErrors := 0
	labelCount := 0

	for _, m := range marks {
		if m.word {
			pdf.SetDrawColor(255, 0, 0)
			pdf.SetLineWidth(0.5)
			pdf.Rect(m.x1, m.y1, m.x2-m.x1, m.y2-m.y1, "D")
			pdf.SetLineWidth(config.LineWidth)
			continue
		}

		pdf.SetDrawColor(config.Color.R, config.Color.G, config.Color.B)
		pdf.Rect(m.x1, m.y1, m.x2-m.x1, m.y2-m.y1, "D")

		if config.ShowLabels && m.label != "" {
			drawLabel(pdf, m, config, &encodingErrors)
			labelCount++
		}
	}

	pdf.EndLayer()

	if labelCount > 0 && encodingErrors > 0 && encodingErrors > labelCount/10 {
		return fmt.Errorf("character encoding issues in %d of %d labels",
			encodingErrors, labelCount)
	}
	return nil
}

// drawLabel renders the annotation label just above its first highlight
func drawLabel(pdf *fpdf.Fpdf, m mark, config MarkConfig, encodingErrors *int) {
	// Convert text to ISO-8859-1 to avoid PDF encoding issues
	latin1, err := charmap.ISO8859_1.NewEncoder().String(m.label)
	if err != nil {
		*encodingErrors++
		latin1 = m.label // fallback to raw text
	}

	pdf.SetTextColor(config.Color.R, config.Color.G, config.Color.B)
	y := m.y1 - 2
	fontSize, _ := pdf.GetFontSize()
	if y-fontSize < 0 {
		// No room above the box, tuck the label inside it instead.
		y = m.y1 + fontSize*config.Font.AscentRatio
	}
	pdf.Text(m.x1, y, latin1)
}

// detectImageType tries to figure out whether the data is PNG, JPEG, etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}

// getLogger returns the appropriate io.Writer to use for logging
// based on the configuration settings, defaulting to os.Stdout if nil.
func getLogger(config MarkConfig) io.Writer {
	if config.Logger == nil {
		return os.Stdout
	}
	return config.Logger
}
