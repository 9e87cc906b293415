package hocr

import (
	"strings"
)

// ExtractText extracts all text from an HOCR document, words separated
// by spaces, one line per ocr_line, pages separated by a blank line.
func ExtractText(hocrDoc *HOCR) string {
	var builder strings.Builder

	for _, page := range hocrDoc.Pages {
		for _, line := range page.Lines {
			for i, word := range line.Words {
				if i > 0 {
					builder.WriteString(" ")
				}
				builder.WriteString(word.Text)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
