package pdfmark

import (
	"io"
)

// MarkConfig holds user options for rendering annotation review PDFs
type MarkConfig struct {
	Debug       bool      // Also outline every word box of the marked coordinates
	ShowLabels  bool      // Print the annotation label above each highlight
	LayerName   string    // Base name of annotation layer (page number will be appended)
	LineWidth   float64   // Highlight border width in points
	Color       RGB       // Highlight border color
	LogWarnings bool      // Whether to print warnings
	Logger      io.Writer // Custom logger for warnings (nil = stdout)
	Font        FontConfig
}

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B int
}

// DefaultMarkConfig returns a config with sensible defaults
func DefaultMarkConfig() MarkConfig {
	return MarkConfig{
		Debug:       false,
		ShowLabels:  true,
		LayerName:   "Annotations", // Will be formatted as "Annotations (Page X)" in the final PDF
		LineWidth:   1.5,
		Color:       RGB{R: 230, G: 97, B: 0},
		LogWarnings: true,
		Logger:      nil, // stdout
		Font:        DefaultFont,
	}
}

// FontConfig contains font settings for label rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont sets the default font to Helvetica which is tried and tested for PDF layers
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}
