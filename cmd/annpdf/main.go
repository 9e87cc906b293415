// annpdf is a command-line tool for creating annotation review PDFs.
//
// It stacks page images into a PDF and draws a highlight rectangle over
// every annotated text coordinate, with the annotation label printed
// above the first highlight. The highlights live on a toggleable PDF
// layer per page so reviewers can switch them off.
//
// Usage:
//
//	annpdf -coords document.coords.json -ann document.ann -output review.pdf [options]
//
// Required flags:
//
//	-ann string       Path to the .ann annotation file
//	-output string    Output PDF path
//
// Input options (one required):
//
//	-coords string    Path to the coordinates JSON file
//	-docai string     Path to a stored Document AI response JSON; supplies
//	                  both coordinates and page images
//
//	-images string    Directory containing page images (with -coords;
//	                  optional, blank pages otherwise)
//
// Processing options:
//
//	-debug            Also outline every word box of the marked coordinates
//	-no-labels        Suppress annotation labels
//	-overwrite        Overwrite output file if it exists
//	-debug-doc string Path to save the parsed Document AI response as JSON
//
// Examples:
//
//	annpdf -coords record.coords.json -ann record.ann -images ./page_images -output record_review.pdf
//	annpdf -docai record.docai.json -ann record.ann -output record_review.pdf
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gardar/annalign/pkg/annotation"
	"github.com/gardar/annalign/pkg/docai"
	"github.com/gardar/annalign/pkg/pdfmark"
	"github.com/gardar/annalign/pkg/textcoord"
)

func main() {
	coordsPath := flag.String("coords", "", "Path to the coordinates JSON file")
	docaiPath := flag.String("docai", "", "Path to a stored Document AI response JSON")
	annPath := flag.String("ann", "", "Path to the .ann annotation file")
	imageDirPath := flag.String("images", "", "Directory containing page images")
	outputPath := flag.String("output", "", "Output PDF path")
	debug := flag.Bool("debug", false, "Also outline every word box of the marked coordinates")
	noLabels := flag.Bool("no-labels", false, "Suppress annotation labels")
	overwriteOutput := flag.Bool("overwrite", false, "Overwrite the output PDF if it already exists")
	debugDocPath := flag.String("debug-doc", "", "Path to save the parsed Document AI response as JSON for debugging purposes")
	flag.Parse()

	if *annPath == "" || *outputPath == "" {
		fmt.Println("Error: Must provide -ann and -output paths")
		os.Exit(1)
	}
	if (*coordsPath == "" && *docaiPath == "") || (*coordsPath != "" && *docaiPath != "") {
		fmt.Println("Error: Must provide either -coords or -docai (but not both)")
		os.Exit(1)
	}
	if *debugDocPath != "" && *docaiPath == "" {
		fmt.Println("Error: -debug-doc requires -docai")
		os.Exit(1)
	}
	if *imageDirPath != "" && *docaiPath != "" {
		fmt.Println("Error: -images only applies with -coords, -docai supplies its own page images")
		os.Exit(1)
	}

	if _, err := os.Stat(*outputPath); err == nil {
		if !*overwriteOutput {
			fmt.Printf("Output file %s already exists. Use -overwrite to overwrite.\n", *outputPath)
			os.Exit(1)
		}
		os.Remove(*outputPath)
	}

	// Build the MarkConfig
	config := pdfmark.DefaultMarkConfig()
	config.Debug = *debug
	config.ShowLabels = !*noLabels

	var coords *textcoord.Set
	var imagesData [][]byte

	if *docaiPath != "" {
		// Derive coordinates and page images from a stored Document AI response
		data, err := os.ReadFile(*docaiPath)
		if err != nil {
			fmt.Printf("Failed to read Document AI response: %v\n", err)
			os.Exit(1)
		}
		doc, err := docai.DocumentFromJSON(data)
		if err != nil {
			fmt.Printf("Failed to parse Document AI response: %v\n", err)
			os.Exit(1)
		}

		if *debugDocPath != "" {
			debugJSON, err := docai.RawJSON(doc)
			if err != nil {
				fmt.Printf("Failed to convert Document AI response to JSON: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(*debugDocPath, []byte(debugJSON), 0644); err != nil {
				fmt.Printf("Failed to write Document AI response JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Document AI response JSON saved to:", *debugDocPath)
		}

		coords = docai.CoordinatesFromProto(doc)
		for i, page := range doc.Pages {
			imgBytes, err := docai.ExtractPageImage(page)
			if err != nil {
				fmt.Printf("No image for page %d: %v\n", i+1, err)
				imagesData = append(imagesData, nil)
				continue
			}
			imagesData = append(imagesData, imgBytes)
		}
	} else {
		// Read and parse the coordinate set
		coordsFile, err := os.Open(*coordsPath)
		if err != nil {
			fmt.Printf("Failed to open coordinates file: %v\n", err)
			os.Exit(1)
		}
		coords, err = textcoord.ReadCoordinates(coordsFile)
		coordsFile.Close()
		if err != nil {
			fmt.Printf("Failed to parse coordinates file: %v\n", err)
			os.Exit(1)
		}
	}

	// Read and parse the annotation set
	annContent, err := os.ReadFile(*annPath)
	if err != nil {
		fmt.Printf("Failed to read annotation file: %v\n", err)
		os.Exit(1)
	}
	anns := annotation.FromFileContent(string(annContent), nil)

	// Read all page images into memory, in name order
	if *imageDirPath != "" {
		imagePaths, err := filepath.Glob(filepath.Join(*imageDirPath, "*"))
		if err != nil {
			fmt.Printf("Error accessing image directory: %v\n", err)
			os.Exit(1)
		}
		sort.Strings(imagePaths)
		fmt.Printf("Found %d image files in %s\n", len(imagePaths), *imageDirPath)

		for _, imgPath := range imagePaths {
			imgBytes, err := os.ReadFile(imgPath)
			if err != nil {
				fmt.Printf("Failed to read image %s: %v\n", imgPath, err)
				os.Exit(1)
			}
			imagesData = append(imagesData, imgBytes)
		}
	}

	// Assemble the review PDF
	finalPDF, err := pdfmark.AssembleReview(imagesData, coords, anns, config)
	if err != nil {
		fmt.Printf("Error creating review PDF: %v\n", err)
		os.Exit(1)
	}

	// Write final PDF to disk
	if err := os.WriteFile(*outputPath, finalPDF, 0666); err != nil {
		fmt.Printf("Failed to write output PDF: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Review PDF with %d annotations created: %s\n", len(anns.Entries()), *outputPath)
}
