// annalign is a command-line tool for converting, validating and storing
// clinical text annotations against document text coordinates.
//
// It converts i2b2 challenge annotation files into .ann annotation files,
// realigns existing .ann files against a text coordinate set, removes
// duplicate entries, and pushes or pulls annotation and coordinate sets
// through a configured storage backend.
//
// Configuration:
//
// Storage operations require a YAML configuration file:
//
//	storage: local          # local, gcs or badger
//	directory: ./data       # local backend root
//	bucket: my-bucket       # gcs bucket name
//	credentials: creds.json # gcs service account file (optional)
//	badger_path: ./badger   # badger database directory
//	cache_size: 64
//	cache_ttl: 1h
//
// Usage:
//
//	annalign [options]
//
// Conversion (i2b2 to .ann):
//
//	-i2b2 string        Path to the i2b2 annotation file
//	-text string        Path to the raw document text (required with -i2b2)
//	-i2b2-label string  i2b2 key holding the concept label (e.g. "t")
//	-label string       Label name to assign in the output (defaults to the i2b2 value)
//	-filter-marker string  Only keep entries whose marker key matches -filter-target
//	-filter-target string  Required value of the marker key
//
// Validation and realignment:
//
//	-ann string         Path to an .ann annotation file
//	-coords string      Path to a coordinates JSON file
//	-dedup              Remove duplicate annotation entries
//
// Storage:
//
//	-config string      Path to the YAML configuration file
//	-push string        Document id to store the loaded sets under
//	-pull string        Document id to load sets from storage
//
// Output:
//
//	-out string         Path to save the resulting .ann file
//	-out-coords string  Path to save the pulled coordinates JSON
//
// Examples:
//
//	annalign -i2b2 record.i2b2 -text record.txt -i2b2-label t -label diagnosis -out record.ann
//	annalign -ann record.ann -coords record.coords.json -dedup -out record.ann
//	annalign -config storage.yml -ann record.ann -coords record.coords.json -push record-17
//	annalign -config storage.yml -pull record-17 -out record.ann -out-coords record.coords.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gardar/annalign/pkg/annotation"
	"github.com/gardar/annalign/pkg/blobstore"
	"github.com/gardar/annalign/pkg/i2b2"
	"github.com/gardar/annalign/pkg/textcoord"
)

type yamlConfig struct {
	Storage     string `yaml:"storage"`
	Directory   string `yaml:"directory"`
	Bucket      string `yaml:"bucket"`
	Credentials string `yaml:"credentials"`
	BadgerPath  string `yaml:"badger_path"`
	CacheSize   int    `yaml:"cache_size"`
	CacheTTL    string `yaml:"cache_ttl"`

	cacheTTL time.Duration
}

// loadConfig reads a YAML file describing the storage backend
func loadConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, err
	}
	if yc.CacheSize == 0 {
		yc.CacheSize = blobstore.DefaultCacheSize
	}
	yc.cacheTTL = blobstore.DefaultCacheTTL
	if yc.CacheTTL != "" {
		ttl, err := time.ParseDuration(yc.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache_ttl %q: %w", yc.CacheTTL, err)
		}
		yc.cacheTTL = ttl
	}
	return &yc, nil
}

// openStorage builds the configured backend plus its cache. The
// returned closer is a no-op for backends without one.
func openStorage(ctx context.Context, cfg *yamlConfig) (blobstore.Storage, blobstore.Cache, func() error, error) {
	cache := blobstore.NewLRUCache(cfg.CacheSize, cfg.cacheTTL)
	noClose := func() error { return nil }

	switch cfg.Storage {
	case "", "local":
		dir := cfg.Directory
		if dir == "" {
			dir = "."
		}
		store, err := blobstore.NewLocal(dir)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, cache, noClose, nil
	case "gcs":
		store, err := blobstore.NewGCS(ctx, cfg.Bucket, cfg.Credentials)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, cache, store.Close, nil
	case "badger":
		store, err := blobstore.NewBadger(blobstore.DefaultBadgerConfig(cfg.BadgerPath))
		if err != nil {
			return nil, nil, nil, err
		}
		return store, cache, store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func storageKeys(docID string) (coordsKey, linesKey, annKey string) {
	coordsKey = blobstore.Key("textcoord.Set", docID, "coords")
	linesKey = blobstore.Key("textcoord.Set", docID, "lines")
	annKey = blobstore.Key("annotation.Set", docID)
	return
}

// realign reconciles every annotation against the coordinate set.
// Annotations carrying coordinate uuid back-references get their range
// and text rebuilt from the referenced coordinates; plain annotations
// get back-references attached from a range lookup. Returns how many
// entries changed.
func realign(anns *annotation.Set, coords *textcoord.Set, logger *slog.Logger) int {
	changed := 0
	for _, a := range anns.Entries() {
		var resolved []*textcoord.Coordinate
		if len(a.CoordUUIDs) > 0 {
			for _, id := range a.CoordUUIDs {
				c, ok := coords.ByUUID(id)
				if !ok {
					logger.Warn("unknown coordinate reference",
						"annotation", a.UUID, "coordinate", id)
					continue
				}
				resolved = append(resolved, c)
			}
		} else {
			resolved = coords.FindCoords(a.Range.Start, a.Range.End)
		}
		if len(resolved) == 0 {
			logger.Warn("annotation matches no coordinates",
				"annotation", a.UUID, "label", a.Label,
				"start", a.Range.Start, "end", a.Range.End)
			continue
		}

		first, last := resolved[0], resolved[len(resolved)-1]
		span := annotation.Span{
			Start: first.DocumentIndexFirst,
			End:   last.DocumentIndexLast + 1,
		}
		text := textcoord.JoinText(resolved, " ")

		uuids := make([]string, len(resolved))
		for i, c := range resolved {
			uuids[i] = c.UUID()
		}

		if a.Range != span || a.Text != text {
			logger.Info("realigned annotation",
				"annotation", a.UUID, "label", a.Label,
				"start", span.Start, "end", span.End)
			changed++
		}
		a.Range = span
		a.Text = text
		a.CoordUUIDs = uuids
		a.LineStart = first.Line
		a.LineStop = last.Line
	}
	return changed
}

func main() {
	// Input flags
	configPath := flag.String("config", "", "Path to the storage config YAML file (required for -push/-pull)")
	i2b2Path := flag.String("i2b2", "", "Path to the i2b2 annotation file")
	textPath := flag.String("text", "", "Path to the raw document text (required with -i2b2)")
	i2b2Label := flag.String("i2b2-label", "", "i2b2 key holding the concept label (required with -i2b2)")
	labelName := flag.String("label", "", "Label name for converted annotations (defaults to the i2b2 value)")
	filterMarker := flag.String("filter-marker", "", "Only keep i2b2 entries whose marker key matches -filter-target")
	filterTarget := flag.String("filter-target", "", "Required value of the -filter-marker key")
	annPath := flag.String("ann", "", "Path to an .ann annotation file")
	coordsPath := flag.String("coords", "", "Path to a coordinates JSON file")

	// Operation flags
	dedup := flag.Bool("dedup", false, "Remove duplicate annotation entries")
	pushID := flag.String("push", "", "Document id to store the loaded sets under")
	pullID := flag.String("pull", "", "Document id to load sets from storage")

	// Output flags
	outPath := flag.String("out", "", "Path to save the resulting .ann file")
	outCoordsPath := flag.String("out-coords", "", "Path to save the pulled coordinates JSON")

	flag.Parse()

	if *i2b2Path == "" && *annPath == "" && *pullID == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -i2b2, -ann or -pull must be provided")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *i2b2Path != "" && *annPath != "" {
		fmt.Fprintln(os.Stderr, "Error: -i2b2 and -ann are mutually exclusive")
		os.Exit(1)
	}
	if *i2b2Path != "" && (*textPath == "" || *i2b2Label == "") {
		fmt.Fprintln(os.Stderr, "Error: -i2b2 requires -text and -i2b2-label")
		os.Exit(1)
	}
	if (*filterMarker == "") != (*filterTarget == "") {
		fmt.Fprintln(os.Stderr, "Error: -filter-marker and -filter-target must be provided together")
		os.Exit(1)
	}
	if (*pushID != "" || *pullID != "") && *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -push and -pull require -config")
		os.Exit(1)
	}
	if *pushID != "" && *pullID != "" {
		fmt.Fprintln(os.Stderr, "Error: -push and -pull are mutually exclusive")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	// Open the storage backend if any storage operation was requested.
	var store blobstore.Storage
	var cache blobstore.Cache
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		var closeStore func() error
		store, cache, closeStore, err = openStorage(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer closeStore()
	}

	var anns *annotation.Set
	var coords *textcoord.Set

	switch {
	case *i2b2Path != "":
		// Convert an i2b2 annotation file against its raw document text.
		annContent, err := os.ReadFile(*i2b2Path)
		if err != nil {
			log.Fatalf("Failed to read i2b2 file: %v", err)
		}
		rawText, err := os.ReadFile(*textPath)
		if err != nil {
			log.Fatalf("Failed to read document text: %v", err)
		}

		var filter *i2b2.TypeFilter
		if *filterMarker != "" {
			filter = &i2b2.TypeFilter{Marker: *filterMarker, Target: *filterTarget}
		}

		reader := i2b2.NewReader(logger)
		anns, err = reader.ParseLabelAnnotationText(string(annContent), string(rawText), *i2b2Label, *labelName, filter)
		if err != nil {
			log.Fatalf("Failed to convert i2b2 annotations: %v", err)
		}
		fmt.Printf("Converted %d annotations from %s\n", len(anns.Entries()), *i2b2Path)

	case *annPath != "":
		content, err := os.ReadFile(*annPath)
		if err != nil {
			log.Fatalf("Failed to read annotation file: %v", err)
		}
		anns = annotation.FromFileContent(string(content), logger)
		fmt.Printf("Loaded %d annotations from %s\n", len(anns.Entries()), *annPath)

	case *pullID != "":
		coordsKey, linesKey, annKey := storageKeys(*pullID)
		var err error
		anns, err = annotation.FromStorage(ctx, store, cache, annKey, logger)
		if err != nil {
			log.Fatalf("Failed to pull annotations for %s: %v", *pullID, err)
		}
		coords, err = textcoord.FromStorage(ctx, store, cache, coordsKey, linesKey)
		if err != nil {
			log.Fatalf("Failed to pull coordinates for %s: %v", *pullID, err)
		}
		fmt.Printf("Pulled %d annotations and %d coordinates for %s\n",
			len(anns.Entries()), len(coords.Coordinates), *pullID)

		if *outPath != "" {
			if err := os.WriteFile(*outPath, []byte(anns.ToFileContent()), 0644); err != nil {
				log.Fatalf("Failed to write annotation output: %v", err)
			}
			fmt.Println("Annotations saved to:", *outPath)
		}
		if *outCoordsPath != "" {
			f, err := os.Create(*outCoordsPath)
			if err != nil {
				log.Fatalf("Failed to create coordinates output: %v", err)
			}
			if err := textcoord.WriteCoordinates(f, slices.Values(coords.Coordinates)); err != nil {
				f.Close()
				log.Fatalf("Failed to write coordinates output: %v", err)
			}
			if err := f.Close(); err != nil {
				log.Fatalf("Failed to write coordinates output: %v", err)
			}
			fmt.Println("Coordinates saved to:", *outCoordsPath)
		}
		return
	}

	// Load coordinates if provided and realign the annotations.
	if *coordsPath != "" {
		f, err := os.Open(*coordsPath)
		if err != nil {
			log.Fatalf("Failed to open coordinates file: %v", err)
		}
		coords, err = textcoord.ReadCoordinates(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse coordinates file: %v", err)
		}

		changed := realign(anns, coords, logger)
		fmt.Printf("Realigned %d of %d annotations\n", changed, len(anns.Entries()))
	}

	if *dedup {
		before := len(anns.Entries())
		anns.RemoveDuplicateEntries()
		fmt.Printf("Removed %d duplicate annotations\n", before-len(anns.Entries()))
	}

	// Push the loaded sets to storage if requested.
	if *pushID != "" {
		coordsKey, linesKey, annKey := storageKeys(*pushID)
		if err := anns.ToStorage(ctx, store, cache, annKey); err != nil {
			log.Fatalf("Failed to push annotations for %s: %v", *pushID, err)
		}
		fmt.Printf("Pushed %d annotations as %s\n", len(anns.Entries()), *pushID)
		if coords != nil {
			if err := coords.ToStorage(ctx, store, cache, coordsKey, linesKey); err != nil {
				log.Fatalf("Failed to push coordinates for %s: %v", *pushID, err)
			}
			fmt.Printf("Pushed %d coordinates as %s\n", len(coords.Coordinates), *pushID)
		}
	}

	// Write the resulting annotation file if flag is provided.
	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(anns.ToFileContent()), 0644); err != nil {
			log.Fatalf("Failed to write annotation output: %v", err)
		}
		fmt.Println("Annotations saved to:", *outPath)
	}
}
