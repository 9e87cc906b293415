package textcoord

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/gardar/annalign/pkg/blobstore"
)

// cacheTag namespaces coordinate-set cache keys within the shared
// process cache.
const cacheTag = "textcoord.Set"

// WriteCoordinates streams the coordinate sequence to w as a JSON
// object mapping uuid to coordinate. Each entry is encoded and flushed
// individually so the full payload never exists in memory.
func WriteCoordinates(w io.Writer, coords iter.Seq[*Coordinate]) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte('{'); err != nil {
		return fmt.Errorf("failed to write coordinates blob: %w", err)
	}
	first := true
	var encErr error
	for c := range coords {
		if !first {
			bw.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(c.UUID())
		if err != nil {
			encErr = err
			break
		}
		value, err := json.Marshal(c)
		if err != nil {
			encErr = err
			break
		}
		bw.Write(key)
		bw.WriteByte(':')
		if _, err := bw.Write(value); err != nil {
			encErr = err
			break
		}
	}
	if encErr != nil {
		return fmt.Errorf("failed to encode coordinate: %w", encErr)
	}
	bw.WriteByte('}')
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write coordinates blob: %w", err)
	}
	return nil
}

// WriteLines writes the line groupings to w as a JSON array of uuid
// arrays.
func WriteLines(w io.Writer, lines [][]string) error {
	if lines == nil {
		lines = [][]string{}
	}
	if err := json.NewEncoder(w).Encode(lines); err != nil {
		return fmt.Errorf("failed to write lines blob: %w", err)
	}
	return nil
}

// ReadCoordinates parses a coordinates blob incrementally, adding each
// decoded coordinate to a fresh set in stream order.
func ReadCoordinates(r io.Reader) (*Set, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read coordinates blob: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("coordinates blob is not a JSON object")
	}
	set := NewSet()
	for dec.More() {
		// The object key restates the coordinate's uuid; the value is
		// authoritative, so the key is consumed and dropped.
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to read coordinates blob: %w", err)
		}
		c := &Coordinate{}
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("failed to decode coordinate: %w", err)
		}
		set.Add(c)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read coordinates blob: %w", err)
	}
	return set, nil
}

// ReadLines parses a lines blob.
func ReadLines(data []byte) ([][]string, error) {
	var lines [][]string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode lines blob: %w", err)
	}
	return lines, nil
}

// writeBlob streams the output of fn into storage through a pipe so
// arbitrarily large encodings upload without full materialization.
func writeBlob(ctx context.Context, store blobstore.Storage, key string, fn func(io.Writer) error) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(fn(pw))
	}()
	if err := store.WriteFileObj(ctx, pr, key); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return nil
}

// ToStorage persists the set as its two companion blobs and refreshes
// the cache entry so a write-then-read of the same keys observes this
// set without a storage round trip.
func (s *Set) ToStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, coordsKey, linesKey string) error {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	if err := writeBlob(ctx, store, coordsKey, func(w io.Writer) error {
		return WriteCoordinates(w, slices.Values(s.Coordinates))
	}); err != nil {
		return err
	}
	if linesKey != "" {
		if err := writeBlob(ctx, store, linesKey, func(w io.Writer) error {
			return WriteLines(w, s.Lines())
		}); err != nil {
			return err
		}
	}
	cache.Set(blobstore.Key(cacheTag, coordsKey, linesKey), s)
	return nil
}

// FromStorage loads a set, consulting the cache first. When coordsKey
// is empty only the lines blob is read; otherwise the coordinates blob
// alone is read, since re-deriving lines from coordinates is cheaper
// than a second storage fetch.
func FromStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, coordsKey, linesKey string) (*Set, error) {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	cacheKey := blobstore.Key(cacheTag, coordsKey, linesKey)
	if v, ok := cache.Get(cacheKey); ok {
		if set, ok := v.(*Set); ok {
			return set, nil
		}
	}
	var set *Set
	if coordsKey != "" {
		rc, err := store.GetContentStream(ctx, coordsKey)
		if err != nil {
			return nil, err
		}
		set, err = ReadCoordinates(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	} else {
		data, err := store.GetObjectContent(ctx, linesKey)
		if err != nil {
			return nil, err
		}
		lines, err := ReadLines(data)
		if err != nil {
			return nil, err
		}
		set = &Set{loadedLines: lines}
	}
	cache.Set(cacheKey, set)
	return set, nil
}

// DeleteStorage removes the set's blobs and evicts the cache entry.
func DeleteStorage(ctx context.Context, store blobstore.Storage, cache blobstore.Cache, coordsKey, linesKey string) error {
	if cache == nil {
		cache = blobstore.NopCache{}
	}
	for _, key := range []string{coordsKey, linesKey} {
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			return err
		}
	}
	cache.Invalidate(blobstore.Key(cacheTag, coordsKey, linesKey))
	return nil
}

// ToStorage drains the generator into the coordinates blob, then writes
// the line groupings accumulated during the pass. The resulting blobs
// are identical to those of a materialized set. No cache entry is
// refreshed since the generator never holds a loadable set.
func (g *SetGenerator) ToStorage(ctx context.Context, store blobstore.Storage, coordsKey, linesKey string) error {
	if err := writeBlob(ctx, store, coordsKey, func(w io.Writer) error {
		return WriteCoordinates(w, g.Coordinates())
	}); err != nil {
		return err
	}
	lines, err := g.Lines()
	if err != nil {
		return err
	}
	if linesKey == "" {
		return nil
	}
	return writeBlob(ctx, store, linesKey, func(w io.Writer) error {
		return WriteLines(w, lines)
	})
}
