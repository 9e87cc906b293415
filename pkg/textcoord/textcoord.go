// Package textcoord maintains a queryable, serializable index from
// document character offsets to OCR-derived layout metadata.
//
// A Coordinate records where one token (or character run) of OCR output
// sits in page space, document space, and pixel space, together with
// the layout hints needed to reconstruct the original text. A Set holds
// coordinates in document order and answers "which coordinates fall in
// character range [start, stop)" queries by binary search. Sets
// round-trip through blob storage as two companion files, a coordinates
// object and a line-grouping array, both written and read as streams so
// large documents never have to be materialized as a single JSON
// payload.
package textcoord

import (
	"encoding/json"
	"strconv"
)

// Coordinate places one token of OCR output in the document. It is
// built during OCR ingestion and treated as immutable afterwards,
// except for the one-time document offset rewrite applied by
// Set.UpdateFromPageRanges.
type Coordinate struct {
	// Text is the literal character(s) or token this coordinate covers.
	Text string

	// Order is the sequence index within the owning set. It doubles as
	// the default identity when no uuid has been assigned.
	Order int

	// Offsets within the page's local text.
	PageIndexFirst int
	PageIndexLast  int

	// Offsets within the full concatenated document text. Across an
	// ordered set, DocumentIndexFirst is non-decreasing.
	DocumentIndexFirst int
	DocumentIndexLast  int

	Line int
	Page int

	// Layout reconstruction hints. When assembling text from a run of
	// coordinates, Hyphen means join with "-", otherwise Spaces space
	// characters are inserted and NewLine means a line break follows.
	Hyphen  bool
	Spaces  int
	NewLine bool

	// Bounding box in page pixels, when the OCR engine provided one.
	Left   *int
	Right  *int
	Top    *int
	Bottom *int

	uuid string
}

// UUID returns the assigned identity, or the stringified order when
// none has been assigned.
func (c *Coordinate) UUID() string {
	if c.uuid != "" {
		return c.uuid
	}
	return strconv.Itoa(c.Order)
}

// SetUUID assigns an identity. Assigning the order-derived default is a
// no-op, so a coordinate that round-trips through serialization keeps
// reporting the default rather than pinning it.
func (c *Coordinate) SetUUID(uuid string) {
	if uuid == "" || uuid == strconv.Itoa(c.Order) {
		c.uuid = ""
		return
	}
	c.uuid = uuid
}

// coordinateJSON is the wire shape of a Coordinate.
type coordinateJSON struct {
	UUID               string `json:"uuid"`
	Text               string `json:"text"`
	Order              int    `json:"order"`
	PageIndexFirst     int    `json:"page_index_first"`
	PageIndexLast      int    `json:"page_index_last"`
	DocumentIndexFirst int    `json:"document_index_first"`
	DocumentIndexLast  int    `json:"document_index_last"`
	Line               int    `json:"line"`
	Page               int    `json:"page"`
	Hyphen             bool   `json:"hyphen"`
	Spaces             int    `json:"spaces"`
	NewLine            bool   `json:"new_line"`
	Left               *int   `json:"left"`
	Right              *int   `json:"right"`
	Top                *int   `json:"top"`
	Bottom             *int   `json:"bottom"`
}

// MarshalJSON emits the coordinate with its effective uuid.
func (c *Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(coordinateJSON{
		UUID:               c.UUID(),
		Text:               c.Text,
		Order:              c.Order,
		PageIndexFirst:     c.PageIndexFirst,
		PageIndexLast:      c.PageIndexLast,
		DocumentIndexFirst: c.DocumentIndexFirst,
		DocumentIndexLast:  c.DocumentIndexLast,
		Line:               c.Line,
		Page:               c.Page,
		Hyphen:             c.Hyphen,
		Spaces:             c.Spaces,
		NewLine:            c.NewLine,
		Left:               c.Left,
		Right:              c.Right,
		Top:                c.Top,
		Bottom:             c.Bottom,
	})
}

// UnmarshalJSON fills the coordinate from its wire shape. Page defaults
// to 1 when absent.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	j := coordinateJSON{Page: 1}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.Text = j.Text
	c.Order = j.Order
	c.PageIndexFirst = j.PageIndexFirst
	c.PageIndexLast = j.PageIndexLast
	c.DocumentIndexFirst = j.DocumentIndexFirst
	c.DocumentIndexLast = j.DocumentIndexLast
	c.Line = j.Line
	c.Page = j.Page
	c.Hyphen = j.Hyphen
	c.Spaces = j.Spaces
	c.NewLine = j.NewLine
	c.Left = j.Left
	c.Right = j.Right
	c.Top = j.Top
	c.Bottom = j.Bottom
	c.uuid = ""
	c.SetUUID(j.UUID)
	return nil
}
