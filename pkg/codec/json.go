package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/daybook/pkg/core"
)

// JSON stores notes as note.json, the filename used since the first release.
type JSON struct {
	// Indent pretty-prints encoded documents.
	Indent bool
}

// NewJSON creates a JSON codec with indented output.
func NewJSON() *JSON {
	return &JSON{Indent: true}
}

func (c *JSON) Filename() string { return "note.json" }

func (c *JSON) Encode(f core.Fields) ([]byte, error) {
	if err := checkText(f); err != nil {
		return nil, err
	}
	if c.Indent {
		return json.MarshalIndent(newDocument(f), "", "  ")
	}
	return json.Marshal(newDocument(f))
}

func (c *JSON) Decode(data []byte) (core.Fields, error) {
	// Unmarshal rejects trailing data after the document.
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Fields{}, fmt.Errorf("invalid json: %w", err)
	}
	return doc.fields()
}
