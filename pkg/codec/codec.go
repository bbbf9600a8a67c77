// Package codec implements the persisted formats of a daily note.
//
// Every document carries a schema_version. Documents without one are read
// as the legacy layout written before versioning was introduced.
package codec

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aretw0/daybook/pkg/core"
)

// SchemaVersion is the version written by Encode.
const SchemaVersion = 1

var (
	// ErrUnsupportedVersion is returned when a document declares an unknown schema_version.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	// ErrUnknownLayout is returned when a document has neither a version nor legacy keys.
	ErrUnknownLayout = errors.New("unknown note layout")
	// ErrInvalidText is returned by Encode when a field is not valid UTF-8.
	ErrInvalidText = errors.New("note text is not valid utf-8")
)

// checkText rejects fields the formats would silently rewrite.
func checkText(f core.Fields) error {
	for name, v := range map[string]string{"reflection": f.Reflection, "learning": f.Learning, "highlight": f.Highlight} {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%s: %w", name, ErrInvalidText)
		}
	}
	return nil
}

// document is the on-disk shape shared by all formats.
type document struct {
	SchemaVersion int    `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Reflection    string `json:"reflection,omitempty" yaml:"reflection,omitempty"`
	Learning      string `json:"learning,omitempty" yaml:"learning,omitempty"`
	Highlight     string `json:"highlight,omitempty" yaml:"highlight,omitempty"`

	// Legacy keys.
	HowWasYourDay      *string `json:"how_was_your_day,omitempty" yaml:"how_was_your_day,omitempty"`
	UniqueThingLearned *string `json:"unique_thing_learned,omitempty" yaml:"unique_thing_learned,omitempty"`
	QuoteOfTheDay      *string `json:"quote_of_the_day,omitempty" yaml:"quote_of_the_day,omitempty"`
}

func newDocument(f core.Fields) document {
	return document{
		SchemaVersion: SchemaVersion,
		Reflection:    f.Reflection,
		Learning:      f.Learning,
		Highlight:     f.Highlight,
	}
}

func (d document) fields() (core.Fields, error) {
	switch d.SchemaVersion {
	case SchemaVersion:
		return core.Fields{Reflection: d.Reflection, Learning: d.Learning, Highlight: d.Highlight}, nil
	case 0:
		if d.HowWasYourDay == nil && d.UniqueThingLearned == nil && d.QuoteOfTheDay == nil {
			return core.Fields{}, ErrUnknownLayout
		}
		return core.Fields{
			Reflection: deref(d.HowWasYourDay),
			Learning:   deref(d.UniqueThingLearned),
			Highlight:  deref(d.QuoteOfTheDay),
		}, nil
	default:
		return core.Fields{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.SchemaVersion)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// New returns the codec for format ("json" or "yaml").
func New(format string) (core.Codec, error) {
	switch format {
	case "", "json":
		return NewJSON(), nil
	case "yaml", "yml":
		return NewYAML(), nil
	default:
		return nil, fmt.Errorf("unsupported note format: %s", format)
	}
}
