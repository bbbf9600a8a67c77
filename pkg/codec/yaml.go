package codec

import (
	"fmt"

	"github.com/aretw0/daybook/pkg/core"
	"gopkg.in/yaml.v3"
)

// YAML stores notes as note.yaml.
type YAML struct{}

func NewYAML() *YAML {
	return &YAML{}
}

func (c *YAML) Filename() string { return "note.yaml" }

func (c *YAML) Encode(f core.Fields) ([]byte, error) {
	if err := checkText(f); err != nil {
		return nil, err
	}
	return yaml.Marshal(newDocument(f))
}

func (c *YAML) Decode(data []byte) (core.Fields, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.Fields{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return doc.fields()
}
