package core

import (
	"errors"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// utf8Text rejects text that is not valid UTF-8.
var utf8Text = validation.By(func(value interface{}) error {
	if s, ok := value.(string); ok && !utf8.ValidString(s) {
		return errors.New("must be valid UTF-8 text")
	}
	return nil
})

// Fields are the three free-text answers of a daily note, in canonical order.
type Fields struct {
	// Reflection answers "how was your day".
	Reflection string `json:"reflection" yaml:"reflection"`
	// Learning answers "unique thing learned today".
	Learning string `json:"learning" yaml:"learning"`
	// Highlight holds the quote, motivation or fact of the day.
	Highlight string `json:"highlight" yaml:"highlight"`
}

// Validate checks that every field is filled in with UTF-8 text.
// The repository never calls it; the service does before creating a note.
func (f Fields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Reflection, validation.Required, utf8Text),
		validation.Field(&f.Learning, validation.Required, utf8Text),
		validation.Field(&f.Highlight, validation.Required, utf8Text),
	)
}

// Note is the single document stored under a date container.
type Note struct {
	ContainerID ContainerID
	LeafID      LeafID
	Fields      Fields
}
