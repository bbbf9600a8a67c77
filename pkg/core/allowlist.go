package core

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultUsers is the allow-list used when none is configured.
var DefaultUsers = []string{"kgiri", "rgiri"}

// AllowList is the set of usernames permitted to use the service.
type AllowList struct {
	names []string
}

// NewAllowList builds an allow-list from names, ignoring blanks and duplicates.
func NewAllowList(names ...string) AllowList {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return AllowList{names: out}
}

// ParseAllowList parses a comma-separated list of usernames.
func ParseAllowList(s string) AllowList {
	return NewAllowList(strings.Split(s, ",")...)
}

// Names returns the permitted usernames in sorted order.
func (a AllowList) Names() []string {
	return slices.Clone(a.names)
}

// Allows reports whether username is permitted.
func (a AllowList) Allows(username string) bool {
	_, found := slices.BinarySearch(a.names, username)
	return found
}

// Validate returns ErrRejected unless username is permitted.
func (a AllowList) Validate(username string) error {
	allowed := make([]interface{}, len(a.names))
	for i, n := range a.names {
		allowed[i] = n
	}
	if err := validation.Validate(username, validation.Required, validation.In(allowed...)); err != nil {
		return fmt.Errorf("%q: %w", username, ErrRejected)
	}
	return nil
}
