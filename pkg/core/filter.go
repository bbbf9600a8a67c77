package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter selects store entries. Empty fields match anything, except that
// Parent is always applied: Root restricts the listing to top-level entries.
type Filter struct {
	Kind   Kind
	Name   string
	Parent ContainerID
}

// Containers selects containers named name under parent.
func Containers(name string, parent ContainerID) Filter {
	return Filter{Kind: KindContainer, Name: name, Parent: parent}
}

// Leaves selects leaf documents named name under parent.
func Leaves(name string, parent ContainerID) Filter {
	return Filter{Kind: KindLeaf, Name: name, Parent: parent}
}

// Expression renders f as an expr-lang boolean expression over the
// variables kind, name and parent.
func (f Filter) Expression() string {
	clauses := []string{"parent == " + strconv.Quote(string(f.Parent))}
	if f.Kind != "" {
		clauses = append(clauses, "kind == "+strconv.Quote(string(f.Kind)))
	}
	if f.Name != "" {
		clauses = append(clauses, "name == "+strconv.Quote(f.Name))
	}
	return strings.Join(clauses, " && ")
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	return f.Expression()
}

// Matcher evaluates a compiled filter expression against entries.
type Matcher struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles f for repeated evaluation.
func CompileFilter(f Filter) (*Matcher, error) {
	return CompileExpression(f.Expression())
}

// CompileExpression compiles a raw filter expression. The expression may
// reference kind, name, parent and id, and must evaluate to a bool.
func CompileExpression(source string) (*Matcher, error) {
	program, err := expr.Compile(source, expr.Env(entryEnv(Entry{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Matcher{source: source, program: program}, nil
}

// Match reports whether e satisfies the filter.
func (m *Matcher) Match(e Entry) (bool, error) {
	out, err := expr.Run(m.program, entryEnv(e))
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", m.source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func entryEnv(e Entry) map[string]any {
	return map[string]any{
		"id":     e.ID,
		"kind":   string(e.Kind),
		"name":   e.Name,
		"parent": string(e.ParentID),
	}
}
