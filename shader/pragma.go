// Package shader holds the pragma tables a bucket emits for its programs
// and the shading-language dialects that render them.
//
// Program sources carry placeholder lines of the form
//
//	#pragma mapbox: define lowp vec4 color
//	#pragma mapbox: initialize lowp vec4 color
//
// Substitute replaces each placeholder with the snippet a Table holds for
// the (operation, name) pair in the source's stage. A Dialect decides what
// the snippets say: GLSL ES 1.0 declarations, or WGSL module-scope
// variables that naga can compile.
package shader

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// ErrUnknownPragma is returned when a source references a pragma the table
// has no snippet for.
var ErrUnknownPragma = errors.New("shader: unknown pragma")

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	// Vertex is the vertex stage.
	Vertex Stage = iota
	// Fragment is the fragment stage.
	Fragment
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// Op is a pragma operation.
type Op uint8

const (
	// Define declares the variables a property needs at module scope.
	Define Op = iota
	// Initialize computes the property value at the start of main.
	Initialize
)

// String returns the operation as it appears in a pragma line.
func (o Op) String() string {
	if o == Initialize {
		return "initialize"
	}
	return "define"
}

// Key identifies one snippet within a stage.
type Key struct {
	Op   Op
	Name string
}

// String returns "op(name)".
func (k Key) String() string { return k.Op.String() + "(" + k.Name + ")" }

// Pragmas maps keys to the snippets of one stage.
type Pragmas map[Key]string

// Keys returns the keys sorted by name, defines first.
func (p Pragmas) Keys() []Key {
	keys := make([]Key, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Op < keys[j].Op
	})
	return keys
}

// Table holds the snippets of both stages of one program.
type Table struct {
	Vertex   Pragmas
	Fragment Pragmas
}

// NewTable returns an empty table.
func NewTable() Table {
	return Table{Vertex: make(Pragmas), Fragment: make(Pragmas)}
}

// Stage returns the snippets of stage s.
func (t Table) Stage(s Stage) Pragmas {
	if s == Fragment {
		return t.Fragment
	}
	return t.Vertex
}

// Set stores one snippet.
func (t Table) Set(s Stage, op Op, name, snippet string) {
	t.Stage(s)[Key{Op: op, Name: name}] = snippet
}

// Get returns one snippet.
func (t Table) Get(s Stage, op Op, name string) (string, bool) {
	v, ok := t.Stage(s)[Key{Op: op, Name: name}]
	return v, ok
}

// Names returns the sorted property names with a snippet in either stage.
func (t Table) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range []Pragmas{t.Vertex, t.Fragment} {
		for k := range p {
			if !seen[k.Name] {
				seen[k.Name] = true
				names = append(names, k.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

var pragmaLine = regexp.MustCompile(`(?m)^([ \t]*)(?://[ \t]*)?#pragma mapbox: (define|initialize) (\w+) (\S+) (\w+)[ \t]*$`)

// Substitute replaces every pragma line of src with the stage snippet for
// its operation and name. Multi-line snippets keep the line's indentation.
func Substitute(src string, s Stage, t Table) (string, error) {
	p := t.Stage(s)
	var missing []string
	out := pragmaLine.ReplaceAllStringFunc(src, func(line string) string {
		m := pragmaLine.FindStringSubmatch(line)
		indent, name := m[1], m[5]
		op := Define
		if m[2] == "initialize" {
			op = Initialize
		}
		snippet, ok := p[Key{Op: op, Name: name}]
		if !ok {
			missing = append(missing, Key{Op: op, Name: name}.String())
			return line
		}
		return indentLines(snippet, indent)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s stage %v", ErrUnknownPragma, s, missing)
	}
	return out, nil
}

func indentLines(snippet, indent string) string {
	if snippet == "" || indent == "" {
		return indent + snippet
	}
	out := make([]byte, 0, len(snippet)+len(indent)*4)
	out = append(out, indent...)
	for i := 0; i < len(snippet); i++ {
		out = append(out, snippet[i])
		if snippet[i] == '\n' && i+1 < len(snippet) {
			out = append(out, indent...)
		}
	}
	return string(out)
}
