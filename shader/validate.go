package shader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gogpu/naga"
)

// ErrInvalidShader is returned when emitted snippets do not form a valid
// program in their dialect.
var ErrInvalidShader = errors.New("shader: invalid snippet")

// Validator is implemented by dialects that can check a table.
type Validator interface {
	Validate(t Table, c *Cache) error
}

// Validate checks t with d when d implements Validator. Results are memoized
// in c when c is non-nil.
func Validate(d Dialect, t Table, c *Cache) error {
	v, ok := d.(Validator)
	if !ok {
		return nil
	}
	return v.Validate(t, c)
}

// Program assembles a minimal program for stage s: the dialect prelude,
// every define snippet, and an entry point running every initialize
// snippet.
func Program(d Dialect, t Table, s Stage) string {
	var defs, inits []string
	p := t.Stage(s)
	for _, k := range p.Keys() {
		if k.Op == Define {
			defs = append(defs, p[k])
		} else if p[k] != "" {
			inits = append(inits, "    "+strings.ReplaceAll(p[k], "\n", "\n    "))
		}
	}

	var b strings.Builder
	b.WriteString(d.Prelude())
	b.WriteString("\n")
	for _, def := range defs {
		b.WriteString(def)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	body := strings.Join(inits, "\n")
	switch d.(type) {
	case WGSL, *WGSL:
		if s == Vertex {
			b.WriteString("@vertex\nfn vs_main() -> @builtin(position) vec4<f32> {\n")
		} else {
			b.WriteString("@fragment\nfn fs_main() -> @location(0) vec4<f32> {\n")
		}
		if body != "" {
			b.WriteString(body + "\n")
		}
		b.WriteString("    return vec4<f32>(0.0, 0.0, 0.0, 1.0);\n}\n")
	default:
		b.WriteString("void main() {\n")
		if body != "" {
			b.WriteString(body + "\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// Validate compiles the program of each stage with naga.
func (w WGSL) Validate(t Table, c *Cache) error {
	for _, s := range []Stage{Vertex, Fragment} {
		src := Program(w, t, s)
		if _, err := c.Compile(src); err != nil {
			return fmt.Errorf("%w: %s stage: %w", ErrInvalidShader, s, err)
		}
	}
	return nil
}

// Compile compiles WGSL source to SPIR-V, consulting and filling c when c
// is non-nil.
func (c *Cache) Compile(src string) ([]byte, error) {
	if c != nil {
		if spirv, ok := c.get(src); ok {
			return spirv, nil
		}
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	if c != nil {
		c.set(src, spirv)
	}
	return spirv, nil
}

var (
	glslDecl    = regexp.MustCompile(`^(uniform|varying|attribute) (lowp|mediump|highp) (float|vec[234]) (\w+);$`)
	glslLocal   = regexp.MustCompile(`^(lowp|mediump|highp) (float|vec[234]) (\w+) = (u_\w+);$`)
	glslAssign  = regexp.MustCompile(`^(\w+) = (a_\w+) / \d+\.\d;$`)
	glslZoom1   = regexp.MustCompile(`^(\w+) = evaluate_zoom_function_1\((a_\w+), (u_\w+_t)\) / \d+\.\d;$`)
	glslZoom4   = regexp.MustCompile(`^(\w+) = evaluate_zoom_function_4\((a_\w+), (a_\w+), (a_\w+), (a_\w+), (u_\w+_t)\) / \d+\.\d;$`)
	glslMarker  = []byte("glsl:")
	errGLSLLine = errors.New("unrecognized line")
)

// Validate checks every snippet against the GLSL ES declaration grammar and
// checks that initializers only read declared inputs and write declared
// variables.
func (g GLSL) Validate(t Table, c *Cache) error {
	for _, s := range []Stage{Vertex, Fragment} {
		src := Program(g, t, s)
		if c != nil {
			if _, ok := c.get(src); ok {
				continue
			}
		}
		if err := validateGLSLStage(t.Stage(s)); err != nil {
			return fmt.Errorf("%w: %s stage: %w", ErrInvalidShader, s, err)
		}
		if c != nil {
			c.set(src, glslMarker)
		}
	}
	return nil
}

func validateGLSLStage(p Pragmas) error {
	declared := make(map[string]string)
	for _, k := range p.Keys() {
		if k.Op != Define {
			continue
		}
		for _, line := range strings.Split(p[k], "\n") {
			m := glslDecl.FindStringSubmatch(line)
			if m == nil {
				return fmt.Errorf("%w: %s: %q", errGLSLLine, k, line)
			}
			if _, dup := declared[m[4]]; dup {
				return fmt.Errorf("%s: %s redeclared", k, m[4])
			}
			declared[m[4]] = m[1]
		}
	}

	for _, k := range p.Keys() {
		if k.Op != Initialize || p[k] == "" {
			continue
		}
		line := p[k]
		var target string
		var reads []string
		switch {
		case glslLocal.MatchString(line):
			m := glslLocal.FindStringSubmatch(line)
			if _, ok := declared[m[3]]; ok {
				return fmt.Errorf("%s: local %s shadows a declaration", k, m[3])
			}
			reads = []string{m[4]}
		case glslAssign.MatchString(line):
			m := glslAssign.FindStringSubmatch(line)
			target, reads = m[1], []string{m[2]}
		case glslZoom1.MatchString(line):
			m := glslZoom1.FindStringSubmatch(line)
			target, reads = m[1], m[2:4]
		case glslZoom4.MatchString(line):
			m := glslZoom4.FindStringSubmatch(line)
			target, reads = m[1], m[2:7]
		default:
			return fmt.Errorf("%w: %s: %q", errGLSLLine, k, line)
		}

		if target != "" && declared[target] != "varying" {
			return fmt.Errorf("%s: assigns undeclared varying %s", k, target)
		}
		for _, r := range reads {
			want := "attribute"
			if strings.HasPrefix(r, "u_") {
				want = "uniform"
			}
			if declared[r] != want {
				return fmt.Errorf("%s: reads undeclared %s %s", k, want, r)
			}
		}
	}
	return nil
}
