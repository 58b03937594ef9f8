package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding says how a property reaches the shader.
type Binding uint8

const (
	// BindUniform passes one value per layer.
	BindUniform Binding = iota
	// BindAttribute passes one value per vertex.
	BindAttribute
	// BindZoomPacked passes four zoom-stop samples of a one-component
	// property in a single vec4 attribute.
	BindZoomPacked
	// BindZoomSplit passes four zoom-stop samples of a multi-component
	// property in four attributes.
	BindZoomSplit
)

// String returns the binding name.
func (b Binding) String() string {
	switch b {
	case BindUniform:
		return "uniform"
	case BindAttribute:
		return "attribute"
	case BindZoomPacked:
		return "zoom-packed"
	case BindZoomSplit:
		return "zoom-split"
	default:
		return "Binding(" + strconv.Itoa(int(b)) + ")"
	}
}

// Scalar is the component type a per-vertex input is fetched as.
type Scalar uint8

const (
	// Float inputs are fetched from float vertex formats.
	Float Scalar = iota
	// Uint inputs are fetched from unsigned integer vertex formats.
	Uint
	// Sint inputs are fetched from signed integer vertex formats.
	Sint
)

// String returns the scalar name.
func (s Scalar) String() string {
	switch s {
	case Uint:
		return "uint"
	case Sint:
		return "sint"
	default:
		return "float"
	}
}

// Decl describes one paint property as a shader sees it.
type Decl struct {
	// Name is the shader variable name, e.g. "color".
	Name string
	// Precision is the GLSL precision qualifier: lowp, mediump or highp.
	Precision string
	// Components is the number of components of the value, 1 to 4.
	Components int
	// Multiplier scales stored attribute values; the shader divides by it.
	Multiplier float64
	// Binding selects the declaration shape.
	Binding Binding
	// Slot is the uniform binding index, used by dialects with explicit
	// bindings.
	Slot int
	// Input is the component type of the per-vertex inputs.
	Input Scalar
	// InputSlots is the component count of each per-vertex input as
	// fetched, which is larger than the value's when the vertex format is
	// widened. Zero means no widening.
	InputSlots int
}

// inputComponents returns the component count of each per-vertex input
// before widening: 4 for a zoom-packed value, Components otherwise.
func (d Decl) inputComponents() int {
	if d.Binding == BindZoomPacked {
		return 4
	}
	return d.Components
}

func (d Decl) inputSlots() int {
	if d.InputSlots > 0 {
		return d.InputSlots
	}
	return d.inputComponents()
}

// InputNames returns the per-vertex input names of d: none for a uniform,
// a_<name> for an attribute or packed zoom function, and a_<name>0 to
// a_<name>3 for a split zoom function.
func (d Decl) InputNames() []string {
	switch d.Binding {
	case BindUniform:
		return nil
	case BindZoomSplit:
		names := make([]string, 4)
		for i := range names {
			names[i] = "a_" + d.Name + strconv.Itoa(i)
		}
		return names
	default:
		return []string{"a_" + d.Name}
	}
}

// Dialect renders declarations as source snippets.
type Dialect interface {
	// Name returns the dialect name.
	Name() string

	// Emit stores the define and initialize snippets of d for both stages.
	Emit(t Table, d Decl)

	// Prelude returns the helper functions the snippets call.
	Prelude() string
}

// multiplier formats m with one decimal, as a float literal.
func multiplier(m float64) string {
	if m == 0 {
		m = 1
	}
	return strconv.FormatFloat(m, 'f', 1, 64)
}

// GLSL renders GLSL ES 1.0 snippets.
type GLSL struct{}

// Name implements Dialect.
func (GLSL) Name() string { return "glsl" }

// Prelude implements Dialect.
func (GLSL) Prelude() string { return glslPrelude }

// Type returns the GLSL type of an n-component float value.
func (GLSL) Type(n int) string {
	if n <= 1 {
		return "float"
	}
	return "vec" + strconv.Itoa(n)
}

// Emit implements Dialect.
func (g GLSL) Emit(t Table, d Decl) {
	typ := g.Type(d.Components)
	varying := fmt.Sprintf("varying %s %s %s;", d.Precision, typ, d.Name)
	mult := multiplier(d.Multiplier)

	switch d.Binding {
	case BindUniform:
		def := fmt.Sprintf("uniform %s %s u_%s;", d.Precision, typ, d.Name)
		init := fmt.Sprintf("%s %s %s = u_%s;", d.Precision, typ, d.Name, d.Name)
		for _, s := range []Stage{Vertex, Fragment} {
			t.Set(s, Define, d.Name, def)
			t.Set(s, Initialize, d.Name, init)
		}
		return

	case BindAttribute:
		t.Set(Vertex, Define, d.Name, varying+"\n"+
			fmt.Sprintf("attribute %s %s a_%s;", d.Precision, typ, d.Name))
		t.Set(Vertex, Initialize, d.Name, fmt.Sprintf("%s = a_%s / %s;", d.Name, d.Name, mult))

	case BindZoomPacked:
		t.Set(Vertex, Define, d.Name, varying+"\n"+
			fmt.Sprintf("uniform lowp float u_%s_t;\n", d.Name)+
			fmt.Sprintf("attribute %s vec4 a_%s;", d.Precision, d.Name))
		t.Set(Vertex, Initialize, d.Name,
			fmt.Sprintf("%s = evaluate_zoom_function_1(a_%s, u_%s_t) / %s;", d.Name, d.Name, d.Name, mult))

	case BindZoomSplit:
		inputs := d.InputNames()
		lines := []string{varying, fmt.Sprintf("uniform lowp float u_%s_t;", d.Name)}
		for _, in := range inputs {
			lines = append(lines, fmt.Sprintf("attribute %s %s %s;", d.Precision, typ, in))
		}
		t.Set(Vertex, Define, d.Name, strings.Join(lines, "\n"))
		t.Set(Vertex, Initialize, d.Name,
			fmt.Sprintf("%s = evaluate_zoom_function_4(%s, u_%s_t) / %s;",
				d.Name, strings.Join(inputs, ", "), d.Name, mult))
	}

	t.Set(Fragment, Define, d.Name, varying)
	t.Set(Fragment, Initialize, d.Name, "")
}

// WGSL renders WGSL snippets. Uniforms live in bind group 1 at the
// declaration's slot; per-vertex inputs and varyings are private globals
// the entry point fills from its stage inputs.
type WGSL struct{}

// Name implements Dialect.
func (WGSL) Name() string { return "wgsl" }

// Prelude implements Dialect.
func (WGSL) Prelude() string { return wgslPrelude }

// Type returns the WGSL type of an n-component float value.
func (WGSL) Type(n int) string {
	if n <= 1 {
		return "f32"
	}
	return "vec" + strconv.Itoa(n) + "<f32>"
}

func (s Scalar) wgsl() string {
	switch s {
	case Uint:
		return "u32"
	case Sint:
		return "i32"
	default:
		return "f32"
	}
}

// InputType returns the WGSL type of each per-vertex input of d, matching
// the vertex format it is fetched with.
func (WGSL) InputType(d Decl) string {
	n := d.inputSlots()
	if n <= 1 {
		return d.Input.wgsl()
	}
	return "vec" + strconv.Itoa(n) + "<" + d.Input.wgsl() + ">"
}

// toFloat converts the per-vertex input in to the float type of the value
// it carries, dropping widened components.
func (w WGSL) toFloat(d Decl, in string) string {
	n, slots := d.inputComponents(), d.inputSlots()
	if d.Input == Float && n == slots {
		return in
	}
	if slots > n {
		if n == 1 {
			in += ".x"
		} else {
			in += "." + "xyzw"[:n]
		}
	}
	return w.Type(n) + "(" + in + ")"
}

// Emit implements Dialect.
func (w WGSL) Emit(t Table, d Decl) {
	typ := w.Type(d.Components)
	local := fmt.Sprintf("var<private> %s: %s;", d.Name, typ)
	mult := multiplier(d.Multiplier)

	switch d.Binding {
	case BindUniform:
		def := fmt.Sprintf("@group(1) @binding(%d) var<uniform> u_%s: %s;\n%s", d.Slot, d.Name, typ, local)
		init := fmt.Sprintf("%s = u_%s;", d.Name, d.Name)
		for _, s := range []Stage{Vertex, Fragment} {
			t.Set(s, Define, d.Name, def)
			t.Set(s, Initialize, d.Name, init)
		}
		return

	case BindAttribute:
		t.Set(Vertex, Define, d.Name, local+"\n"+
			fmt.Sprintf("var<private> a_%s: %s;", d.Name, w.InputType(d)))
		t.Set(Vertex, Initialize, d.Name,
			fmt.Sprintf("%s = %s / %s;", d.Name, w.toFloat(d, "a_"+d.Name), mult))

	case BindZoomPacked:
		t.Set(Vertex, Define, d.Name, local+"\n"+
			fmt.Sprintf("@group(1) @binding(%d) var<uniform> u_%s_t: f32;\n", d.Slot, d.Name)+
			fmt.Sprintf("var<private> a_%s: %s;", d.Name, w.InputType(d)))
		t.Set(Vertex, Initialize, d.Name,
			fmt.Sprintf("%s = evaluate_zoom_function_1(%s, u_%s_t) / %s;",
				d.Name, w.toFloat(d, "a_"+d.Name), d.Name, mult))

	case BindZoomSplit:
		inputs := d.InputNames()
		lines := []string{local, fmt.Sprintf("@group(1) @binding(%d) var<uniform> u_%s_t: f32;", d.Slot, d.Name)}
		args := make([]string, len(inputs))
		for i, in := range inputs {
			lines = append(lines, fmt.Sprintf("var<private> %s: %s;", in, w.InputType(d)))
			args[i] = w.toFloat(d, in)
		}
		t.Set(Vertex, Define, d.Name, strings.Join(lines, "\n"))
		t.Set(Vertex, Initialize, d.Name,
			fmt.Sprintf("%s = evaluate_zoom_function_4_vec%d(%s, u_%s_t) / %s;",
				d.Name, d.Components, strings.Join(args, ", "), d.Name, mult))
	}

	t.Set(Fragment, Define, d.Name, local)
	t.Set(Fragment, Initialize, d.Name, "")
}
