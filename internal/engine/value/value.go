// Package value implements Purple's polymorphic typed value (spec.md
// §3, §4.1): a tagged union over the engine's representable scalar,
// vector, matrix, string, and module-reference types.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rakunlabs/purple/internal/engine/node"
)

// Kind tags which variant of the union currently holds the "written"
// payload. The zero Kind (KindNone) means "unset".
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt32
	KindUint32
	KindReal32
	KindReal32Vec2
	KindReal32Vec3
	KindReal32Vec4
	KindReal32Mat4
	KindReal64
	KindReal64Vec2
	KindReal64Vec3
	KindReal64Vec4
	KindReal64Mat4
	KindString
	KindModuleRef
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindReal32:
		return "real32"
	case KindReal32Vec2:
		return "real32vec2"
	case KindReal32Vec3:
		return "real32vec3"
	case KindReal32Vec4:
		return "real32vec4"
	case KindReal32Mat4:
		return "real32mat4"
	case KindReal64:
		return "real64"
	case KindReal64Vec2:
		return "real64vec2"
	case KindReal64Vec3:
		return "real64vec3"
	case KindReal64Vec4:
		return "real64vec4"
	case KindReal64Mat4:
		return "real64mat4"
	case KindString:
		return "string"
	case KindModuleRef:
		return "module-ref"
	default:
		return "invalid"
	}
}

// ModuleRef is a module id within a graph, stored in a KindModuleRef value.
type ModuleRef string

// Value is the tagged-union payload. Only the field matching Kind is
// meaningful; the rest are zero. Vectors/matrices are fixed-size
// arrays rather than slices so Value can be copied by value, matching
// the original's "value" (not pointer) semantics.
type Value struct {
	kind Kind

	b         bool
	i32       int32
	u32       uint32
	r32       float32
	r32vec2   [2]float32
	r32vec3   [3]float32
	r32vec4   [4]float32
	r32mat4   [16]float32
	r64       float64
	r64vec2   [2]float64
	r64vec3   [3]float64
	r64vec4   [4]float64
	r64mat4   [16]float64
	str       string
	moduleRef ModuleRef
}

// Kind returns the variant currently held (KindNone if unset).
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value holds a payload at all.
func (v Value) IsSet() bool { return v.kind != KindNone }

// Constructors. Each sets exactly one variant.

func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int32(i int32) Value         { return Value{kind: KindInt32, i32: i} }
func Uint32(u uint32) Value       { return Value{kind: KindUint32, u32: u} }
func Real32(f float32) Value      { return Value{kind: KindReal32, r32: f} }
func Real32Vec2(v [2]float32) Value { return Value{kind: KindReal32Vec2, r32vec2: v} }
func Real32Vec3(v [3]float32) Value { return Value{kind: KindReal32Vec3, r32vec3: v} }
func Real32Vec4(v [4]float32) Value { return Value{kind: KindReal32Vec4, r32vec4: v} }
func Real32Mat4(v [16]float32) Value { return Value{kind: KindReal32Mat4, r32mat4: v} }
func Real64(f float64) Value      { return Value{kind: KindReal64, r64: f} }
func Real64Vec2(v [2]float64) Value { return Value{kind: KindReal64Vec2, r64vec2: v} }
func Real64Vec3(v [3]float64) Value { return Value{kind: KindReal64Vec3, r64vec3: v} }
func Real64Vec4(v [4]float64) Value { return Value{kind: KindReal64Vec4, r64vec4: v} }
func Real64Mat4(v [16]float64) Value { return Value{kind: KindReal64Mat4, r64mat4: v} }
func String(s string) Value       { return Value{kind: KindString, str: s} }
func ModuleReference(m ModuleRef) Value { return Value{kind: KindModuleRef, moduleRef: m} }

// Accessors. Each returns the payload if Kind matches, else the zero
// value for that type (reads never fail, per spec.md §4.1).

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.b
	}
	return false
}

func (v Value) Int32() int32 {
	if v.kind == KindInt32 {
		return v.i32
	}
	return 0
}

func (v Value) Uint32() uint32 {
	if v.kind == KindUint32 {
		return v.u32
	}
	return 0
}

func (v Value) Real32() float32 {
	if v.kind == KindReal32 {
		return v.r32
	}
	return 0
}

func (v Value) Real32Vec2() [2]float32 {
	if v.kind == KindReal32Vec2 {
		return v.r32vec2
	}
	return [2]float32{}
}

func (v Value) Real32Vec3() [3]float32 {
	if v.kind == KindReal32Vec3 {
		return v.r32vec3
	}
	return [3]float32{}
}

func (v Value) Real32Vec4() [4]float32 {
	if v.kind == KindReal32Vec4 {
		return v.r32vec4
	}
	return [4]float32{}
}

func (v Value) Real32Mat4() [16]float32 {
	if v.kind == KindReal32Mat4 {
		return v.r32mat4
	}
	return [16]float32{}
}

func (v Value) Real64() float64 {
	if v.kind == KindReal64 {
		return v.r64
	}
	return 0
}

func (v Value) Real64Vec2() [2]float64 {
	if v.kind == KindReal64Vec2 {
		return v.r64vec2
	}
	return [2]float64{}
}

func (v Value) Real64Vec3() [3]float64 {
	if v.kind == KindReal64Vec3 {
		return v.r64vec3
	}
	return [3]float64{}
}

func (v Value) Real64Vec4() [4]float64 {
	if v.kind == KindReal64Vec4 {
		return v.r64vec4
	}
	return [4]float64{}
}

func (v Value) Real64Mat4() [16]float64 {
	if v.kind == KindReal64Mat4 {
		return v.r64mat4
	}
	return [16]float64{}
}

func (v Value) String() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

func (v Value) ModuleReference() ModuleRef {
	if v.kind == KindModuleRef {
		return v.moduleRef
	}
	return ""
}

// magnitude64 returns the Euclidean norm for any vector kind, and the
// scalar magnitude (absolute value) for scalar numeric kinds. Used by
// both the boolean and cross-numeric conversions.
func (v Value) magnitude64() (float64, bool) {
	switch v.kind {
	case KindInt32:
		return math.Abs(float64(v.i32)), true
	case KindUint32:
		return float64(v.u32), true
	case KindReal32:
		return math.Abs(float64(v.r32)), true
	case KindReal64:
		return math.Abs(v.r64), true
	case KindReal32Vec2:
		return norm32(v.r32vec2[:]), true
	case KindReal32Vec3:
		return norm32(v.r32vec3[:]), true
	case KindReal32Vec4:
		return norm32(v.r32vec4[:]), true
	case KindReal64Vec2:
		return norm64(v.r64vec2[:]), true
	case KindReal64Vec3:
		return norm64(v.r64vec3[:]), true
	case KindReal64Vec4:
		return norm64(v.r64vec4[:]), true
	case KindReal32Mat4:
		return det4(f32to64(v.r32mat4[:])), true
	case KindReal64Mat4:
		return det4(v.r64mat4[:]), true
	default:
		return 0, false
	}
}

func norm32(v []float32) float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}

func norm64(v []float64) float64 {
	var sum float64
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(sum)
}

func f32to64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, c := range v {
		out[i] = float64(c)
	}
	return out
}

// det4 computes the determinant of a row-major 4x4 matrix via
// cofactor expansion — adequate for the engine's purposes (matrices
// are small and infrequent compared to per-frame scalar traffic).
func det4(m []float64) float64 {
	get := func(r, c int) float64 { return m[r*4+c] }
	sub3 := func(skipRow, skipCol int) [9]float64 {
		var out [9]float64
		idx := 0
		for r := 0; r < 4; r++ {
			if r == skipRow {
				continue
			}
			for c := 0; c < 4; c++ {
				if c == skipCol {
					continue
				}
				out[idx] = get(r, c)
				idx++
			}
		}
		return out
	}
	det3 := func(m [9]float64) float64 {
		return m[0]*(m[4]*m[8]-m[5]*m[7]) -
			m[1]*(m[3]*m[8]-m[5]*m[6]) +
			m[2]*(m[3]*m[7]-m[4]*m[6])
	}
	var det float64
	sign := 1.0
	for c := 0; c < 4; c++ {
		det += sign * get(0, c) * det3(sub3(0, c))
		sign = -sign
	}
	return det
}

// formatFloat renders a float with full precision, matching the
// "floats use full-precision formatting" string-conversion rule.
func formatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func formatFloats(vals []float64, bits int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v, bits)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatMat4(vals []float64, bits int) string {
	rows := make([]string, 4)
	for r := 0; r < 4; r++ {
		rows[r] = formatFloats(vals[r*4:r*4+4], bits)
	}
	return "[" + strings.Join(rows, "") + "]"
}

// FormatString renders v the way the engine's String() conversion
// does: decimal printf-style for integers, full-precision for floats,
// bracketed for vectors/matrices.
func (v Value) FormatString() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	case KindInt32:
		return fmt.Sprintf("%d", v.i32)
	case KindUint32:
		return fmt.Sprintf("%d", v.u32)
	case KindReal32:
		return formatFloat(float64(v.r32), 32)
	case KindReal32Vec2:
		return formatFloats([]float64{float64(v.r32vec2[0]), float64(v.r32vec2[1])}, 32)
	case KindReal32Vec3:
		return formatFloats([]float64{float64(v.r32vec3[0]), float64(v.r32vec3[1]), float64(v.r32vec3[2])}, 32)
	case KindReal32Vec4:
		return formatFloats(f32to64(v.r32vec4[:]), 32)
	case KindReal32Mat4:
		return formatMat4(f32to64(v.r32mat4[:]), 32)
	case KindReal64:
		return formatFloat(v.r64, 64)
	case KindReal64Vec2:
		return formatFloats(v.r64vec2[:], 64)
	case KindReal64Vec3:
		return formatFloats(v.r64vec3[:], 64)
	case KindReal64Vec4:
		return formatFloats(v.r64vec4[:], 64)
	case KindReal64Mat4:
		return formatMat4(v.r64mat4[:], 64)
	case KindString:
		return v.str
	case KindModuleRef:
		return string(v.moduleRef)
	default:
		return ""
	}
}

// FormatNodeSetString implements the "node set → scalar" string
// conversion: the first node's name, or "" for an empty set.
func FormatNodeSetString(s node.Set) string {
	if n := s.First(); n != nil {
		return n.Name
	}
	return ""
}

// ParseNumeric best-effort parses s as the numeric payload for kind,
// returning that kind's zero value on failure (including the empty
// string, per spec.md §8 boundary behaviour).
func ParseNumeric(kind Kind, s string) Value {
	s = strings.TrimSpace(s)
	switch kind {
	case KindBool:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bool(false)
		}
		return Bool(f != 0)
	case KindInt32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Int32(0)
		}
		return Int32(int32(i))
	case KindUint32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Uint32(0)
		}
		return Uint32(uint32(u))
	case KindReal32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Real32(0)
		}
		return Real32(float32(f))
	case KindReal64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Real64(0)
		}
		return Real64(f)
	default:
		return Value{kind: kind}
	}
}
