package value

// Native converts v to a plain Go value suitable for handing to an
// embedded scripting runtime (the goja-scripted plug-in kind uses
// this to bind port values as JS variables). Vectors and matrices
// become []float64 so script code can index them like JS arrays.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt32:
		return v.i32
	case KindUint32:
		return v.u32
	case KindReal32:
		return float64(v.r32)
	case KindReal32Vec2:
		return f32to64(v.r32vec2[:])
	case KindReal32Vec3:
		return f32to64(v.r32vec3[:])
	case KindReal32Vec4:
		return f32to64(v.r32vec4[:])
	case KindReal32Mat4:
		return f32to64(v.r32mat4[:])
	case KindReal64:
		return v.r64
	case KindReal64Vec2:
		return append([]float64(nil), v.r64vec2[:]...)
	case KindReal64Vec3:
		return append([]float64(nil), v.r64vec3[:]...)
	case KindReal64Vec4:
		return append([]float64(nil), v.r64vec4[:]...)
	case KindReal64Mat4:
		return append([]float64(nil), v.r64mat4[:]...)
	case KindString:
		return v.str
	case KindModuleRef:
		return string(v.moduleRef)
	default:
		return nil
	}
}

// FromNative builds a Value of the given Kind from a script runtime's
// exported result (float64 is goja's native numeric type; ints and
// bools pass straight through). Unrepresentable combinations yield
// the zero Value for that kind, matching this package's
// reads-never-fail convention.
func FromNative(kind Kind, v any) Value {
	switch kind {
	case KindBool:
		b, _ := v.(bool)
		return Bool(b)
	case KindInt32:
		return Int32(int32(toFloat64(v)))
	case KindUint32:
		return Uint32(uint32(toFloat64(v)))
	case KindReal32:
		return Real32(float32(toFloat64(v)))
	case KindReal64:
		return Real64(toFloat64(v))
	case KindReal32Vec2:
		f := toFloat64Slice(v, 2)
		return Real32Vec2([2]float32{float32(f[0]), float32(f[1])})
	case KindReal32Vec3:
		f := toFloat64Slice(v, 3)
		return Real32Vec3([3]float32{float32(f[0]), float32(f[1]), float32(f[2])})
	case KindReal32Vec4:
		f := toFloat64Slice(v, 4)
		return Real32Vec4([4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])})
	case KindReal64Vec2:
		f := toFloat64Slice(v, 2)
		return Real64Vec2([2]float64{f[0], f[1]})
	case KindReal64Vec3:
		f := toFloat64Slice(v, 3)
		return Real64Vec3([3]float64{f[0], f[1], f[2]})
	case KindReal64Vec4:
		f := toFloat64Slice(v, 4)
		return Real64Vec4([4]float64{f[0], f[1], f[2], f[3]})
	case KindString:
		s, _ := v.(string)
		return String(s)
	case KindModuleRef:
		s, _ := v.(string)
		return ModuleReference(ModuleRef(s))
	default:
		return Value{}
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toFloat64Slice(v any, n int) []float64 {
	out := make([]float64, n)
	switch s := v.(type) {
	case []any:
		for i := 0; i < n && i < len(s); i++ {
			out[i] = toFloat64(s[i])
		}
	case []float64:
		for i := 0; i < n && i < len(s); i++ {
			out[i] = s[i]
		}
	}
	return out
}
